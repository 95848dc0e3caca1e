// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen      = 36
	MaxDisplayNameLen = 64
)

var (
	ErrUserIDEmpty        = errors.New("user id empty")
	ErrUserIDTooLong      = errors.New("user id too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

type UserID string

type User struct {
	ID          UserID `json:"userId"`
	DisplayName string `json:"displayName"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, displayName string) (User, error) {
	if len(id) == 0 {
		return User{}, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return User{}, ErrUserIDTooLong
	}
	if len(displayName) == 0 {
		return User{}, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return User{}, ErrDisplayNameTooLong
	}
	return User{ID: id, DisplayName: displayName}, nil
}
