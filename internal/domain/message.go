package domain

import (
	"errors"
	"time"
)

var (
	ErrEmptyText          = errors.New("empty chat text")
	ErrUnknownNegotiation = errors.New("unknown negotiation kind")
	ErrAlreadyBound       = errors.New("connection already bound")
	ErrNotInRoom          = errors.New("connection not in room")
	ErrIdentityMismatch   = errors.New("identity does not match token")
	ErrConnectionNotFound = errors.New("connection not found")
)

// NegotiationKind names the three peer-negotiation message kinds the relay
// forwards. The payload itself stays opaque.
type NegotiationKind string

const (
	NegotiationOffer     NegotiationKind = "offer"
	NegotiationAnswer    NegotiationKind = "answer"
	NegotiationCandidate NegotiationKind = "candidate"
)

func (k NegotiationKind) Valid() bool {
	switch k {
	case NegotiationOffer, NegotiationAnswer, NegotiationCandidate:
		return true
	}
	return false
}

// ChatMessage is the persisted chat unit; the broadcast copy carries the
// same fields.
type ChatMessage struct {
	RoomID      RoomID    `json:"roomId"`
	FromUserID  UserID    `json:"fromUserId"`
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}
