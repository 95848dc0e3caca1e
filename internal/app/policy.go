package app

import "github.com/tutorlink/live/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose outbound buffer is full.
type Policy interface {
	OnBackpressure(member core.Participant) BackpressureAction
}

// SimplePolicy disconnects slow consumers so a stalled client can never
// stall a room.
type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(core.Participant) BackpressureAction {
	return KickMember
}
