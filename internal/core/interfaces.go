package core

import (
	"context"

	"github.com/tutorlink/live/internal/domain"
)

// Frame is a marshaled wire event ready for the transport.
type Frame []byte

// ConnID identifies one live transport channel. Unique per connection, not
// per user: the same user may hold several connections.
type ConnID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Participant is a connection admitted to a room: the immutable identity
// binding plus its transport endpoint. Rooms store and fan out to these.
type Participant struct {
	Conn   ConnID
	User   domain.User
	Room   domain.RoomID
	Signal SignalConnection
}

// MemberDTO is a read-only view for APIs and snapshots (no transport fields).
type MemberDTO struct {
	UserID       domain.UserID `json:"userId"`
	DisplayName  string        `json:"displayName"`
	ConnectionID ConnID        `json:"connectionId,omitempty"`
}

// RoomService owns one room's membership set. Every method is linearized
// against the others on the same room; it never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []Participant

	// AddMember admits p and returns the membership as it was just before
	// the add, under the same lock. The join protocol is built on that
	// atomicity: two concurrent joins can never both miss each other.
	// ok is false when the room was already retired; the caller must
	// resolve a fresh room and try again.
	AddMember(p Participant) (existing []Participant, ok bool)

	// Retire marks the room dead, but only while it is empty. A retired
	// room accepts no members, which closes the window between a manager
	// dropping the room and a racing join adding to the stale instance.
	Retire() bool

	// RemoveMember is idempotent. It reports whether cid was actually a
	// member, the members left behind, and whether the room is now empty.
	RemoveMember(cid ConnID) (removed bool, remaining []Participant, empty bool)

	Contains(cid ConnID) bool

	// FindByUser resolves a user to their live connection in this room.
	// When the user holds several, the most recently joined one wins.
	FindByUser(uid domain.UserID) (Participant, bool)
}

type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	MemberCount int           `json:"memberCount"`
}

// RoomManager creates rooms on first join and drops them on last leave.
type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	Drop(id domain.RoomID)
	List() []RoomInfo
}

// SessionStore is the durable session record, an external collaborator.
// The room registry is volatile; this is where chat and rosters outlive it.
type SessionStore interface {
	AppendChatMessage(ctx context.Context, msg domain.ChatMessage) error
	DurableParticipants(ctx context.Context, room domain.RoomID) ([]domain.User, error)
}

// TokenVerifier is the upstream credential check consulted before a
// connection is allowed to bind an identity.
type TokenVerifier interface {
	Verify(token string) (domain.User, error)
}
