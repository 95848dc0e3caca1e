package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/domain"
)

// Relay forwards one negotiation message point-to-point: from the sender to
// the single live connection bound to toUserID in the sender's room. Never
// broadcast. An absent target is a silent drop, not an error: negotiation
// messages mean nothing to a party who is not live.
func (c *Coordinator) Relay(cid core.ConnID, roomID domain.RoomID, toUserID domain.UserID, kind domain.NegotiationKind, payload json.RawMessage) error {
	if !kind.Valid() {
		return domain.ErrUnknownNegotiation
	}
	from, ok := c.Registry.BindingOf(cid)
	if !ok || from.Room != roomID {
		return domain.ErrNotInRoom
	}
	room, ok := c.Rooms.Get(from.Room)
	if !ok || !room.Contains(cid) {
		return domain.ErrNotInRoom
	}

	target, ok := room.FindByUser(toUserID)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("room", string(from.Room)).Str("to", string(toUserID)).Str("kind", string(kind)).Msg("target not connected, dropping")
		return nil
	}

	c.send(target, NegotiateEvent{
		Type:            "negotiate",
		RoomID:          from.Room,
		FromUserID:      from.User.ID,
		FromDisplayName: from.User.DisplayName,
		Kind:            kind,
		Payload:         payload,
	})
	return nil
}
