package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/domain"
)

// Server-to-client wire events. Each carries its envelope type inline so a
// frame is marshaled exactly once regardless of how many members receive it.

type PresenceJoinedEvent struct {
	Type         string        `json:"type"`
	RoomID       domain.RoomID `json:"roomId"`
	UserID       domain.UserID `json:"userId"`
	DisplayName  string        `json:"displayName"`
	ConnectionID core.ConnID   `json:"connectionId"`
	Timestamp    time.Time     `json:"timestamp"`
}

type PresenceLeftEvent struct {
	Type         string        `json:"type"`
	RoomID       domain.RoomID `json:"roomId"`
	UserID       domain.UserID `json:"userId"`
	DisplayName  string        `json:"displayName"`
	ConnectionID core.ConnID   `json:"connectionId"`
}

type RoomSnapshotEvent struct {
	Type            string           `json:"type"`
	RoomID          domain.RoomID    `json:"roomId"`
	Participants    []core.MemberDTO `json:"participants"`
	LiveConnections []core.MemberDTO `json:"liveConnections"`
}

type NegotiateEvent struct {
	Type            string                 `json:"type"`
	RoomID          domain.RoomID          `json:"roomId"`
	FromUserID      domain.UserID          `json:"fromUserId"`
	FromDisplayName string                 `json:"fromDisplayName"`
	Kind            domain.NegotiationKind `json:"kind"`
	Payload         json.RawMessage        `json:"payload"`
}

type ChatMessageEvent struct {
	Type string `json:"type"`
	domain.ChatMessage
}

func presenceJoined(p core.Participant, at time.Time) PresenceJoinedEvent {
	return PresenceJoinedEvent{
		Type:         "presenceJoined",
		RoomID:       p.Room,
		UserID:       p.User.ID,
		DisplayName:  p.User.DisplayName,
		ConnectionID: p.Conn,
		Timestamp:    at,
	}
}

func presenceLeft(p core.Participant) PresenceLeftEvent {
	return PresenceLeftEvent{
		Type:         "presenceLeft",
		RoomID:       p.Room,
		UserID:       p.User.ID,
		DisplayName:  p.User.DisplayName,
		ConnectionID: p.Conn,
	}
}

// send marshals v and enqueues it on one member's outbound buffer. Delivery
// is enqueue-and-return; a full buffer is handed to the backpressure policy.
func (c *Coordinator) send(p core.Participant, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Msg("marshal event")
		return
	}
	if err := p.Signal.TrySend(core.Frame(b)); err != nil {
		c.onSlow(p)
	}
}

// fanout delivers one marshaled frame to every participant in members.
func (c *Coordinator) fanout(members []core.Participant, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Msg("marshal event")
		return
	}
	for _, m := range members {
		if err := m.Signal.TrySend(core.Frame(b)); err != nil {
			c.onSlow(m)
		}
	}
}

func (c *Coordinator) onSlow(p core.Participant) {
	log.Warn().Str("module", "app.events").Str("cid", string(p.Conn)).Str("user", string(p.User.ID)).Msg("outbound buffer full")
	if c.Policy == nil {
		return
	}
	switch c.Policy.OnBackpressure(p) {
	case KickMember:
		// Closing the transport unblocks the read loop, whose exit drives
		// the normal disconnect path, so cleanup stays single-tracked.
		c.Registry.Cancel(p.Conn)
		p.Signal.Close()
	case DropFrame, NoAction:
	}
}
