package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/domain"
)

// ChatSend appends the message to the durable session record and broadcasts
// it to every other member of the room. The two are independent: broadcast
// never waits on persistence, and a persistence failure only costs the
// sender an advisory warning, never the delivery.
func (c *Coordinator) ChatSend(cid core.ConnID, roomID domain.RoomID, text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyText
	}
	from, ok := c.Registry.BindingOf(cid)
	if !ok || from.Room != roomID {
		return domain.ErrNotInRoom
	}
	room, ok := c.Rooms.Get(from.Room)
	if !ok || !room.Contains(cid) {
		return domain.ErrNotInRoom
	}

	msg := domain.ChatMessage{
		RoomID:      from.Room,
		FromUserID:  from.User.ID,
		DisplayName: from.User.DisplayName,
		Text:        text,
		Timestamp:   time.Now().UTC(),
	}

	if c.Store != nil {
		go c.persistChat(from, msg)
	}

	others := make([]core.Participant, 0, room.MemberCount())
	for _, m := range room.MembersSnapshot() {
		if m.Conn != cid {
			others = append(others, m)
		}
	}
	c.fanout(others, ChatMessageEvent{Type: "chatMessage", ChatMessage: msg})
	return nil
}

func (c *Coordinator) persistChat(from core.Participant, msg domain.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), c.PersistTimeout)
	defer cancel()
	if err := c.Store.AppendChatMessage(ctx, msg); err != nil {
		log.Error().Err(err).Str("module", "app.chat").Str("room", string(msg.RoomID)).Str("user", string(msg.FromUserID)).Msg("chat append failed")
		c.send(from, map[string]any{
			"type":    "warning",
			"warning": "message delivered but not saved to the session record",
		})
	}
}
