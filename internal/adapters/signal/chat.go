package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/domain"
)

func (ctl *SignalWSController) handleChatSend(sess *connSession, c *WsSignalConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId" validate:"required,max=64"`
		Text   string `json:"text" validate:"required,max=4096"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chatSend payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(&p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	err := ctl.Coord.ChatSend(sess.cid, domain.RoomID(p.RoomID), p.Text)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmptyText):
		ctl.sendError(c, "empty_text")
	case errors.Is(err, domain.ErrNotInRoom):
		ctl.sendError(c, "not_in_room")
	default:
		log.Error().Err(err).Str("module", "signal").Str("cid", string(sess.cid)).Msg("chat send failed")
		ctl.sendError(c, "chat_failed")
	}
}
