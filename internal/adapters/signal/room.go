package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/domain"
)

func (ctl *SignalWSController) handleJoinRoom(ctx context.Context, sess *connSession, c *WsSignalConn, data []byte) {
	var p struct {
		Type        string `json:"type"`
		RoomID      string `json:"roomId" validate:"required,max=64"`
		UserID      string `json:"userId" validate:"required,max=36"`
		DisplayName string `json:"displayName" validate:"required,max=64"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad joinRoom payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(&p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	// The client restates its identity; it must be the one the token
	// certified at upgrade time.
	if err := sess.checkIdentity(domain.UserID(p.UserID)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(sess.cid)).Str("claimed", p.UserID).Str("actual", string(sess.user.ID)).Msg("join rejected")
		ctl.sendError(c, "identity_mismatch")
		return
	}

	if !ctl.joinLimit.Allow(sess.clientToken) {
		ctl.sendError(c, "too_many_joins")
		return
	}

	roomID, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	user := sess.user
	user.DisplayName = p.DisplayName

	log.Info().Str("module", "signal").Str("cid", string(sess.cid)).Str("room", string(roomID)).Msg("joinRoom")
	if err := ctl.Coord.Join(ctx, sess.cid, user, roomID); err != nil {
		if errors.Is(err, domain.ErrAlreadyBound) {
			ctl.sendError(c, "already_joined")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("cid", string(sess.cid)).Msg("join failed")
		ctl.sendError(c, "join_failed")
	}
}

func (ctl *SignalWSController) handleLeaveRoom(sess *connSession, c *WsSignalConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId" validate:"required,max=64"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leaveRoom payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(&p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Str("cid", string(sess.cid)).Str("room", p.RoomID).Msg("leaveRoom")
	ctl.Coord.LeaveRoom(sess.cid, domain.RoomID(p.RoomID))
	ctl.sendJSON(c, map[string]any{"type": "left", "roomId": p.RoomID})
}
