package signal

import (
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/domain"
)

func (ctl *SignalWSController) handleNegotiate(sess *connSession, c *WsSignalConn, data []byte) {
	var p struct {
		Type     string          `json:"type"`
		RoomID   string          `json:"roomId" validate:"required,max=64"`
		ToUserID string          `json:"toUserId" validate:"required,max=36"`
		Kind     string          `json:"kind" validate:"required"`
		Payload  json.RawMessage `json:"payload" validate:"required"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad negotiate payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(&p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	kind := domain.NegotiationKind(p.Kind)
	if !validNegotiationPayload(kind, p.Payload) {
		ctl.sendError(c, "bad_payload")
		return
	}

	err := ctl.Coord.Relay(sess.cid, domain.RoomID(p.RoomID), domain.UserID(p.ToUserID), kind, p.Payload)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotInRoom):
		ctl.sendError(c, "not_in_room")
	case errors.Is(err, domain.ErrUnknownNegotiation):
		ctl.sendError(c, "bad_payload")
	default:
		log.Error().Err(err).Str("module", "signal").Str("cid", string(sess.cid)).Msg("relay failed")
		ctl.sendError(c, "relay_failed")
	}
}

// validNegotiationPayload checks shape only. The payload is relayed
// byte-for-byte; offers and answers must at least decode as a session
// description and candidates as an ICE candidate.
func validNegotiationPayload(kind domain.NegotiationKind, payload json.RawMessage) bool {
	switch kind {
	case domain.NegotiationOffer, domain.NegotiationAnswer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(payload, &sd); err != nil {
			return false
		}
		return sd.SDP != ""
	case domain.NegotiationCandidate:
		var ci webrtc.ICECandidateInit
		if err := json.Unmarshal(payload, &ci); err != nil {
			return false
		}
		return ci.Candidate != ""
	}
	return false
}
