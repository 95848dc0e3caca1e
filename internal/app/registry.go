package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/domain"
)

type connEntry struct {
	Signal  core.SignalConnection
	Binding *core.Participant
	Cancel  context.CancelFunc
}

// Registry tracks every live connection and its identity binding.
// A binding, once set, never changes for the life of the connection;
// rebinding requires a fresh connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.ConnID]*connEntry)}
}

func (r *Registry) Register(cid core.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = &connEntry{Signal: sig, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("registered connection")
}

// Bind attaches identity and target room to a fresh connection. Binding an
// already-bound connection is a protocol violation, not an update.
func (r *Registry) Bind(cid core.ConnID, user domain.User, room domain.RoomID) (core.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[cid]
	if !ok {
		return core.Participant{}, domain.ErrConnectionNotFound
	}
	if e.Binding != nil {
		return core.Participant{}, domain.ErrAlreadyBound
	}
	p := core.Participant{Conn: cid, User: user, Room: room, Signal: e.Signal}
	e.Binding = &p
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("user", string(user.ID)).Str("room", string(room)).Msg("bound identity")
	return p, nil
}

// BindingOf returns the connection's binding, if identity was attached.
func (r *Registry) BindingOf(cid core.ConnID) (core.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok || e.Binding == nil {
		return core.Participant{}, false
	}
	return *e.Binding, true
}

func (r *Registry) Unregister(cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, cid)
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("unregistered connection")
}

// Cancel tears down the connection's context, which stops its pumps.
func (r *Registry) Cancel(cid core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("canceled connection")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
