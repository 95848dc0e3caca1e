package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/domain"
)

// roomImpl is a threadsafe in-memory room. One mutex per room; unrelated
// rooms never contend. It never closes adapter-owned resources.
type roomImpl struct {
	id    domain.RoomID
	mu    sync.RWMutex
	byCID map[ConnID]Participant
	// joinSeq orders connections of the same user so FindByUser can prefer
	// the newest one.
	joinSeq map[ConnID]uint64
	seq     uint64
	// dead is set by Retire once the manager drops the room; a dead room
	// never admits another member.
	dead bool
}

func NewRoomService(id domain.RoomID) RoomService {
	return &roomImpl{
		id:      id,
		byCID:   make(map[ConnID]Participant),
		joinSeq: make(map[ConnID]uint64),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCID)
}

func (r *roomImpl) AddMember(p Participant) ([]Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead {
		return nil, false
	}
	existing := make([]Participant, 0, len(r.byCID))
	for _, m := range r.byCID {
		existing = append(existing, m)
	}
	r.seq++
	r.byCID[p.Conn] = p
	r.joinSeq[p.Conn] = r.seq
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("cid", string(p.Conn)).Str("user", string(p.User.ID)).Msg("member added")
	return existing, true
}

func (r *roomImpl) Retire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.byCID) > 0 {
		return false
	}
	r.dead = true
	return true
}

func (r *roomImpl) RemoveMember(cid ConnID) (bool, []Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCID[cid]; !ok {
		return false, nil, len(r.byCID) == 0
	}
	delete(r.byCID, cid)
	delete(r.joinSeq, cid)
	remaining := make([]Participant, 0, len(r.byCID))
	for _, m := range r.byCID {
		remaining = append(remaining, m)
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("cid", string(cid)).Msg("member removed")
	return true, remaining, len(r.byCID) == 0
}

func (r *roomImpl) Contains(cid ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byCID[cid]
	return ok
}

func (r *roomImpl) FindByUser(uid domain.UserID) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best    Participant
		bestSeq uint64
		found   bool
	)
	for cid, m := range r.byCID {
		if m.User.ID != uid {
			continue
		}
		if !found || r.joinSeq[cid] > bestSeq {
			best, bestSeq, found = m, r.joinSeq[cid], true
		}
	}
	return best, found
}

func (r *roomImpl) MembersSnapshot() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Participant, 0, len(r.byCID))
	for _, m := range r.byCID {
		out = append(out, m)
	}
	return out
}
