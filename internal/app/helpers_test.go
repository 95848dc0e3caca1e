package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/domain"
	"github.com/tutorlink/live/internal/store/memory"
)

// fakeSignal records every frame enqueued to it. Setting full simulates a
// slow consumer with a saturated outbound buffer.
type fakeSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (f *fakeSignal) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return errors.New("backpressure")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// events decodes everything the peer has received so far.
func (f *fakeSignal) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

func (f *fakeSignal) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, e := range f.events(t) {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

// failingStore always refuses appends; the roster read still works.
type failingStore struct{}

func (failingStore) AppendChatMessage(context.Context, domain.ChatMessage) error {
	return errors.New("store down")
}

func (failingStore) DurableParticipants(context.Context, domain.RoomID) ([]domain.User, error) {
	return nil, errors.New("store down")
}

func newTestCoordinator() *Coordinator {
	return NewCoordinator(NewRegistry(), NewRoomManager(), memory.NewSessionStore())
}

// connect registers a connection and joins it into room, returning its
// transport fake.
func connect(t *testing.T, c *Coordinator, cid core.ConnID, uid domain.UserID, name string, room domain.RoomID) *fakeSignal {
	t.Helper()
	sig := &fakeSignal{}
	c.Registry.Register(cid, sig, nil)
	user, err := domain.NewUser(uid, name)
	require.NoError(t, err)
	require.NoError(t, c.Join(context.Background(), cid, user, room))
	return sig
}
