package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutorlink/live/internal/domain"
)

type nopSignal struct{}

func (nopSignal) TrySend(Frame) error { return nil }
func (nopSignal) Close()              {}

func member(cid ConnID, uid domain.UserID) Participant {
	return Participant{Conn: cid, User: domain.User{ID: uid, DisplayName: string(uid)}, Room: "R1", Signal: nopSignal{}}
}

func TestRoom_AddMemberReturnsPreAddSnapshot(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("R1")

	// When the first member joins
	existing, ok := room.AddMember(member("c1", "u1"))
	req.True(ok)
	req.Empty(existing)

	// When a second member joins
	existing, ok = room.AddMember(member("c2", "u2"))
	req.True(ok)

	// Then the snapshot shows exactly who was there before the add
	req.Len(existing, 1)
	req.Equal(ConnID("c1"), existing[0].Conn)
	req.Equal(2, room.MemberCount())
}

func TestRoom_RemoveMemberIdempotent(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("R1")
	room.AddMember(member("c1", "u1"))
	room.AddMember(member("c2", "u2"))

	removed, remaining, empty := room.RemoveMember("c1")
	req.True(removed)
	req.Len(remaining, 1)
	req.False(empty)

	// A second remove of the same connection is a no-op
	removed, _, _ = room.RemoveMember("c1")
	req.False(removed)

	// Removing a connection never added is a no-op too
	removed, _, _ = room.RemoveMember("ghost")
	req.False(removed)

	removed, remaining, empty = room.RemoveMember("c2")
	req.True(removed)
	req.Empty(remaining)
	req.True(empty)
}

func TestRoom_RetireOnlyWhenEmpty(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("R1")
	room.AddMember(member("c1", "u1"))

	// A room with members refuses to retire
	req.False(room.Retire())

	room.RemoveMember("c1")
	req.True(room.Retire())

	// And once retired it admits nobody
	_, ok := room.AddMember(member("c2", "u2"))
	req.False(ok)
	req.Equal(0, room.MemberCount())
}

func TestRoom_FindByUser(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("R1")
	room.AddMember(member("c1", "u1"))
	room.AddMember(member("c2", "u2"))

	p, ok := room.FindByUser("u2")
	req.True(ok)
	req.Equal(ConnID("c2"), p.Conn)

	_, ok = room.FindByUser("ghost")
	req.False(ok)
}

func TestRoom_FindByUser_NewestConnectionWins(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("R1")

	// Given one user with two live connections, joined in order
	room.AddMember(member("old", "u1"))
	room.AddMember(member("new", "u1"))

	p, ok := room.FindByUser("u1")
	req.True(ok)
	req.Equal(ConnID("new"), p.Conn)

	// When the newest drops, the older one is found again
	room.RemoveMember("new")
	p, ok = room.FindByUser("u1")
	req.True(ok)
	req.Equal(ConnID("old"), p.Conn)
}

func TestRoom_ConcurrentJoinsLoseNoUpdates(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("R1")

	// When many joins race on the same room
	const n = 64
	snapshots := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cid := ConnID(rune('a'+i%26)) + ConnID(rune('A'+i/26))
			existing, _ := room.AddMember(member(cid, domain.UserID(cid)))
			snapshots[i] = len(existing)
		}(i)
	}
	wg.Wait()

	// Then the membership is complete and every join observed a distinct
	// pre-add size: no two joins saw the same "existing members" set.
	req.Equal(n, room.MemberCount())
	seen := make(map[int]bool, n)
	for _, s := range snapshots {
		req.False(seen[s])
		seen[s] = true
	}
}
