package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/domain"
)

func TestCoordinator_Join_FirstMemberGetsEmptyRoom(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	// When the first connection joins an empty room
	sig := connect(t, coord, "c1", "t1", "Alice", "R1")

	// Then it receives no presenceJoined (nobody was there)
	req.Empty(sig.eventsOfType(t, "presenceJoined"))

	// And its snapshot lists only itself as live
	snaps := sig.eventsOfType(t, "roomSnapshot")
	req.Len(snaps, 1)
	live := snaps[0]["liveConnections"].([]any)
	req.Len(live, 1)
	req.Equal("t1", live[0].(map[string]any)["userId"])
}

func TestCoordinator_Join_Completeness(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	// Given three members joining the same room in order
	sigA := connect(t, coord, "c1", "u1", "A", "R1")
	sigB := connect(t, coord, "c2", "u2", "B", "R1")
	sigC := connect(t, coord, "c3", "u3", "C", "R1")

	// Then every member ends up with exactly one presenceJoined per peer
	req.Len(sigA.eventsOfType(t, "presenceJoined"), 2) // B and C arrived after A
	req.Len(sigB.eventsOfType(t, "presenceJoined"), 2) // replay of A, arrival of C
	req.Len(sigC.eventsOfType(t, "presenceJoined"), 2) // replay of A and B

	// And the replay enumerates exactly who was present at join time
	replayed := sigC.eventsOfType(t, "presenceJoined")
	seen := map[string]bool{}
	for _, e := range replayed {
		seen[e["userId"].(string)] = true
	}
	req.True(seen["u1"])
	req.True(seen["u2"])
	req.False(seen["u3"])
}

func TestCoordinator_Join_RebindRejected(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	// Given a connection already joined to a room
	connect(t, coord, "c1", "u1", "A", "R1")
	user, _ := domain.NewUser("u1", "A")

	// When the same connection tries to join again
	err := coord.Join(context.Background(), "c1", user, "R2")

	// Then the rebind is a protocol violation
	req.ErrorIs(err, domain.ErrAlreadyBound)
}

func TestCoordinator_Leave_Idempotent(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	sigA := connect(t, coord, "c1", "u1", "A", "R1")
	connect(t, coord, "c2", "u2", "B", "R1")

	// When B leaves twice
	coord.LeaveRoom("c2", "R1")
	coord.LeaveRoom("c2", "R1")

	// Then A sees exactly one presenceLeft
	req.Len(sigA.eventsOfType(t, "presenceLeft"), 1)
}

func TestCoordinator_Leave_NeverJoinedRoomIsNoop(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	sigA := connect(t, coord, "c1", "u1", "A", "R1")

	// When A leaves a room it never joined
	coord.LeaveRoom("c1", "R9")

	// Then nothing happens and A is still a member of R1
	room, ok := coord.Rooms.Get("R1")
	req.True(ok)
	req.True(room.Contains("c1"))
	req.Empty(sigA.eventsOfType(t, "presenceLeft"))
}

func TestCoordinator_Disconnect_CleansUpRoom(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	sigA := connect(t, coord, "c1", "u1", "A", "R1")
	connect(t, coord, "c2", "u2", "B", "R1")

	// When B's transport closes
	coord.OnDisconnect("c2")

	// Then A is notified and B is gone from the room
	left := sigA.eventsOfType(t, "presenceLeft")
	req.Len(left, 1)
	req.Equal("u2", left[0]["userId"])
	room, ok := coord.Rooms.Get("R1")
	req.True(ok)
	req.False(room.Contains("c2"))
	req.Equal(1, room.MemberCount())

	// And when the last member disconnects the room itself vanishes
	coord.OnDisconnect("c1")
	_, ok = coord.Rooms.Get("R1")
	req.False(ok)
	req.Equal(0, coord.Registry.Len())
}

func TestCoordinator_Disconnect_FiresSafelyTwice(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	sigA := connect(t, coord, "c1", "u1", "A", "R1")
	connect(t, coord, "c2", "u2", "B", "R1")

	// When the transport layer reports the same closure twice
	coord.OnDisconnect("c2")
	coord.OnDisconnect("c2")

	// Then cleanup still broadcasts exactly once
	req.Len(sigA.eventsOfType(t, "presenceLeft"), 1)
}

func TestCoordinator_Snapshot_SurvivesStoreFailure(t *testing.T) {
	req := require.New(t)
	coord := NewCoordinator(NewRegistry(), NewRoomManager(), failingStore{})

	// When a member joins while the durable store is down
	sig := connect(t, coord, "c1", "u1", "A", "R1")

	// Then the snapshot still arrives, with the live view only
	snaps := sig.eventsOfType(t, "roomSnapshot")
	req.Len(snaps, 1)
	req.Len(snaps[0]["liveConnections"].([]any), 1)
}

func TestCoordinator_EndToEndScenario(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	// Given tutor A and student B joining room R1 in order
	sigA := connect(t, coord, "cA", "t1", "Tutor", "R1")
	sigB := connect(t, coord, "cB", "s1", "Student", "R1")

	// Then A was alone at join time and later saw B arrive
	joinsSeenByA := sigA.eventsOfType(t, "presenceJoined")
	req.Len(joinsSeenByA, 1)
	req.Equal("s1", joinsSeenByA[0]["userId"])

	// And B's snapshot shows A already present
	snapB := sigB.eventsOfType(t, "roomSnapshot")[0]
	req.Len(snapB["liveConnections"].([]any), 2)

	// When A sends B an offer
	payload := []byte(`{"type":"offer","sdp":"v=0..."}`)
	req.NoError(coord.Relay("cA", "R1", "s1", domain.NegotiationOffer, payload))

	// Then exactly B receives it, annotated with A's identity
	negs := sigB.eventsOfType(t, "negotiate")
	req.Len(negs, 1)
	req.Equal("t1", negs[0]["fromUserId"])
	req.Equal("offer", negs[0]["kind"])
	req.Empty(sigA.eventsOfType(t, "negotiate"))

	// When B chats
	req.NoError(coord.ChatSend("cB", "R1", "hello"))
	chatsA := sigA.eventsOfType(t, "chatMessage")
	req.Len(chatsA, 1)
	req.Equal("hello", chatsA[0]["text"])
	req.Empty(sigB.eventsOfType(t, "chatMessage"))

	// When B's transport closes
	coord.OnDisconnect("cB")
	left := sigA.eventsOfType(t, "presenceLeft")
	req.Len(left, 1)
	req.Equal("s1", left[0]["userId"])
	room, ok := coord.Rooms.Get("R1")
	req.True(ok)
	req.Equal(1, room.MemberCount())
	req.True(room.Contains("cA"))
}

func TestCoordinator_SlowConsumerGetsCanceled(t *testing.T) {
	req := require.New(t)
	coord := newTestCoordinator()

	// Given a member whose outbound buffer is permanently full
	slow := &fakeSignal{full: true}
	canceled := false
	coord.Registry.Register("c1", slow, func() { canceled = true })
	user, _ := domain.NewUser("u1", "A")
	req.NoError(coord.Join(context.Background(), "c1", user, "R1"))

	// Then the first delivery that hits the full buffer (its own room
	// snapshot) triggers the kick policy, which cancels the connection
	req.True(canceled)
}

func TestRegistry_BindIsImmutable(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	reg.Register("c1", &fakeSignal{}, nil)
	user, _ := domain.NewUser("u1", "A")

	// Given a bound connection
	p, err := reg.Bind("c1", user, "R1")
	req.NoError(err)
	req.Equal(core.ConnID("c1"), p.Conn)

	// When binding again, even to the same room
	_, err = reg.Bind("c1", user, "R1")

	// Then the rebind is rejected
	req.ErrorIs(err, domain.ErrAlreadyBound)
}

func TestRegistry_BindUnknownConnection(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	user, _ := domain.NewUser("u1", "A")

	_, err := reg.Bind("ghost", user, "R1")
	req.ErrorIs(err, domain.ErrConnectionNotFound)
}
