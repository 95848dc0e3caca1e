package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/domain"
)

// Coordinator orchestrates the presence protocol: admitting connections
// into rooms, synchronizing newcomers with existing members, relaying
// negotiation messages and chat, and cleaning up on disconnect.
type Coordinator struct {
	Registry *Registry
	Rooms    core.RoomManager
	Store    core.SessionStore
	Policy   Policy

	// PersistTimeout bounds the async chat append to the session store.
	PersistTimeout time.Duration
}

func NewCoordinator(reg *Registry, rooms core.RoomManager, store core.SessionStore) *Coordinator {
	return &Coordinator{
		Registry:       reg,
		Rooms:          rooms,
		Store:          store,
		Policy:         SimplePolicy{},
		PersistTimeout: 5 * time.Second,
	}
}

// Join runs the join protocol. The existing-member snapshot and the add are
// one atomic step on the room, so concurrent joins always notify each other.
func (c *Coordinator) Join(ctx context.Context, cid core.ConnID, user domain.User, roomID domain.RoomID) error {
	p, err := c.Registry.Bind(cid, user, roomID)
	if err != nil {
		return err
	}

	// A concurrent last-leave can retire the room between resolve and add;
	// the add fails on a retired room, so re-resolving always lands the
	// member in the live instance.
	var (
		room     core.RoomService
		existing []core.Participant
	)
	for {
		room = c.Rooms.GetOrCreate(roomID)
		var ok bool
		if existing, ok = room.AddMember(p); ok {
			break
		}
	}
	now := time.Now().UTC()

	// Existing members learn about the newcomer.
	c.fanout(existing, presenceJoined(p, now))

	// The newcomer is replayed one joined event per member already present:
	// presence is delivered as discrete events, so the arrival has to catch
	// up on who was there first.
	for _, m := range existing {
		c.send(p, presenceJoined(m, now))
	}

	c.send(p, c.snapshot(ctx, room))

	log.Info().Str("module", "app.coordinator").Str("cid", string(cid)).Str("user", string(user.ID)).Str("room", string(roomID)).Int("existing", len(existing)).Msg("joined room")
	return nil
}

// snapshot combines the live connections with the durable roster. The store
// is advisory here: a fetch failure degrades to live-only, never to an error.
func (c *Coordinator) snapshot(ctx context.Context, room core.RoomService) RoomSnapshotEvent {
	live := lo.Map(room.MembersSnapshot(), func(m core.Participant, _ int) core.MemberDTO {
		return core.MemberDTO{UserID: m.User.ID, DisplayName: m.User.DisplayName, ConnectionID: m.Conn}
	})

	var durable []core.MemberDTO
	if c.Store != nil {
		users, err := c.Store.DurableParticipants(ctx, room.ID())
		if err != nil {
			log.Warn().Err(err).Str("module", "app.coordinator").Str("room", string(room.ID())).Msg("durable roster unavailable")
		} else {
			durable = lo.Map(users, func(u domain.User, _ int) core.MemberDTO {
				return core.MemberDTO{UserID: u.ID, DisplayName: u.DisplayName}
			})
		}
	}

	return RoomSnapshotEvent{
		Type:            "roomSnapshot",
		RoomID:          room.ID(),
		Participants:    durable,
		LiveConnections: live,
	}
}

// LeaveRoom runs the leave protocol for an explicit request. Leaving a room
// the connection is not in is a no-op.
func (c *Coordinator) LeaveRoom(cid core.ConnID, roomID domain.RoomID) {
	p, ok := c.Registry.BindingOf(cid)
	if !ok || p.Room != roomID {
		return
	}
	c.leave(p)
}

// leave is the shared leave protocol, driven by both explicit requests and
// the lifecycle supervisor. Idempotent: running it twice for the same
// connection produces no second broadcast, which keeps the race between an
// explicit leave and disconnect detection harmless.
func (c *Coordinator) leave(p core.Participant) {
	room, ok := c.Rooms.Get(p.Room)
	if !ok {
		return
	}
	removed, remaining, empty := room.RemoveMember(p.Conn)
	if !removed {
		return
	}
	if empty {
		c.Rooms.Drop(p.Room)
	}
	c.fanout(remaining, presenceLeft(p))
	log.Info().Str("module", "app.coordinator").Str("cid", string(p.Conn)).Str("room", string(p.Room)).Bool("room_empty", empty).Msg("left room")
}

// OnDisconnect is the only cleanup path for abrupt closures and also runs
// after clean ones. Safe to fire more than once per connection.
func (c *Coordinator) OnDisconnect(cid core.ConnID) {
	if p, ok := c.Registry.BindingOf(cid); ok {
		c.leave(p)
	}
	c.Registry.Unregister(cid)
}
