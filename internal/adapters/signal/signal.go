// Package signal is the websocket transport adapter: it owns connections,
// their read/write pumps, and the envelope dispatch into the coordinator.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/app"
	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Gin context keys set by the router's middleware.
const (
	CtxUser        = "auth_user"
	CtxClientToken = "client_token"
)

type SignalWSController struct {
	Coord      *app.Coordinator
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int

	validate  *validator.Validate
	joinLimit *JoinRateLimiter
}

func NewSignalWSController(coord *app.Coordinator, readLimit int64, pingPeriod time.Duration, sendBuffer int) *SignalWSController {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &SignalWSController{
		Coord:      coord,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
		SendBuffer: sendBuffer,
		validate:   validator.New(),
		joinLimit:  NewJoinRateLimiter(10, time.Minute),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until its
// transport closes. Identity was already verified by the auth middleware;
// the connection id is minted here and never reused.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	userVal, ok := c.Get(CtxUser)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	user := userVal.(domain.User)
	cid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("user", string(user.ID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Registry.Register(cid, conn, cancel)

	clientToken := c.GetString(CtxClientToken)
	sess := &connSession{cid: cid, user: user, clientToken: clientToken}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sess, conn)
}

// connSession is the per-connection read-loop state: who this transport
// speaks for. The room binding itself lives in the registry.
type connSession struct {
	cid         core.ConnID
	user        domain.User
	clientToken string
}

// checkIdentity verifies a client-supplied user id against the one the
// token certified at upgrade time.
func (s *connSession) checkIdentity(claimed domain.UserID) error {
	if claimed != s.user.ID {
		return domain.ErrIdentityMismatch
	}
	return nil
}
