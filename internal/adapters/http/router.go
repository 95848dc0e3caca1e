package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tutorlink/live/internal/adapters/signal"
	"github.com/tutorlink/live/internal/app"
	"github.com/tutorlink/live/internal/config"
	"github.com/tutorlink/live/internal/core"
	"github.com/tutorlink/live/internal/domain"
)

// ClientTokenMiddleware tags each browser with a stable token, used for
// join rate limiting and log correlation. It is not an identity.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set(signal.CtxClientToken, token)
		c.Next()
	}
}

// AuthMiddleware verifies the bearer token before any signaling is allowed.
// Browsers cannot set headers on websocket upgrades, so the token is also
// accepted as a query parameter.
func AuthMiddleware(verifier core.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			header := c.GetHeader("Authorization")
			if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				raw = parts[1]
			}
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		user, err := verifier.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(signal.CtxUser, user)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator, verifier core.TokenVerifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("TutorLinkLive", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	ctl := signal.NewSignalWSController(coord, cfg.ReadLimit, cfg.PingPeriod, cfg.SendBuffer)

	api := r.Group("/api")
	api.Use(AuthMiddleware(verifier))

	// Read-only room inspection. Rooms only come into being through joins.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": coord.Rooms.List()})
	})

	api.GET("/rooms/:id", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		room, ok := coord.Rooms.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not active"})
			return
		}
		members := make([]core.MemberDTO, 0, room.MemberCount())
		for _, m := range room.MembersSnapshot() {
			members = append(members, core.MemberDTO{UserID: m.User.ID, DisplayName: m.User.DisplayName, ConnectionID: m.Conn})
		}
		c.JSON(http.StatusOK, gin.H{
			"roomId":      id,
			"memberCount": len(members),
			"members":     members,
		})
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString(signal.CtxClientToken)).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}
