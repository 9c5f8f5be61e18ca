package http

import (
	"context"
	"net/http"

	"github.com/avelk/Parley/internal/adapters/auth"
	"github.com/avelk/Parley/internal/adapters/ws"
	"github.com/avelk/Parley/internal/app/gateway"
	"github.com/avelk/Parley/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GuestMiddleware mints a stable per-browser guest identity into the
// cookie session. Only wired in non-release mode; real deployments rely
// on bearer tokens from the account service.
func GuestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get("guest_token").(string)
		if token == "" {
			token = auth.GuestPrefix + uuid.NewString()
			session.Set("guest_token", token)
			if err := session.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save guest session")
			}
		}
		c.Set("guest_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, gw *gateway.Gateway, ctl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ParleySessions", store))
	if cfg.Mode != "release" {
		r.Use(GuestMiddleware())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": gw.ConnectionCount(),
		})
	})

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": gw.Rooms()})
	})

	api.GET("/online", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": gw.OnlineUsers()})
	})

	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Msg("ws endpoint hit")
		ctl.HandleSocket(ctx, c)
	})

	return r
}
