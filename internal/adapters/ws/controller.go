package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/avelk/Parley/internal/app/gateway"
	"github.com/avelk/Parley/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Controller struct {
	gw         *gateway.Gateway
	readLimit  int64
	pingPeriod time.Duration
	sendBuffer int
}

func NewController(gw *gateway.Gateway, readLimit int64, pingPeriod time.Duration, sendBuffer int) *Controller {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{
		gw:         gw,
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
		sendBuffer: sendBuffer,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSocket upgrades the request and runs the connection lifecycle.
// Identity is established before anything is registered; failed auth
// closes the socket with a policy-violation frame and no state changes.
func (ctl *Controller) HandleSocket(ctx context.Context, c *gin.Context) {
	token := bearerToken(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}

	conn := newConn(ws, ctl.sendBuffer)
	sess, err := ctl.gw.Connect(ctx, conn, core.Credentials{Token: token})
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("connect rejected")
		deadline := time.Now().Add(2 * time.Second)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"), deadline)
		_ = ws.Close()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sess, conn)
		ctl.gw.Disconnect(sess, "transport closed")
	}()
}

// bearerToken pulls credentials from the Authorization header, the token
// query parameter, or the guest identity minted by the session
// middleware, in that order.
func bearerToken(c *gin.Context) string {
	if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
	}
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	return c.GetString("guest_token")
}
