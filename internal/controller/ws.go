package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

func (c controller) pingPeriod() time.Duration {
	return c.wsConfig.PongWait * 9 / 10
}

func (c controller) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	connId := uuid.NewString()
	ctx := context.WithValue(r.Context(), connIdCtxKey, connId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", connId))

	cl := newClient(connId, conn, c.wsConfig.SendBuffer)
	c.hub.Attach(connId, cl)
	go cl.writePump(c.pingPeriod())

	defer func() {
		if err := c.roomService.DisconnectMember(context.WithoutCancel(ctx), connId); err != nil {
			c.logger.WarnContext(ctx, "failed to disconnect member", "error", err)
		}
		c.hub.Detach(connId)
		cl.close()
		c.logger.InfoContext(ctx, "websocket connection closed")
	}()

	conn.SetReadLimit(c.wsConfig.ReadLimit)
	conn.SetReadDeadline(time.Now().Add(c.wsConfig.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.wsConfig.PongWait))
	})

	c.logger.InfoContext(ctx, "websocket connection opened")

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			c.logger.InfoContext(ctx, "websocket read failed", "error", err)
		}
	}
}
