package controller

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdMw(), c.wsLoggerMw())
	mux.SetErrorHandler(func(ctx context.Context, _ *websocket.Conn, messageType string, err error) {
		c.writeError(ctx, messageType, err)
	})

	// membership
	wsrouter.Handle(mux, "join", c.handleJoin)
	wsrouter.Handle(mux, "leave", c.handleLeave)
	wsrouter.Handle(mux, "end", c.handleEnd)

	// playback
	wsrouter.Handle(mux, "media-change", c.handleMediaChange)
	wsrouter.Handle(mux, "playback-sync", c.handlePlaybackSync)

	// ephemeral
	wsrouter.Handle(mux, "chat-message", c.handleChatMessage)
	wsrouter.Handle(mux, "reaction", c.handleReaction)
	wsrouter.Handle(mux, "call-id-announce", c.handleCallIdAnnounce)

	return mux
}
