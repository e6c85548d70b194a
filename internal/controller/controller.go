package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/fanout"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	GetRoom(ctx context.Context, code string) (room.Room, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	ChangeMedia(context.Context, *room.ChangeMediaParams) error
	SyncPlayback(context.Context, *room.SyncPlaybackParams) error
	SendChatMessage(context.Context, *room.SendChatMessageParams) error
	SendReaction(context.Context, *room.SendReactionParams) error
	AnnounceCallId(context.Context, *room.AnnounceCallIdParams) error
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	EndRoom(context.Context, *room.EndRoomParams) error
	DisconnectMember(ctx context.Context, connId string) error
}

type iHub interface {
	Attach(connId string, sender fanout.Sender)
	Detach(connId string)
	SendToConn(connId string, msg any) error
}

type iCallTokenIssuer interface {
	Issue(permissions ...string) (string, error)
}

type Config struct {
	PongWait   time.Duration
	SendBuffer int
	ReadLimit  int64
}

type controller struct {
	roomService iRoomService
	hub         iHub
	callTokens  iCallTokenIssuer
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	wsConfig    Config
	logger      *slog.Logger
}

func NewController(roomService iRoomService, hub iHub, callTokens iCallTokenIssuer, cfg *Config, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		hub:         hub,
		callTokens:  callTokens,
		validate:    validator.NewValidator(),
		wsConfig:    *cfg,
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
