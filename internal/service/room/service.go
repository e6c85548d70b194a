package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/sharetube/watchparty/internal/repository/connection"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/randstr"
)

type iRoomRepo interface {
	CreateRoom(context.Context, *roomrepo.CreateRoomParams) error
	GetRoom(ctx context.Context, code string) (roomrepo.Room, error)
	UpdateRoom(context.Context, *roomrepo.UpdateRoomParams) error
	AddParticipant(context.Context, *roomrepo.AddParticipantParams) (bool, error)
	RemoveParticipant(context.Context, *roomrepo.RemoveParticipantParams) error
	ClearParticipantConnection(context.Context, *roomrepo.ClearParticipantConnectionParams) (bool, error)
	DeleteRoom(ctx context.Context, code string) error
	GetRoomCodesCreatedUntil(ctx context.Context, until time.Time) ([]string, error)
}

type iConnRepo interface {
	Register(connId string, entry connection.Entry) error
	Get(connId string) (connection.Entry, error)
	Unregister(connId string) (connection.Entry, error)
	UnregisterMember(roomCode, userId string) []string
	UnregisterRoom(roomCode string) []string
	GetConnIdsByMember(roomCode, userId string) []string
}

type iFanout interface {
	Join(roomCode, connId string)
	Leave(connIds ...string)
	LeaveMember(ctx context.Context, roomCode, userId string, connIds ...string)
	BroadcastToRoom(ctx context.Context, roomCode string, msg any, exclude ...string) error
	SendToConn(connId string, msg any) error
	DisbandRoom(ctx context.Context, roomCode string) []string
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	RoomLifetime  time.Duration
	CodeLength    int
	CodeAttempts  int
	ChatMaxLength int
}

type service struct {
	roomRepo      iRoomRepo
	connRepo      iConnRepo
	fanout        iFanout
	generator     iGenerator
	now           func() time.Time
	lifetime      time.Duration
	codeLength    int
	codeAttempts  int
	chatMaxLength int
	logger        *slog.Logger
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, fanout iFanout, cfg *Config, logger *slog.Logger) *service {
	return &service{
		roomRepo:      roomRepo,
		connRepo:      connRepo,
		fanout:        fanout,
		generator:     randstr.New([]byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")),
		now:           time.Now,
		lifetime:      cfg.RoomLifetime,
		codeLength:    cfg.CodeLength,
		codeAttempts:  cfg.CodeAttempts,
		chatMaxLength: cfg.ChatMaxLength,
		logger:        logger,
	}
}
