package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/controller"
	"github.com/sharetube/watchparty/internal/fanout"
	fanoutRedis "github.com/sharetube/watchparty/internal/fanout/redis"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	roomRedis "github.com/sharetube/watchparty/internal/repository/room/redis"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/calltoken"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/redisclient"
)

const (
	FanoutModeLocal = "local"
	FanoutModeRedis = "redis"

	roomCodeLength = 6
)

type AppConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	LogLevel      string        `json:"log_level"`
	RoomLifetime  time.Duration `json:"room_lifetime"`
	SweepInterval time.Duration `json:"sweep_interval"`
	CodeAttempts  int           `json:"code_attempts"`
	ChatMaxLength int           `json:"chat_max_length"`
	WSPongWait    time.Duration `json:"ws_pong_wait"`
	WSSendBuffer  int           `json:"ws_send_buffer"`
	WSReadLimit   int64         `json:"ws_read_limit"`
	FanoutMode    string        `json:"fanout_mode"`
	CallAPIKey    string        `json:"call_api_key"`
	CallSecret    string        `json:"-"`
	CallTokenTTL  time.Duration `json:"call_token_ttl"`
	RedisHost     string        `json:"redis_host"`
	RedisPort     int           `json:"redis_port"`
	RedisPassword string        `json:"-"`
	RedisDB       int           `json:"redis_db"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.RoomLifetime <= 0 {
		return fmt.Errorf("room lifetime must be greater than 0")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be greater than 0")
	}
	if cfg.CodeAttempts < 1 {
		return fmt.Errorf("code attempts must be greater than 0")
	}
	if cfg.ChatMaxLength < 1 {
		return fmt.Errorf("chat max length must be greater than 0")
	}
	if cfg.WSPongWait <= 0 {
		return fmt.Errorf("websocket pong wait must be greater than 0")
	}
	if cfg.WSSendBuffer < 1 {
		return fmt.Errorf("websocket send buffer must be greater than 0")
	}
	if cfg.WSReadLimit < 1 {
		return fmt.Errorf("websocket read limit must be greater than 0")
	}
	if cfg.FanoutMode != FanoutModeLocal && cfg.FanoutMode != FanoutModeRedis {
		return fmt.Errorf("fanout mode must be %q or %q", FanoutModeLocal, FanoutModeRedis)
	}
	if (cfg.CallAPIKey == "") != (cfg.CallSecret == "") {
		return fmt.Errorf("call api key and call secret must be set together")
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

type sweeper interface {
	SweepExpiredRooms(ctx context.Context) (int, error)
}

func runSweeper(ctx context.Context, s sweeper, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.SweepExpiredRooms(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "failed to sweep expired rooms", "error", err)
			}
			if removed > 0 {
				logger.InfoContext(ctx, "expired rooms swept", "count", removed)
			}
		}
	}
}

// newHandler wires every layer on top of rc and starts the background workers bound to ctx.
func newHandler(ctx context.Context, cfg *AppConfig, rc *redis.Client, logger *slog.Logger) (http.Handler, error) {
	var bus fanout.Bus
	if cfg.FanoutMode == FanoutModeRedis {
		bus = fanoutRedis.NewBus(rc, logger)
	}

	hub := fanout.New(bus, logger)
	connectionRepo := inmemory.NewRepo(logger)
	hub.SetDisbandHandler(func(roomCode string, connIds []string) {
		connectionRepo.UnregisterRoom(roomCode)
		logger.InfoContext(ctx, "room disbanded by peer instance", "room_code", roomCode, "connections", len(connIds))
	})
	hub.SetMemberLeaveHandler(connectionRepo.UnregisterMember)
	if err := hub.Start(ctx); err != nil {
		return nil, err
	}

	roomRepo := roomRedis.NewRepo(rc, cfg.RoomLifetime, logger)
	roomService := room.NewService(roomRepo, connectionRepo, hub, &room.Config{
		RoomLifetime:  cfg.RoomLifetime,
		CodeLength:    roomCodeLength,
		CodeAttempts:  cfg.CodeAttempts,
		ChatMaxLength: cfg.ChatMaxLength,
	}, logger)
	go runSweeper(ctx, roomService, cfg.SweepInterval, logger)

	callTokens := calltoken.New(cfg.CallAPIKey, cfg.CallSecret, cfg.CallTokenTTL)
	controller := controller.NewController(roomService, hub, callTokens, &controller.Config{
		PongWait:   cfg.WSPongWait,
		SendBuffer: cfg.WSSendBuffer,
		ReadLimit:  cfg.WSReadLimit,
	}, logger)

	return controller.GetMux(), nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	handler, err := newHandler(serverCtx, cfg, rc, logger)
	if err != nil {
		return err
	}
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: handler}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "fanout_mode", cfg.FanoutMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-serverCtx.Done()

	return nil
}
