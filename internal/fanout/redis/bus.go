package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/fanout"
)

type bus struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewBus(rc *redis.Client, logger *slog.Logger) *bus {
	return &bus{rc: rc, logger: logger}
}

func channel(roomCode string) string { return "party:" + roomCode }

func (b *bus) Publish(ctx context.Context, msg *fanout.BusMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal bus message: %w", err)
	}

	return b.rc.Publish(ctx, channel(msg.RoomCode), raw).Err()
}

func (b *bus) Subscribe(ctx context.Context, fn func(*fanout.BusMessage)) error {
	pubsub := b.rc.PSubscribe(ctx, channel("*"))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var bm fanout.BusMessage
				if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
					b.logger.WarnContext(ctx, "failed to decode bus message", "channel", msg.Channel, "error", err)
					continue
				}

				if bm.RoomCode != "" {
					fn(&bm)
				}
			}
		}
	}()

	return nil
}
