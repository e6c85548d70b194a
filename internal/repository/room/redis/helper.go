package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil && err != redis.Nil {
				return err
			}
		}

		return err
	}

	return nil
}

func (r repo) ttlMs() int64 {
	return r.ttl.Milliseconds()
}

func (r repo) fieldToBool(field string) bool {
	return field == "1"
}

func (r repo) fieldToFloat64(field string) float64 {
	f, _ := strconv.ParseFloat(field, 64)
	return f
}

func (r repo) fieldToTime(field string) time.Time {
	ms, _ := strconv.ParseInt(field, 10, 64)
	return time.UnixMilli(ms)
}
