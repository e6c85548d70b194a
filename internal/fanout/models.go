package fanout

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrConnNotFound = errors.New("connection not attached")

// Sender is a live connection. Send must not block and reports whether the message was queued.
type Sender interface {
	Send(data []byte) bool
}

// BusMessage carries a room broadcast between server instances.
type BusMessage struct {
	Origin   string          `json:"origin"`
	RoomCode string          `json:"roomCode"`
	Exclude  []string        `json:"exclude,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Disband  bool            `json:"disband,omitempty"`

	// LeaveUserId detaches every local connection of that user from the room before later deliveries.
	LeaveUserId string `json:"leaveUserId,omitempty"`
}

type Bus interface {
	Publish(ctx context.Context, msg *BusMessage) error
	// Subscribe returns once the subscription is active and calls fn from a background goroutine until ctx is done.
	Subscribe(ctx context.Context, fn func(*BusMessage)) error
}
