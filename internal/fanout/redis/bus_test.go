package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/fanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := NewBus(rc, slog.Default())
	received := make(chan *fanout.BusMessage, 1)
	require.NoError(t, b.Subscribe(ctx, func(msg *fanout.BusMessage) {
		received <- msg
	}))

	require.NoError(t, b.Publish(ctx, &fanout.BusMessage{
		Origin:   "instance-1",
		RoomCode: "ABC123",
		Exclude:  []string{"c1"},
		Data:     json.RawMessage(`{"type":"chat-message"}`),
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "instance-1", msg.Origin)
		assert.Equal(t, "ABC123", msg.RoomCode)
		assert.Equal(t, []string{"c1"}, msg.Exclude)
		assert.JSONEq(t, `{"type":"chat-message"}`, string(msg.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("bus message was not delivered")
	}
}

func TestHubsOverBus(t *testing.T) {
	s := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	newHub := func() *fanout.Hub {
		rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { rc.Close() })
		h := fanout.New(NewBus(rc, slog.Default()), slog.Default())
		require.NoError(t, h.Start(ctx))
		return h
	}

	h1, h2 := newHub(), newHub()
	remote := &chanSender{out: make(chan []byte, 1)}
	h2.Attach("b", remote)
	h2.Join("ABC123", "b")

	require.NoError(t, h1.BroadcastToRoom(ctx, "ABC123", map[string]string{"type": "room-ended"}))

	select {
	case data := <-remote.out:
		assert.JSONEq(t, `{"type":"room-ended"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("remote hub did not deliver")
	}
}

func TestMemberLeaveOverBus(t *testing.T) {
	s := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	newHub := func() *fanout.Hub {
		rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { rc.Close() })
		h := fanout.New(NewBus(rc, slog.Default()), slog.Default())
		require.NoError(t, h.Start(ctx))
		return h
	}

	h1, h2 := newHub(), newHub()
	leaverLocal := &chanSender{out: make(chan []byte, 4)}
	h1.Attach("conn-b1", leaverLocal)
	h1.Join("ABC123", "conn-b1")

	leaverRemote := &chanSender{out: make(chan []byte, 4)}
	stayer := &chanSender{out: make(chan []byte, 4)}
	h2.Attach("conn-b2", leaverRemote)
	h2.Attach("conn-c2", stayer)
	h2.Join("ABC123", "conn-b2")
	h2.Join("ABC123", "conn-c2")

	var leftRoom, leftUser string
	h2.SetMemberLeaveHandler(func(roomCode, userId string) []string {
		leftRoom, leftUser = roomCode, userId
		if userId == "b" {
			return []string{"conn-b2"}
		}
		return nil
	})

	h1.LeaveMember(ctx, "ABC123", "b", "conn-b1")
	require.NoError(t, h1.BroadcastToRoom(ctx, "ABC123", map[string]string{"type": "participant-left"}))

	select {
	case data := <-stayer.out:
		assert.JSONEq(t, `{"type":"participant-left"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("remote hub did not deliver")
	}

	// the leave notice is handled before the broadcast published after it
	assert.Equal(t, "ABC123", leftRoom)
	assert.Equal(t, "b", leftUser)
	assert.Empty(t, leaverRemote.out)
	assert.Empty(t, leaverLocal.out)
}

type chanSender struct {
	out chan []byte
}

func (s *chanSender) Send(data []byte) bool {
	select {
	case s.out <- data:
		return true
	default:
		return false
	}
}
