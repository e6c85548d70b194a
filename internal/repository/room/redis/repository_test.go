package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, 24*time.Hour, slog.Default()), s
}

func createTestRoom(t *testing.T, r *repo, code string) time.Time {
	t.Helper()
	createdAt := time.Now().Truncate(time.Millisecond)
	require.NoError(t, r.CreateRoom(context.Background(), &room.CreateRoomParams{
		Code:        code,
		HostId:      "host",
		DisplayName: "Host",
		AvatarToken: "avatar-1",
		CreatedAt:   createdAt,
	}))

	return createdAt
}

func TestCreateRoom(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	createdAt := createTestRoom(t, r, "ABC123")

	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", got.Code)
	assert.Equal(t, "host", got.HostId)
	assert.Equal(t, "", got.CurrentMediaRef)
	assert.False(t, got.IsPlaying)
	assert.Equal(t, 0.0, got.PlaybackTimestamp)
	assert.Nil(t, got.CallId)
	assert.Equal(t, createdAt.UnixMilli(), got.CreatedAt.UnixMilli())
	require.Len(t, got.Participants, 1)
	assert.Equal(t, room.Participant{
		UserId:      "host",
		DisplayName: "Host",
		AvatarToken: "avatar-1",
		IsHost:      true,
	}, got.Participants[0])

	assert.True(t, s.TTL("room:ABC123") > 0, "room key must expire")
	assert.True(t, s.TTL("room:ABC123:participant:host") > 0, "participant key must expire")

	err = r.CreateRoom(ctx, &room.CreateRoomParams{Code: "ABC123", HostId: "other", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, room.ErrRoomAlreadyExists)

	got, err = r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "host", got.HostId, "collision must not overwrite")
}

func TestGetRoomNotFound(t *testing.T) {
	r, _ := newTestRepo(t)

	_, err := r.GetRoom(context.Background(), "NOPE00")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestAddParticipant(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "ABC123")

	added, err := r.AddParticipant(ctx, &room.AddParticipantParams{
		Code:         "ABC123",
		UserId:       "b",
		DisplayName:  "Bob",
		ConnectionId: "conn-1",
	})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.AddParticipant(ctx, &room.AddParticipantParams{
		Code:         "ABC123",
		UserId:       "b",
		DisplayName:  "Renamed",
		ConnectionId: "conn-2",
	})
	require.NoError(t, err)
	assert.False(t, added)

	// host reconnecting keeps is_host
	added, err = r.AddParticipant(ctx, &room.AddParticipantParams{Code: "ABC123", UserId: "host", ConnectionId: "conn-3"})
	require.NoError(t, err)
	assert.False(t, added)

	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, got.Participants, 2)
	assert.Equal(t, "host", got.Participants[0].UserId)
	assert.True(t, got.Participants[0].IsHost)
	assert.Equal(t, "conn-3", got.Participants[0].ConnectionId)
	assert.Equal(t, "b", got.Participants[1].UserId)
	assert.Equal(t, "Bob", got.Participants[1].DisplayName)
	assert.Equal(t, "conn-2", got.Participants[1].ConnectionId)
	assert.False(t, got.Participants[1].IsHost)

	_, err = r.AddParticipant(ctx, &room.AddParticipantParams{Code: "NOPE00", UserId: "b"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestAddParticipantConcurrent(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "ABC123")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.AddParticipant(ctx, &room.AddParticipantParams{
				Code:         "ABC123",
				UserId:       fmt.Sprintf("user-%d", i%5),
				ConnectionId: fmt.Sprintf("conn-%d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Len(t, got.Participants, 6)
}

func TestRemoveParticipant(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "ABC123")
	_, err := r.AddParticipant(ctx, &room.AddParticipantParams{Code: "ABC123", UserId: "b"})
	require.NoError(t, err)

	require.NoError(t, r.RemoveParticipant(ctx, &room.RemoveParticipantParams{Code: "ABC123", UserId: "b"}))
	assert.False(t, s.Exists("room:ABC123:participant:b"))

	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, "host", got.Participants[0].UserId)

	err = r.RemoveParticipant(ctx, &room.RemoveParticipantParams{Code: "ABC123", UserId: "b"})
	assert.ErrorIs(t, err, room.ErrParticipantNotFound)
}

func TestUpdateRoom(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "ABC123")

	url := "video.example/1"
	playing := true
	require.NoError(t, r.UpdateRoom(ctx, &room.UpdateRoomParams{
		Code:            "ABC123",
		CurrentMediaRef: &url,
		IsPlaying:       &playing,
	}))

	callId := "call-1"
	require.NoError(t, r.UpdateRoom(ctx, &room.UpdateRoomParams{Code: "ABC123", CallId: &callId}))

	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, url, got.CurrentMediaRef)
	assert.True(t, got.IsPlaying)
	require.NotNil(t, got.CallId)
	assert.Equal(t, callId, *got.CallId)

	err = r.UpdateRoom(ctx, &room.UpdateRoomParams{Code: "NOPE00", CurrentMediaRef: &url})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestClearParticipantConnection(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "ABC123")
	_, err := r.AddParticipant(ctx, &room.AddParticipantParams{Code: "ABC123", UserId: "b", ConnectionId: "new"})
	require.NoError(t, err)

	cleared, err := r.ClearParticipantConnection(ctx, &room.ClearParticipantConnectionParams{
		Code: "ABC123", UserId: "b", ConnectionId: "old",
	})
	require.NoError(t, err)
	assert.False(t, cleared, "stale connection must not clear a newer one")

	cleared, err = r.ClearParticipantConnection(ctx, &room.ClearParticipantConnectionParams{
		Code: "ABC123", UserId: "b", ConnectionId: "new",
	})
	require.NoError(t, err)
	assert.True(t, cleared)

	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	p, ok := got.Participant("b")
	require.True(t, ok)
	assert.Empty(t, p.ConnectionId)
}

func TestClearParticipantConnectionHandsOver(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "ABC123")
	_, err := r.AddParticipant(ctx, &room.AddParticipantParams{Code: "ABC123", UserId: "b", ConnectionId: "tab-2"})
	require.NoError(t, err)

	replaced, err := r.ClearParticipantConnection(ctx, &room.ClearParticipantConnectionParams{
		Code: "ABC123", UserId: "b", ConnectionId: "tab-2", NextConnectionId: "tab-1",
	})
	require.NoError(t, err)
	assert.True(t, replaced)

	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	p, ok := got.Participant("b")
	require.True(t, ok)
	assert.Equal(t, "tab-1", p.ConnectionId)
}

func TestDeleteRoom(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	createTestRoom(t, r, "ABC123")
	_, err := r.AddParticipant(ctx, &room.AddParticipantParams{Code: "ABC123", UserId: "b"})
	require.NoError(t, err)

	require.NoError(t, r.DeleteRoom(ctx, "ABC123"))
	for _, key := range []string{
		"room:ABC123",
		"room:ABC123:participants",
		"room:ABC123:participant:host",
		"room:ABC123:participant:b",
	} {
		assert.False(t, s.Exists(key), "key %s must be removed", key)
	}
	codes, err := r.GetRoomCodesCreatedUntil(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, codes)

	assert.ErrorIs(t, r.DeleteRoom(ctx, "ABC123"), room.ErrRoomNotFound)

	// recreated room starts clean
	createTestRoom(t, r, "ABC123")
	got, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)
}

func TestGetRoomCodesCreatedUntil(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Millisecond)
	for i, code := range []string{"AAAAAA", "BBBBBB", "CCCCCC"} {
		require.NoError(t, r.CreateRoom(ctx, &room.CreateRoomParams{
			Code:      code,
			HostId:    "h",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	codes, err := r.GetRoomCodesCreatedUntil(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAAAAA", "BBBBBB"}, codes)
}
