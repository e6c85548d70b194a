package inmemory

import (
	"log/slog"
	"testing"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	r := NewRepo(slog.Default())
	entry := connection.Entry{RoomCode: "ABC123", UserId: "a"}

	require.NoError(t, r.Register("c1", entry))
	require.NoError(t, r.Register("c1", entry), "same entry must be idempotent")

	err := r.Register("c1", connection.Entry{RoomCode: "OTHER1", UserId: "a"})
	assert.ErrorIs(t, err, connection.ErrAlreadyExists)

	got, err := r.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, entry, got)
	assert.Equal(t, 1, r.count())
}

func TestUnregister(t *testing.T) {
	r := NewRepo(slog.Default())
	require.NoError(t, r.Register("c1", connection.Entry{RoomCode: "ABC123", UserId: "a"}))

	entry, err := r.Unregister("c1")
	require.NoError(t, err)
	assert.Equal(t, connection.Entry{RoomCode: "ABC123", UserId: "a"}, entry)
	assert.Empty(t, r.GetConnIdsByMember("ABC123", "a"))

	_, err = r.Unregister("c1")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	_, err = r.Get("c1")
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestUnregisterMember(t *testing.T) {
	r := NewRepo(slog.Default())
	require.NoError(t, r.Register("a1", connection.Entry{RoomCode: "ABC123", UserId: "a"}))
	require.NoError(t, r.Register("a2", connection.Entry{RoomCode: "ABC123", UserId: "a"}))
	require.NoError(t, r.Register("b1", connection.Entry{RoomCode: "ABC123", UserId: "b"}))
	require.NoError(t, r.Register("a3", connection.Entry{RoomCode: "OTHER1", UserId: "a"}))

	connIds := r.UnregisterMember("ABC123", "a")
	assert.ElementsMatch(t, []string{"a1", "a2"}, connIds)
	assert.Empty(t, r.GetConnIdsByMember("ABC123", "a"))
	assert.Equal(t, []string{"b1"}, r.GetConnIdsByMember("ABC123", "b"))
	assert.Equal(t, []string{"a3"}, r.GetConnIdsByMember("OTHER1", "a"))
}

func TestUnregisterRoom(t *testing.T) {
	r := NewRepo(slog.Default())
	require.NoError(t, r.Register("a1", connection.Entry{RoomCode: "ABC123", UserId: "a"}))
	require.NoError(t, r.Register("b1", connection.Entry{RoomCode: "ABC123", UserId: "b"}))
	require.NoError(t, r.Register("c1", connection.Entry{RoomCode: "OTHER1", UserId: "c"}))

	connIds := r.UnregisterRoom("ABC123")
	assert.ElementsMatch(t, []string{"a1", "b1"}, connIds)
	assert.Empty(t, r.GetConnIdsByMember("ABC123", "a"))
	assert.Empty(t, r.GetConnIdsByMember("ABC123", "b"))
	assert.Equal(t, 1, r.count())

	_, err := r.Get("a1")
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestGetConnIdsByMember(t *testing.T) {
	r := NewRepo(slog.Default())
	require.NoError(t, r.Register("tab-2", connection.Entry{RoomCode: "ABC123", UserId: "a"}))
	require.NoError(t, r.Register("tab-1", connection.Entry{RoomCode: "ABC123", UserId: "a"}))
	require.NoError(t, r.Register("tab-3", connection.Entry{RoomCode: "ABC123", UserId: "b"}))

	assert.Equal(t, []string{"tab-1", "tab-2"}, r.GetConnIdsByMember("ABC123", "a"))
	assert.Empty(t, r.GetConnIdsByMember("NOPE00", "a"))
}
