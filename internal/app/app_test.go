package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type output struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func testConfig() *AppConfig {
	return &AppConfig{
		Host:          "127.0.0.1",
		Port:          8080,
		LogLevel:      "DEBUG",
		RoomLifetime:  time.Hour,
		SweepInterval: time.Minute,
		CodeAttempts:  10,
		ChatMaxLength: 1000,
		WSPongWait:    time.Minute,
		WSSendBuffer:  16,
		WSReadLimit:   16384,
		FanoutMode:    FanoutModeLocal,
		CallTokenTTL:  time.Hour,
	}
}

func newTestServer(t *testing.T, cfg *AppConfig) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler, err := newHandler(ctx, cfg, rc, slog.Default())
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

func createRoom(t *testing.T, srv *httptest.Server, hostId string) string {
	t.Helper()

	body := bytes.NewBufferString(`{"hostId":"` + hostId + `","username":"Host","avatar":"a1"}`)
	resp, err := http.Post(srv.URL+"/api/v1/rooms", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var envelope struct {
		Data struct {
			RoomCode string `json:"roomCode"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.RoomCode, 6)

	return envelope.Data.RoomCode
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, messageType string, payload any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": messageType, "payload": payload}))
}

func read(t *testing.T, conn *websocket.Conn) output {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var out output
	require.NoError(t, conn.ReadJSON(&out))

	return out
}

func join(t *testing.T, conn *websocket.Conn, roomCode, userId, username string) {
	t.Helper()

	send(t, conn, "join", map[string]any{
		"roomCode": roomCode,
		"user":     map[string]string{"id": userId, "username": username, "avatar": ""},
	})
	assert.Equal(t, "roster-updated", read(t, conn).Type)
	assert.Equal(t, "sync:state", read(t, conn).Type)
}

func TestWatchParty(t *testing.T) {
	srv := newTestServer(t, testConfig())
	code := createRoom(t, srv, "host-1")

	host := dial(t, srv)
	join(t, host, code, "host-1", "Host")

	guest := dial(t, srv)
	join(t, guest, code, "guest-1", "Guest")

	roster := read(t, host)
	require.Equal(t, "roster-updated", roster.Type)
	var room struct {
		Participants []struct {
			UserId   string `json:"userId"`
			IsHost   bool   `json:"isHost"`
			IsOnline bool   `json:"isOnline"`
		} `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(roster.Payload, &room))
	require.Len(t, room.Participants, 2)
	assert.True(t, room.Participants[0].IsHost)
	assert.True(t, room.Participants[1].IsOnline)

	// host changes media, everyone including the host hears it
	send(t, host, "media-change", map[string]string{"roomCode": code, "url": "https://example.com/v/1"})
	for _, conn := range []*websocket.Conn{host, guest} {
		out := read(t, conn)
		assert.Equal(t, "media-change", out.Type)
		assert.JSONEq(t, `"https://example.com/v/1"`, string(out.Payload))
	}

	// a guest cannot change media
	send(t, guest, "media-change", map[string]string{"roomCode": code, "url": "https://example.com/v/2"})
	out := read(t, guest)
	require.Equal(t, "error", out.Type)
	assert.JSONEq(t, `{"code":"UNAUTHORIZED","message":"permission denied","event":"media-change"}`, string(out.Payload))

	// playback sync is relayed verbatim to the others only
	send(t, guest, "playback-sync", map[string]any{"roomCode": code, "state": map[string]any{"isPlaying": false, "timestamp": 12.5}})
	out = read(t, host)
	assert.Equal(t, "playback-sync", out.Type)
	assert.JSONEq(t, `{"isPlaying":false,"timestamp":12.5}`, string(out.Payload))

	send(t, guest, "reaction", map[string]string{"roomCode": code, "emoji": "🎉"})
	out = read(t, host)
	assert.Equal(t, "reaction", out.Type)
	assert.Contains(t, string(out.Payload), `"emoji":"🎉"`)

	send(t, guest, "bogus", map[string]string{})
	out = read(t, guest)
	require.Equal(t, "error", out.Type)
	assert.Contains(t, string(out.Payload), `"code":"VALIDATION_ERROR"`)

	resp, err := http.Get(srv.URL + "/api/v1/rooms/" + strings.ToLower(code))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var envelope struct {
		Data struct {
			CurrentUrl string `json:"currentUrl"`
			IsPlaying  bool   `json:"isPlaying"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "https://example.com/v/1", envelope.Data.CurrentUrl)
	assert.True(t, envelope.Data.IsPlaying)

	send(t, host, "end", map[string]string{"roomCode": code})
	assert.Equal(t, "room-ended", read(t, guest).Type)
	assert.Equal(t, "room-ended", read(t, host).Type)

	resp, err = http.Get(srv.URL + "/api/v1/rooms/" + code)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJoinUnknownRoom(t *testing.T) {
	srv := newTestServer(t, testConfig())

	conn := dial(t, srv)
	send(t, conn, "join", map[string]any{
		"roomCode": "NOPE42",
		"user":     map[string]string{"id": "u1", "username": "User"},
	})
	out := read(t, conn)
	require.Equal(t, "error", out.Type)
	assert.JSONEq(t, `{"code":"NOT_FOUND","message":"room not found","event":"join"}`, string(out.Payload))
}

func TestCreateRoomValidation(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, err := http.Post(srv.URL+"/api/v1/rooms", "application/json", bytes.NewBufferString(`{"hostId":"h1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallToken(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t, testConfig())

		resp, err := http.Get(srv.URL + "/api/v1/call/token")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.CallAPIKey = "key"
		cfg.CallSecret = "secret"
		srv := newTestServer(t, cfg)

		resp, err := http.Get(srv.URL + "/api/v1/call/token")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var envelope struct {
			Data struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
		assert.NotEmpty(t, envelope.Data.Token)
	})
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAppConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.FanoutMode = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.CallAPIKey = "key"
	assert.Error(t, cfg.Validate())
}
