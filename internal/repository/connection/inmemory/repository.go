package inmemory

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/sharetube/watchparty/internal/repository/connection"
	"golang.org/x/exp/maps"
)

type repo struct {
	entries map[string]connection.Entry
	rooms   map[string]map[string]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		entries: make(map[string]connection.Entry),
		rooms:   make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

// Register is idempotent for the same entry and fails when connId is bound to a different one.
func (r *repo) Register(connId string, entry connection.Entry) error {
	funcName := "connection.inmemory.Register"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "conn_id", connId, "entry", entry)
	if existing, ok := r.entries[connId]; ok {
		if existing == entry {
			return nil
		}

		r.logger.Debug(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.entries[connId] = entry
	if r.rooms[entry.RoomCode] == nil {
		r.rooms[entry.RoomCode] = make(map[string]struct{})
	}
	r.rooms[entry.RoomCode][connId] = struct{}{}

	return nil
}

func (r *repo) Get(connId string) (connection.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[connId]
	if !ok {
		return connection.Entry{}, connection.ErrNotFound
	}

	return entry, nil
}

func (r *repo) unregister(connId string) (connection.Entry, bool) {
	entry, ok := r.entries[connId]
	if !ok {
		return connection.Entry{}, false
	}

	delete(r.entries, connId)
	if conns := r.rooms[entry.RoomCode]; conns != nil {
		delete(conns, connId)
		if len(conns) == 0 {
			delete(r.rooms, entry.RoomCode)
		}
	}

	return entry, true
}

func (r *repo) Unregister(connId string) (connection.Entry, error) {
	funcName := "connection.inmemory.Unregister"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "conn_id", connId)
	entry, ok := r.unregister(connId)
	if !ok {
		r.logger.Debug(funcName, "error", connection.ErrNotFound)
		return connection.Entry{}, connection.ErrNotFound
	}

	r.logger.Debug(funcName, "result", entry)
	return entry, nil
}

// UnregisterMember drops every connection the user holds in the room and returns their ids.
func (r *repo) UnregisterMember(roomCode, userId string) []string {
	funcName := "connection.inmemory.UnregisterMember"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "room_code", roomCode, "user_id", userId)
	var connIds []string
	for connId := range r.rooms[roomCode] {
		if r.entries[connId].UserId == userId {
			connIds = append(connIds, connId)
		}
	}

	for _, connId := range connIds {
		r.unregister(connId)
	}

	return connIds
}

func (r *repo) UnregisterRoom(roomCode string) []string {
	funcName := "connection.inmemory.UnregisterRoom"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "room_code", roomCode)
	connIds := maps.Keys(r.rooms[roomCode])
	for _, connId := range connIds {
		delete(r.entries, connId)
	}
	delete(r.rooms, roomCode)

	return connIds
}

// GetConnIdsByMember returns the connections the user still holds in the room, sorted.
func (r *repo) GetConnIdsByMember(roomCode, userId string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var connIds []string
	for connId := range r.rooms[roomCode] {
		if r.entries[connId].UserId == userId {
			connIds = append(connIds, connId)
		}
	}
	slices.Sort(connIds)

	return connIds
}

func (r *repo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
