package room

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/repository/connection"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
)

// NormalizeRoomCode makes room codes case-insensitive.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s service) persistenceError(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func (s service) validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func (s service) isExpired(r roomrepo.Room) bool {
	return !s.now().Before(r.CreatedAt.Add(s.lifetime))
}

// getActiveRoom loads the room and lazily removes it once its lifetime is over.
func (s service) getActiveRoom(ctx context.Context, code string) (roomrepo.Room, error) {
	r, err := s.roomRepo.GetRoom(ctx, code)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return roomrepo.Room{}, ErrRoomNotFound
		}

		return roomrepo.Room{}, s.persistenceError(err)
	}

	if s.isExpired(r) {
		if err := s.expireRoom(ctx, code); err != nil {
			return roomrepo.Room{}, err
		}

		return roomrepo.Room{}, ErrRoomNotFound
	}

	return r, nil
}

func (s service) expireRoom(ctx context.Context, code string) error {
	if err := s.roomRepo.DeleteRoom(ctx, code); err != nil && !errors.Is(err, roomrepo.ErrRoomNotFound) {
		return s.persistenceError(err)
	}

	s.connRepo.UnregisterRoom(code)
	s.fanout.DisbandRoom(ctx, code)
	metrics.RoomsExpired.Inc()
	s.logger.InfoContext(ctx, "room expired", "room_code", code)

	return nil
}

// resolveSender returns the registry entry of connId, which must have joined roomCode.
func (s service) resolveSender(connId, roomCode string) (connection.Entry, error) {
	entry, err := s.connRepo.Get(connId)
	if err != nil {
		return connection.Entry{}, ErrNotJoined
	}

	if entry.RoomCode != roomCode {
		return connection.Entry{}, ErrNotJoined
	}

	return entry, nil
}

// resolveParticipant resolves the sender and its roster entry in an active room.
func (s service) resolveParticipant(ctx context.Context, connId, roomCode string) (roomrepo.Room, roomrepo.Participant, error) {
	entry, err := s.resolveSender(connId, roomCode)
	if err != nil {
		return roomrepo.Room{}, roomrepo.Participant{}, err
	}

	r, err := s.getActiveRoom(ctx, roomCode)
	if err != nil {
		return roomrepo.Room{}, roomrepo.Participant{}, err
	}

	p, ok := r.Participant(entry.UserId)
	if !ok {
		return roomrepo.Room{}, roomrepo.Participant{}, ErrNotJoined
	}

	return r, p, nil
}

func (s service) checkIfHost(p roomrepo.Participant) error {
	if !p.IsHost {
		return ErrPermissionDenied
	}

	return nil
}

// broadcast is fire-and-forget, a failed publish is only logged.
func (s service) broadcast(ctx context.Context, roomCode string, output *Output, exclude ...string) {
	if err := s.fanout.BroadcastToRoom(ctx, roomCode, output, exclude...); err != nil {
		s.logger.WarnContext(ctx, "failed to broadcast", "room_code", roomCode, "type", output.Type, "error", err)
	}
}

func (s service) broadcastRoster(ctx context.Context, roomCode string) error {
	r, err := s.roomRepo.GetRoom(ctx, roomCode)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return ErrRoomNotFound
		}

		return s.persistenceError(err)
	}

	s.broadcast(ctx, roomCode, &Output{Type: EventRosterUpdated, Payload: newRoom(r)})
	return nil
}
