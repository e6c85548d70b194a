package room

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/metrics"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
)

type CreateRoomParams struct {
	HostId   string `json:"hostId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type CreateRoomResponse struct {
	RoomCode string `json:"roomCode"`
	Room     Room   `json:"room"`
}

// CreateRoom retries on code collisions up to the configured number of attempts.
func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.HostId, UserIdRule...),
		validation.Field(&params.Username, UsernameRule...),
		validation.Field(&params.Avatar, AvatarRule...),
	); err != nil {
		return CreateRoomResponse{}, s.validationError(err)
	}

	createdAt := s.now()
	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		code := s.generator.GenerateRandomString(s.codeLength)
		err := s.roomRepo.CreateRoom(ctx, &roomrepo.CreateRoomParams{
			Code:        code,
			HostId:      params.HostId,
			DisplayName: params.Username,
			AvatarToken: params.Avatar,
			CreatedAt:   createdAt,
		})
		if errors.Is(err, roomrepo.ErrRoomAlreadyExists) {
			s.logger.DebugContext(ctx, "room code collision", "room_code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return CreateRoomResponse{}, s.persistenceError(err)
		}

		metrics.RoomsCreated.Inc()
		s.logger.InfoContext(ctx, "room created", "room_code", code, "host_id", params.HostId)

		return CreateRoomResponse{
			RoomCode: code,
			Room: newRoom(roomrepo.Room{
				Code:      code,
				HostId:    params.HostId,
				CreatedAt: createdAt,
				Participants: []roomrepo.Participant{{
					UserId:      params.HostId,
					DisplayName: params.Username,
					AvatarToken: params.Avatar,
					IsHost:      true,
				}},
			}),
		}, nil
	}

	return CreateRoomResponse{}, s.persistenceError(fmt.Errorf("no free room code after %d attempts", s.codeAttempts))
}

func (s service) GetRoom(ctx context.Context, code string) (Room, error) {
	code = NormalizeRoomCode(code)
	if err := validation.Validate(code, RoomCodeRule...); err != nil {
		return Room{}, s.validationError(err)
	}

	r, err := s.getActiveRoom(ctx, code)
	if err != nil {
		return Room{}, err
	}

	return newRoom(r), nil
}

type EndRoomParams struct {
	ConnectionId string
	RoomCode     string
}

// EndRoom is host only. A non-host request leaves the room untouched.
func (s service) EndRoom(ctx context.Context, params *EndRoomParams) error {
	params.RoomCode = NormalizeRoomCode(params.RoomCode)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomCode, RoomCodeRule...),
	); err != nil {
		return s.validationError(err)
	}

	_, sender, err := s.resolveParticipant(ctx, params.ConnectionId, params.RoomCode)
	if err != nil {
		return err
	}

	if err := s.checkIfHost(sender); err != nil {
		return err
	}

	if err := s.roomRepo.DeleteRoom(ctx, params.RoomCode); err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return ErrRoomNotFound
		}

		return s.persistenceError(err)
	}

	s.broadcast(ctx, params.RoomCode, &Output{Type: EventRoomEnded})
	s.connRepo.UnregisterRoom(params.RoomCode)
	s.fanout.DisbandRoom(ctx, params.RoomCode)

	metrics.RoomsEnded.Inc()
	s.logger.InfoContext(ctx, "room ended", "room_code", params.RoomCode, "host_id", sender.UserId)

	return nil
}

// SweepExpiredRooms removes every room whose lifetime is over and returns how many were removed.
// A room that fails to expire is reported in the joined error and does not stop the rest.
func (s service) SweepExpiredRooms(ctx context.Context) (int, error) {
	codes, err := s.roomRepo.GetRoomCodesCreatedUntil(ctx, s.now().Add(-s.lifetime))
	if err != nil {
		return 0, s.persistenceError(err)
	}

	removed := 0
	var errs []error
	for _, code := range codes {
		if err := s.expireRoom(ctx, code); err != nil {
			s.logger.WarnContext(ctx, "failed to expire room", "room_code", code, "error", err)
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}
