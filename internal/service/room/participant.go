package room

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/repository/connection"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
)

type JoinRoomParams struct {
	ConnectionId string
	RoomCode     string
	UserId       string
	Username     string
	Avatar       string
}

type JoinRoomResponse struct {
	Room  Room
	Added bool
}

// JoinRoom adds the participant if absent, otherwise only moves it to the new connection.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	params.RoomCode = NormalizeRoomCode(params.RoomCode)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomCode, RoomCodeRule...),
		validation.Field(&params.UserId, UserIdRule...),
		validation.Field(&params.Username, UsernameRule...),
		validation.Field(&params.Avatar, AvatarRule...),
	); err != nil {
		return JoinRoomResponse{}, s.validationError(err)
	}

	entry := connection.Entry{RoomCode: params.RoomCode, UserId: params.UserId}
	if existing, err := s.connRepo.Get(params.ConnectionId); err == nil && existing != entry {
		return JoinRoomResponse{}, s.validationError(errors.New("connection already joined as another participant"))
	}

	if _, err := s.getActiveRoom(ctx, params.RoomCode); err != nil {
		return JoinRoomResponse{}, err
	}

	added, err := s.roomRepo.AddParticipant(ctx, &roomrepo.AddParticipantParams{
		Code:         params.RoomCode,
		UserId:       params.UserId,
		DisplayName:  params.Username,
		AvatarToken:  params.Avatar,
		ConnectionId: params.ConnectionId,
	})
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}

		return JoinRoomResponse{}, s.persistenceError(err)
	}

	if err := s.connRepo.Register(params.ConnectionId, entry); err != nil {
		return JoinRoomResponse{}, s.validationError(err)
	}
	s.fanout.Join(params.RoomCode, params.ConnectionId)

	r, err := s.roomRepo.GetRoom(ctx, params.RoomCode)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			// ended between the add and the registration
			s.connRepo.Unregister(params.ConnectionId)
			s.fanout.Leave(params.ConnectionId)
			return JoinRoomResponse{}, ErrRoomNotFound
		}

		return JoinRoomResponse{}, s.persistenceError(err)
	}

	s.broadcast(ctx, params.RoomCode, &Output{Type: EventRosterUpdated, Payload: newRoom(r)})
	if err := s.fanout.SendToConn(params.ConnectionId, &Output{Type: EventSyncState, Payload: newSyncState(r)}); err != nil {
		s.logger.WarnContext(ctx, "failed to send sync state", "error", err)
	}

	s.logger.DebugContext(ctx, "participant joined", "room_code", params.RoomCode, "user_id", params.UserId, "added", added)

	return JoinRoomResponse{Room: newRoom(r), Added: added}, nil
}

type LeaveRoomParams struct {
	ConnectionId string
	RoomCode     string
	UserId       string
	Username     string
}

// LeaveRoom removes the sender from the roster and detaches every connection it holds in the room.
func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	params.RoomCode = NormalizeRoomCode(params.RoomCode)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomCode, RoomCodeRule...),
		validation.Field(&params.UserId, UserIdRule...),
	); err != nil {
		return s.validationError(err)
	}

	_, sender, err := s.resolveParticipant(ctx, params.ConnectionId, params.RoomCode)
	if err != nil {
		return err
	}

	if sender.UserId != params.UserId {
		return ErrPermissionDenied
	}

	if err := s.roomRepo.RemoveParticipant(ctx, &roomrepo.RemoveParticipantParams{
		Code:   params.RoomCode,
		UserId: sender.UserId,
	}); err != nil {
		if errors.Is(err, roomrepo.ErrParticipantNotFound) {
			return ErrNotJoined
		}

		return s.persistenceError(err)
	}

	connIds := s.connRepo.UnregisterMember(params.RoomCode, sender.UserId)
	s.fanout.LeaveMember(ctx, params.RoomCode, sender.UserId, connIds...)

	s.broadcast(ctx, params.RoomCode, &Output{
		Type: EventParticipantLeft,
		Payload: ParticipantLeft{
			UserId:   sender.UserId,
			Username: sender.DisplayName,
		},
	})

	return s.broadcastRoster(ctx, params.RoomCode)
}

// DisconnectMember handles a dropped transport. The participant stays in the roster.
func (s service) DisconnectMember(ctx context.Context, connId string) error {
	entry, err := s.connRepo.Unregister(connId)
	if err != nil {
		return nil
	}
	s.fanout.Leave(connId)

	// another live connection of the same user takes over
	var next string
	if remaining := s.connRepo.GetConnIdsByMember(entry.RoomCode, entry.UserId); len(remaining) > 0 {
		next = remaining[0]
	}

	if _, err := s.roomRepo.ClearParticipantConnection(ctx, &roomrepo.ClearParticipantConnectionParams{
		Code:             entry.RoomCode,
		UserId:           entry.UserId,
		ConnectionId:     connId,
		NextConnectionId: next,
	}); err != nil {
		return s.persistenceError(err)
	}

	s.logger.DebugContext(ctx, "participant disconnected", "room_code", entry.RoomCode, "user_id", entry.UserId, "next_conn_id", next)
	return nil
}
