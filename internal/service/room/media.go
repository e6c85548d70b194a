package room

import (
	"context"
	"encoding/json"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
)

type ChangeMediaParams struct {
	ConnectionId string
	RoomCode     string
	Url          string
}

// ChangeMedia is host only and echoes the new media to every member, the sender included.
func (s service) ChangeMedia(ctx context.Context, params *ChangeMediaParams) error {
	params.RoomCode = NormalizeRoomCode(params.RoomCode)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomCode, RoomCodeRule...),
		validation.Field(&params.Url, MediaRefRule...),
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

	isPlaying := true
	if err := s.roomRepo.UpdateRoom(ctx, &roomrepo.UpdateRoomParams{
		Code:            params.RoomCode,
		CurrentMediaRef: &params.Url,
		IsPlaying:       &isPlaying,
	}); err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return ErrRoomNotFound
		}

		return s.persistenceError(err)
	}

	s.broadcast(ctx, params.RoomCode, &Output{Type: EventMediaChange, Payload: params.Url})
	return nil
}

type SyncPlaybackParams struct {
	ConnectionId string
	RoomCode     string
	State        json.RawMessage
}

// SyncPlayback relays the opaque player state to everyone but the sender without persisting it.
func (s service) SyncPlayback(ctx context.Context, params *SyncPlaybackParams) error {
	params.RoomCode = NormalizeRoomCode(params.RoomCode)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomCode, RoomCodeRule...),
		validation.Field(&params.State, validation.Required),
	); err != nil {
		return s.validationError(err)
	}

	if _, _, err := s.resolveParticipant(ctx, params.ConnectionId, params.RoomCode); err != nil {
		return err
	}

	s.broadcast(ctx, params.RoomCode, &Output{Type: EventPlaybackSync, Payload: params.State}, params.ConnectionId)
	return nil
}

type AnnounceCallIdParams struct {
	ConnectionId string
	RoomCode     string
	CallId       string
}

// AnnounceCallId lets any member set the call id, the last writer wins.
func (s service) AnnounceCallId(ctx context.Context, params *AnnounceCallIdParams) error {
	params.RoomCode = NormalizeRoomCode(params.RoomCode)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomCode, RoomCodeRule...),
		validation.Field(&params.CallId, CallIdRule...),
	); err != nil {
		return s.validationError(err)
	}

	if _, _, err := s.resolveParticipant(ctx, params.ConnectionId, params.RoomCode); err != nil {
		return err
	}

	if err := s.roomRepo.UpdateRoom(ctx, &roomrepo.UpdateRoomParams{
		Code:   params.RoomCode,
		CallId: &params.CallId,
	}); err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return ErrRoomNotFound
		}

		return s.persistenceError(err)
	}

	s.broadcast(ctx, params.RoomCode, &Output{Type: EventCallIdAnnounce, Payload: params.CallId})
	return nil
}
