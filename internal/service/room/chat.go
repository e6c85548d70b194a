package room

import (
	"context"
	"encoding/json"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type SendChatMessageParams struct {
	ConnectionId string
	RoomCode     string
	Message      json.RawMessage
}

// SendChatMessage relays the message verbatim to every member. Nothing is stored.
func (s service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) error {
	params.RoomCode = NormalizeRoomCode(params.RoomCode)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomCode, RoomCodeRule...),
		validation.Field(&params.Message, validation.Required),
	); err != nil {
		return s.validationError(err)
	}

	var msg ChatMessage
	if err := json.Unmarshal(params.Message, &msg); err != nil {
		return s.validationError(err)
	}

	if err := validation.ValidateStructWithContext(ctx, &msg,
		validation.Field(&msg.Text, validation.Required, validation.RuneLength(1, s.chatMaxLength)),
		validation.Field(&msg.Username, validation.Length(0, 32)),
	); err != nil {
		return s.validationError(err)
	}

	_, sender, err := s.resolveParticipant(ctx, params.ConnectionId, params.RoomCode)
	if err != nil {
		return err
	}

	if msg.UserId != "" && msg.UserId != sender.UserId {
		return s.validationError(errors.New("message userId does not match the sender"))
	}

	s.broadcast(ctx, params.RoomCode, &Output{Type: EventChatMessage, Payload: params.Message})
	return nil
}

type SendReactionParams struct {
	ConnectionId string
	RoomCode     string
	Emoji        string
}

// SendReaction reaches everyone but the sender, who renders it locally.
func (s service) SendReaction(ctx context.Context, params *SendReactionParams) error {
	params.RoomCode = NormalizeRoomCode(params.RoomCode)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomCode, RoomCodeRule...),
		validation.Field(&params.Emoji, EmojiRule...),
	); err != nil {
		return s.validationError(err)
	}

	if _, _, err := s.resolveParticipant(ctx, params.ConnectionId, params.RoomCode); err != nil {
		return err
	}

	s.broadcast(ctx, params.RoomCode, &Output{
		Type: EventReaction,
		Payload: Reaction{
			Emoji:            params.Emoji,
			FromConnectionId: params.ConnectionId,
		},
	}, params.ConnectionId)
	return nil
}
