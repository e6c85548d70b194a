package controller

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service/room"
)

type JoinInput struct {
	RoomCode string `json:"roomCode"`
	User     struct {
		Id       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	} `json:"user"`
}

func (c controller) handleJoin(ctx context.Context, _ *websocket.Conn, input JoinInput) error {
	_, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		ConnectionId: c.getConnIdFromCtx(ctx),
		RoomCode:     input.RoomCode,
		UserId:       input.User.Id,
		Username:     input.User.Username,
		Avatar:       input.User.Avatar,
	})

	return err
}

type LeaveInput struct {
	RoomCode string `json:"roomCode"`
	UserId   string `json:"userId"`
	Username string `json:"username"`
}

func (c controller) handleLeave(ctx context.Context, _ *websocket.Conn, input LeaveInput) error {
	return c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		ConnectionId: c.getConnIdFromCtx(ctx),
		RoomCode:     input.RoomCode,
		UserId:       input.UserId,
		Username:     input.Username,
	})
}

type EndInput struct {
	RoomCode string `json:"roomCode"`
}

func (c controller) handleEnd(ctx context.Context, _ *websocket.Conn, input EndInput) error {
	return c.roomService.EndRoom(ctx, &room.EndRoomParams{
		ConnectionId: c.getConnIdFromCtx(ctx),
		RoomCode:     input.RoomCode,
	})
}

type MediaChangeInput struct {
	RoomCode string `json:"roomCode"`
	Url      string `json:"url"`
}

func (c controller) handleMediaChange(ctx context.Context, _ *websocket.Conn, input MediaChangeInput) error {
	return c.roomService.ChangeMedia(ctx, &room.ChangeMediaParams{
		ConnectionId: c.getConnIdFromCtx(ctx),
		RoomCode:     input.RoomCode,
		Url:          input.Url,
	})
}

type PlaybackSyncInput struct {
	RoomCode string          `json:"roomCode"`
	State    json.RawMessage `json:"state"`
}

func (c controller) handlePlaybackSync(ctx context.Context, _ *websocket.Conn, input PlaybackSyncInput) error {
	return c.roomService.SyncPlayback(ctx, &room.SyncPlaybackParams{
		ConnectionId: c.getConnIdFromCtx(ctx),
		RoomCode:     input.RoomCode,
		State:        input.State,
	})
}

type ChatMessageInput struct {
	RoomCode string          `json:"roomCode"`
	Message  json.RawMessage `json:"message"`
}

func (c controller) handleChatMessage(ctx context.Context, _ *websocket.Conn, input ChatMessageInput) error {
	return c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		ConnectionId: c.getConnIdFromCtx(ctx),
		RoomCode:     input.RoomCode,
		Message:      input.Message,
	})
}

type ReactionInput struct {
	RoomCode string `json:"roomCode"`
	Emoji    string `json:"emoji"`
}

func (c controller) handleReaction(ctx context.Context, _ *websocket.Conn, input ReactionInput) error {
	return c.roomService.SendReaction(ctx, &room.SendReactionParams{
		ConnectionId: c.getConnIdFromCtx(ctx),
		RoomCode:     input.RoomCode,
		Emoji:        input.Emoji,
	})
}

type CallIdAnnounceInput struct {
	RoomCode string `json:"roomCode"`
	CallId   string `json:"callId"`
}

func (c controller) handleCallIdAnnounce(ctx context.Context, _ *websocket.Conn, input CallIdAnnounceInput) error {
	return c.roomService.AnnounceCallId(ctx, &room.AnnounceCallIdParams{
		ConnectionId: c.getConnIdFromCtx(ctx),
		RoomCode:     input.RoomCode,
		CallId:       input.CallId,
	})
}
