package redis

import (
	"context"

	"github.com/sharetube/watchparty/internal/repository/room"
)

// AddParticipant reports whether a new roster entry was created. An existing entry only gets its connection id replaced.
func (r repo) AddParticipant(ctx context.Context, params *room.AddParticipantParams) (bool, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.addParticipantScript.Run(ctx, r.rc,
		[]string{
			r.getRoomKey(params.Code),
			r.getParticipantListKey(params.Code),
			r.getParticipantKey(params.Code, params.UserId),
		},
		params.UserId,
		params.DisplayName,
		params.AvatarToken,
		params.ConnectionId,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	if res < 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return false, room.ErrRoomNotFound
	}

	return res == 1, nil
}

func (r repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	zremCmd := pipe.ZRem(ctx, r.getParticipantListKey(params.Code), params.UserId)
	pipe.Del(ctx, r.getParticipantKey(params.Code, params.UserId))

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if zremCmd.Val() == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.ErrParticipantNotFound
	}

	return nil
}

// ClearParticipantConnection replaces the connection id with params.NextConnectionId, empty when none is left,
// only if it still equals params.ConnectionId.
func (r repo) ClearParticipantConnection(ctx context.Context, params *room.ClearParticipantConnectionParams) (bool, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.clearConnectionScript.Run(ctx, r.rc,
		[]string{r.getParticipantKey(params.Code, params.UserId)},
		params.ConnectionId,
		params.NextConnectionId,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return res == 1, nil
}
