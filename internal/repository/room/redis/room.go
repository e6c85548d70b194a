package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/room"
	omitnilpointers "github.com/sharetube/watchparty/pkg/omit-nil-pointers"
)

func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	createdAtMs := params.CreatedAt.UnixMilli()

	res, err := r.createRoomScript.Run(ctx, r.rc,
		[]string{
			r.getRoomKey(params.Code),
			r.getParticipantListKey(params.Code),
			r.getParticipantKey(params.Code, params.HostId),
			r.getCreatedIndexKey(),
		},
		params.HostId,
		createdAtMs,
		r.ttlMs(),
		params.Code,
		params.DisplayName,
		params.AvatarToken,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomAlreadyExists)
		return room.ErrRoomAlreadyExists
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, code string) (room.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"code": code,
	})
	fields, err := r.rc.HGetAll(ctx, r.getRoomKey(code)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Room{}, err
	}

	if len(fields) == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.Room{}, room.ErrRoomNotFound
	}

	result := room.Room{
		Code:              code,
		HostId:            fields["host_id"],
		CurrentMediaRef:   fields["current_media_ref"],
		IsPlaying:         r.fieldToBool(fields["is_playing"]),
		PlaybackTimestamp: r.fieldToFloat64(fields["playback_timestamp"]),
		CreatedAt:         r.fieldToTime(fields["created_at"]),
	}
	if callId, ok := fields["call_id"]; ok && callId != "" {
		result.CallId = &callId
	}

	participants, err := r.getParticipants(ctx, code)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Room{}, err
	}
	result.Participants = participants

	r.logger.DebugContext(ctx, "returned", "room", result)
	return result, nil
}

func (r repo) getParticipants(ctx context.Context, code string) ([]room.Participant, error) {
	userIds, err := r.rc.ZRange(ctx, r.getParticipantListKey(code), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(userIds) == 0 {
		return []room.Participant{}, nil
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(userIds))
	for _, userId := range userIds {
		cmds = append(cmds, pipe.HGetAll(ctx, r.getParticipantKey(code, userId)))
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return nil, err
	}

	participants := make([]room.Participant, 0, len(userIds))
	for _, cmd := range cmds {
		var participant room.Participant
		if err := cmd.Scan(&participant); err != nil {
			return nil, err
		}

		// hash expired or removed between the two reads
		if participant.UserId == "" {
			continue
		}

		participants = append(participants, participant)
	}

	return participants, nil
}

func (r repo) UpdateRoom(ctx context.Context, params *room.UpdateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pairs := omitnilpointers.Pairs(map[string]any{
		"current_media_ref":  params.CurrentMediaRef,
		"is_playing":         params.IsPlaying,
		"playback_timestamp": params.PlaybackTimestamp,
		"call_id":            params.CallId,
	})
	if len(pairs) == 0 {
		return nil
	}

	res, err := r.updateRoomScript.Run(ctx, r.rc, []string{r.getRoomKey(params.Code)}, pairs...).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	return nil
}

func (r repo) DeleteRoom(ctx context.Context, code string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"code": code,
	})
	res, err := r.deleteRoomScript.Run(ctx, r.rc,
		[]string{
			r.getRoomKey(code),
			r.getParticipantListKey(code),
			r.getCreatedIndexKey(),
		},
		code,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	return nil
}

// GetRoomCodesCreatedUntil includes rooms created exactly at until.
func (r repo) GetRoomCodesCreatedUntil(ctx context.Context, until time.Time) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"until": until,
	})
	codes, err := r.rc.ZRangeByScore(ctx, r.getCreatedIndexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(until.UnixMilli(), 10),
	}).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return codes, nil
}
