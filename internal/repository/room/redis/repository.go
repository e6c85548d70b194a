package redis

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc     *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	createRoomScript      *redis.Script
	addParticipantScript  *redis.Script
	updateRoomScript      *redis.Script
	clearConnectionScript *redis.Script
	deleteRoomScript      *redis.Script
}

// NewRepo keeps every key of a room alive for at most ttl after creation.
func NewRepo(rc *redis.Client, ttl time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		ttl:    ttl,
		logger: logger,
		// KEYS: room, participants, host participant, created index
		// ARGV: host id, created at ms, ttl ms, code, display name, avatar token
		createRoomScript: redis.NewScript(`
			if redis.call('EXISTS', KEYS[1]) == 1 then
				return 0
			end
			redis.call('HSET', KEYS[1],
				'host_id', ARGV[1],
				'current_media_ref', '',
				'is_playing', '0',
				'playback_timestamp', '0',
				'created_at', ARGV[2])
			redis.call('HSET', KEYS[3],
				'user_id', ARGV[1],
				'display_name', ARGV[5],
				'avatar_token', ARGV[6],
				'connection_id', '',
				'is_host', '1')
			redis.call('ZADD', KEYS[2], 1, ARGV[1])
			redis.call('PEXPIRE', KEYS[1], ARGV[3])
			redis.call('PEXPIRE', KEYS[2], ARGV[3])
			redis.call('PEXPIRE', KEYS[3], ARGV[3])
			redis.call('ZADD', KEYS[4], ARGV[2], ARGV[4])
			return 1
		`),
		// KEYS: room, participants, participant
		// ARGV: user id, display name, avatar token, connection id
		// returns -1 when the room is gone, 0 when only the connection was updated, 1 when added
		addParticipantScript: redis.NewScript(`
			if redis.call('EXISTS', KEYS[1]) == 0 then
				return -1
			end
			if redis.call('EXISTS', KEYS[3]) == 1 then
				redis.call('HSET', KEYS[3], 'connection_id', ARGV[4])
				return 0
			end
			local isHost = '0'
			if redis.call('HGET', KEYS[1], 'host_id') == ARGV[1] then
				isHost = '1'
			end
			local maxScore = redis.call('ZREVRANGE', KEYS[2], 0, 0, 'WITHSCORES')
			local nextScore = 1
			if #maxScore > 0 then
				nextScore = tonumber(maxScore[2]) + 1
			end
			redis.call('ZADD', KEYS[2], nextScore, ARGV[1])
			redis.call('HSET', KEYS[3],
				'user_id', ARGV[1],
				'display_name', ARGV[2],
				'avatar_token', ARGV[3],
				'connection_id', ARGV[4],
				'is_host', isHost)
			local ttl = redis.call('PTTL', KEYS[1])
			if ttl > 0 then
				redis.call('PEXPIRE', KEYS[2], ttl)
				redis.call('PEXPIRE', KEYS[3], ttl)
			end
			return 1
		`),
		// KEYS: room
		// ARGV: field/value pairs
		updateRoomScript: redis.NewScript(`
			if redis.call('EXISTS', KEYS[1]) == 0 then
				return 0
			end
			redis.call('HSET', KEYS[1], unpack(ARGV))
			return 1
		`),
		// KEYS: participant
		// ARGV: connection id expected to be current, replacement (empty clears)
		clearConnectionScript: redis.NewScript(`
			if redis.call('HGET', KEYS[1], 'connection_id') == ARGV[1] then
				redis.call('HSET', KEYS[1], 'connection_id', ARGV[2])
				return 1
			end
			return 0
		`),
		// KEYS: room, participants, created index
		// ARGV: code
		deleteRoomScript: redis.NewScript(`
			local userIds = redis.call('ZRANGE', KEYS[2], 0, -1)
			for _, userId in ipairs(userIds) do
				redis.call('DEL', KEYS[1] .. ':participant:' .. userId)
			end
			redis.call('DEL', KEYS[2])
			redis.call('ZREM', KEYS[3], ARGV[1])
			return redis.call('DEL', KEYS[1])
		`),
	}
}

func (r repo) getRoomKey(code string) string {
	return "room:" + code
}

func (r repo) getParticipantListKey(code string) string {
	return "room:" + code + ":participants"
}

func (r repo) getParticipantKey(code, userId string) string {
	return "room:" + code + ":participant:" + userId
}

func (r repo) getCreatedIndexKey() string {
	return "rooms:created"
}
