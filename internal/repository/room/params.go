package room

import "time"

type CreateRoomParams struct {
	Code        string    `json:"code"`
	HostId      string    `json:"host_id"`
	DisplayName string    `json:"display_name"`
	AvatarToken string    `json:"avatar_token"`
	CreatedAt   time.Time `json:"created_at"`
}

// UpdateRoomParams fields left nil are not written.
type UpdateRoomParams struct {
	Code              string   `json:"code"`
	CurrentMediaRef   *string  `json:"current_media_ref,omitempty"`
	IsPlaying         *bool    `json:"is_playing,omitempty"`
	PlaybackTimestamp *float64 `json:"playback_timestamp,omitempty"`
	CallId            *string  `json:"call_id,omitempty"`
}

type AddParticipantParams struct {
	Code         string `json:"code"`
	UserId       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	AvatarToken  string `json:"avatar_token"`
	ConnectionId string `json:"connection_id"`
}

type RemoveParticipantParams struct {
	Code   string `json:"code"`
	UserId string `json:"user_id"`
}

type ClearParticipantConnectionParams struct {
	Code             string `json:"code"`
	UserId           string `json:"user_id"`
	ConnectionId     string `json:"connection_id"`
	NextConnectionId string `json:"next_connection_id"`
}
