package room

import "time"

type Participant struct {
	UserId       string `redis:"user_id" json:"userId"`
	DisplayName  string `redis:"display_name" json:"username"`
	AvatarToken  string `redis:"avatar_token" json:"avatar"`
	ConnectionId string `redis:"connection_id" json:"connectionId"`
	IsHost       bool   `redis:"is_host" json:"isHost"`
}

type Room struct {
	Code              string        `json:"roomCode"`
	HostId            string        `json:"hostId"`
	CurrentMediaRef   string        `json:"currentUrl"`
	IsPlaying         bool          `json:"isPlaying"`
	PlaybackTimestamp float64       `json:"timestamp"`
	CallId            *string       `json:"callId"`
	CreatedAt         time.Time     `json:"createdAt"`
	Participants      []Participant `json:"participants"`
}

func (r Room) Participant(userId string) (Participant, bool) {
	for _, p := range r.Participants {
		if p.UserId == userId {
			return p, true
		}
	}

	return Participant{}, false
}
