package room

import (
	"time"

	roomrepo "github.com/sharetube/watchparty/internal/repository/room"
)

const (
	EventSyncState       = "sync:state"
	EventRosterUpdated   = "roster-updated"
	EventMediaChange     = "media-change"
	EventPlaybackSync    = "playback-sync"
	EventChatMessage     = "chat-message"
	EventReaction        = "reaction"
	EventCallIdAnnounce  = "call-id-announce"
	EventParticipantLeft = "participant-left"
	EventRoomEnded       = "room-ended"
	EventError           = "error"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type Participant struct {
	UserId       string `json:"userId"`
	Username     string `json:"username"`
	Avatar       string `json:"avatar"`
	ConnectionId string `json:"connectionId"`
	IsHost       bool   `json:"isHost"`
	IsOnline     bool   `json:"isOnline"`
}

type Room struct {
	RoomCode     string        `json:"roomCode"`
	HostId       string        `json:"hostId"`
	CurrentUrl   string        `json:"currentUrl"`
	IsPlaying    bool          `json:"isPlaying"`
	Timestamp    float64       `json:"timestamp"`
	CallId       *string       `json:"callId"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
}

type SyncState struct {
	CurrentUrl string  `json:"currentUrl"`
	IsPlaying  bool    `json:"isPlaying"`
	Timestamp  float64 `json:"timestamp"`
}

type Reaction struct {
	Emoji            string `json:"emoji"`
	FromConnectionId string `json:"fromConnectionId"`
}

type ParticipantLeft struct {
	UserId   string `json:"userId"`
	Username string `json:"username"`
}

type ChatMessage struct {
	Id        string `json:"id"`
	UserId    string `json:"userId"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func newRoom(r roomrepo.Room) Room {
	participants := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		participants = append(participants, Participant{
			UserId:       p.UserId,
			Username:     p.DisplayName,
			Avatar:       p.AvatarToken,
			ConnectionId: p.ConnectionId,
			IsHost:       p.IsHost,
			IsOnline:     p.ConnectionId != "",
		})
	}

	return Room{
		RoomCode:     r.Code,
		HostId:       r.HostId,
		CurrentUrl:   r.CurrentMediaRef,
		IsPlaying:    r.IsPlaying,
		Timestamp:    r.PlaybackTimestamp,
		CallId:       r.CallId,
		Participants: participants,
		CreatedAt:    r.CreatedAt,
	}
}

func newSyncState(r roomrepo.Room) SyncState {
	return SyncState{
		CurrentUrl: r.CurrentMediaRef,
		IsPlaying:  r.IsPlaying,
		Timestamp:  r.PlaybackTimestamp,
	}
}

