package connection

// Entry binds a live transport connection to the room and user it joined as.
type Entry struct {
	RoomCode string `json:"room_code"`
	UserId   string `json:"user_id"`
}
