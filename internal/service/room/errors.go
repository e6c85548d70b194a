package room

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotJoined        = errors.New("connection has not joined this room")
	ErrPersistence      = errors.New("room store unavailable")
	ErrValidation       = errors.New("validation error")
)
