package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

const (
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodePersistenceError = "PERSISTENCE_ERROR"
	CodeValidationError  = "VALIDATION_ERROR"
)

var idCounter atomic.Uint64

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(idCounter.Add(1), 36)
}

type ErrorOutput struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// errorCode maps an event error onto the wire error code. Anything unclassified comes from the store.
func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrValidation),
		errors.Is(err, wsrouter.ErrInvalidMessage),
		errors.Is(err, wsrouter.ErrInvalidPayload),
		errors.Is(err, wsrouter.ErrUnknownMessageType):
		return CodeValidationError
	case errors.Is(err, room.ErrRoomNotFound):
		return CodeNotFound
	case errors.Is(err, room.ErrPermissionDenied),
		errors.Is(err, room.ErrNotJoined):
		return CodeUnauthorized
	default:
		return CodePersistenceError
	}
}

func errorMessage(code string, err error) string {
	switch code {
	case CodeValidationError:
		return err.Error()
	case CodeNotFound:
		return room.ErrRoomNotFound.Error()
	case CodeUnauthorized:
		if errors.Is(err, room.ErrNotJoined) {
			return room.ErrNotJoined.Error()
		}
		return room.ErrPermissionDenied.Error()
	default:
		return room.ErrPersistence.Error()
	}
}

func httpStatus(err error) int {
	switch errorCode(err) {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}

func eventLabel(messageType string, err error) string {
	if messageType == "" || errors.Is(err, wsrouter.ErrUnknownMessageType) {
		return "unknown"
	}

	return messageType
}

// writeError replies to the originating connection only.
func (c controller) writeError(ctx context.Context, messageType string, err error) {
	code := errorCode(err)
	metrics.EventsTotal.WithLabelValues(eventLabel(messageType, err), code).Inc()

	if code == CodePersistenceError {
		c.logger.ErrorContext(ctx, "websocket message failed", "error", err)
	} else {
		c.logger.InfoContext(ctx, "websocket message rejected", "code", code, "error", err)
	}

	if sendErr := c.hub.SendToConn(c.getConnIdFromCtx(ctx), &room.Output{
		Type: room.EventError,
		Payload: ErrorOutput{
			Code:    code,
			Message: errorMessage(code, err),
			Event:   messageType,
		},
	}); sendErr != nil {
		c.logger.WarnContext(ctx, "failed to write error", "error", sendErr)
	}
}
