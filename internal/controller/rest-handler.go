package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/calltoken"
	"github.com/sharetube/watchparty/pkg/rest"
)

type createRoomRequest struct {
	HostId   string `json:"hostId" validate:"required,max=64"`
	Username string `json:"username" validate:"required,max=32"`
	Avatar   string `json:"avatar" validate:"max=512"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.InfoContext(ctx, "failed to read create room body", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.InfoContext(ctx, "invalid create room body", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
		HostId:   req.HostId,
		Username: req.Username,
		Avatar:   req.Avatar,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to create room", "error", err)
		rest.WriteJSON(w, httpStatus(err), rest.Envelope{"error": errorMessage(errorCode(err), err)})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": resp})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := c.roomService.GetRoom(ctx, chi.URLParam(r, "room-code"))
	if err != nil {
		c.logger.InfoContext(ctx, "failed to get room", "error", err)
		rest.WriteJSON(w, httpStatus(err), rest.Envelope{"error": errorMessage(errorCode(err), err)})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": resp})
}

func (c controller) callToken(w http.ResponseWriter, r *http.Request) {
	token, err := c.callTokens.Issue()
	if err != nil {
		if errors.Is(err, calltoken.ErrNotConfigured) {
			rest.WriteJSON(w, http.StatusServiceUnavailable, rest.Envelope{"error": err.Error()})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to issue call token", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to issue call token"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": map[string]string{"token": token}})
}

func (c controller) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
