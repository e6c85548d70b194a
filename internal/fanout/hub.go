package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/metrics"
	"golang.org/x/exp/maps"
)

// Hub keeps room-keyed groups of live connections attached to this instance.
type Hub struct {
	id     string
	bus    Bus
	logger *slog.Logger

	mu        sync.RWMutex
	conns     map[string]Sender
	groups    map[string]map[string]struct{}
	connRooms map[string]string

	onDisband     func(roomCode string, connIds []string)
	onMemberLeave func(roomCode, userId string) []string
}

// New builds a hub. A nil bus keeps delivery local to this instance.
func New(bus Bus, logger *slog.Logger) *Hub {
	return &Hub{
		id:            uuid.NewString(),
		bus:           bus,
		logger:        logger,
		conns:         make(map[string]Sender),
		groups:        make(map[string]map[string]struct{}),
		connRooms:     make(map[string]string),
		onDisband:     func(string, []string) {},
		onMemberLeave: func(string, string) []string { return nil },
	}
}

// SetDisbandHandler is called with the local connections of a room disbanded by another instance.
func (h *Hub) SetDisbandHandler(fn func(roomCode string, connIds []string)) {
	h.onDisband = fn
}

// SetMemberLeaveHandler resolves the local connections of a user who left through another instance.
func (h *Hub) SetMemberLeaveHandler(fn func(roomCode, userId string) []string) {
	h.onMemberLeave = fn
}

func (h *Hub) Start(ctx context.Context) error {
	if h.bus == nil {
		return nil
	}

	if err := h.bus.Subscribe(ctx, h.handleBusMessage); err != nil {
		return fmt.Errorf("failed to subscribe to fanout bus: %w", err)
	}

	return nil
}

func (h *Hub) handleBusMessage(msg *BusMessage) {
	if msg.Origin == h.id {
		return
	}

	if msg.Disband {
		connIds := h.disband(msg.RoomCode)
		h.onDisband(msg.RoomCode, connIds)
		return
	}

	if msg.LeaveUserId != "" {
		h.Leave(h.onMemberLeave(msg.RoomCode, msg.LeaveUserId)...)
		return
	}

	h.deliver(msg.RoomCode, msg.Data, msg.Exclude)
}

func (h *Hub) Attach(connId string, sender Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[connId] = sender
	metrics.ActiveConnections.Inc()
}

func (h *Hub) Detach(connId string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[connId]; !ok {
		return
	}

	h.leave(connId)
	delete(h.conns, connId)
	metrics.ActiveConnections.Dec()
}

// Join moves connId into the room group, leaving any previous group.
func (h *Hub) Join(roomCode, connId string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(connId)
	if h.groups[roomCode] == nil {
		h.groups[roomCode] = make(map[string]struct{})
	}
	h.groups[roomCode][connId] = struct{}{}
	h.connRooms[connId] = roomCode
}

func (h *Hub) Leave(connIds ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, connId := range connIds {
		h.leave(connId)
	}
}

func (h *Hub) leave(connId string) {
	roomCode, ok := h.connRooms[connId]
	if !ok {
		return
	}

	delete(h.connRooms, connId)
	if group := h.groups[roomCode]; group != nil {
		delete(group, connId)
		if len(group) == 0 {
			delete(h.groups, roomCode)
		}
	}
}

func (h *Hub) disband(roomCode string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	connIds := maps.Keys(h.groups[roomCode])
	for _, connId := range connIds {
		delete(h.connRooms, connId)
	}
	delete(h.groups, roomCode)

	return connIds
}

// DisbandRoom empties the room group here and on every other instance.
func (h *Hub) DisbandRoom(ctx context.Context, roomCode string) []string {
	connIds := h.disband(roomCode)

	if h.bus != nil {
		if err := h.bus.Publish(ctx, &BusMessage{Origin: h.id, RoomCode: roomCode, Disband: true}); err != nil {
			h.logger.WarnContext(ctx, "failed to publish disband", "room_code", roomCode, "error", err)
		}
	}

	return connIds
}

// LeaveMember detaches connIds here and tells every other instance to detach the user's connections.
func (h *Hub) LeaveMember(ctx context.Context, roomCode, userId string, connIds ...string) {
	h.Leave(connIds...)

	if h.bus != nil {
		if err := h.bus.Publish(ctx, &BusMessage{Origin: h.id, RoomCode: roomCode, LeaveUserId: userId}); err != nil {
			h.logger.WarnContext(ctx, "failed to publish member leave", "room_code", roomCode, "user_id", userId, "error", err)
		}
	}
}

// BroadcastToRoom encodes msg once and queues it for every group member not in exclude.
func (h *Hub) BroadcastToRoom(ctx context.Context, roomCode string, msg any, exclude ...string) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.deliver(roomCode, data, exclude)

	if h.bus != nil {
		if err := h.bus.Publish(ctx, &BusMessage{
			Origin:   h.id,
			RoomCode: roomCode,
			Exclude:  exclude,
			Data:     data,
		}); err != nil {
			return fmt.Errorf("failed to publish message: %w", err)
		}
	}

	return nil
}

func (h *Hub) deliver(roomCode string, data []byte, exclude []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connId := range h.groups[roomCode] {
		if slices.Contains(exclude, connId) {
			continue
		}

		sender, ok := h.conns[connId]
		if !ok {
			continue
		}

		if sender.Send(data) {
			metrics.DeliveredMessages.Inc()
		} else {
			metrics.DroppedMessages.Inc()
			h.logger.Warn("send buffer full, message dropped", "room_code", roomCode, "conn_id", connId)
		}
	}
}

func (h *Hub) SendToConn(connId string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.RLock()
	sender, ok := h.conns[connId]
	h.mu.RUnlock()
	if !ok {
		return ErrConnNotFound
	}

	if !sender.Send(data) {
		metrics.DroppedMessages.Inc()
		return nil
	}
	metrics.DeliveredMessages.Inc()

	return nil
}

func (h *Hub) members(roomCode string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return maps.Keys(h.groups[roomCode])
}
