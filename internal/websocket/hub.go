// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/metrics"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

// Message types for WebSocket communication
const (
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
	MessageTypeAlert            = "alert"
	MessageTypeDataUpdate       = "data_update"
	MessageTypePredictionUpdate = "prediction_update"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// When the context is canceled all connected clients are gracefully closed
// and the method returns ctx.Err(), so a supervisor can restart the hub
// without leaving orphaned connections.
//
// Client lifecycle events (Register/Unregister) are checked before broadcast
// messages so that client state is always consistent before messages are
// delivered. Without the priority check, Go's select picks randomly among
// ready channels.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check)
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		// Priority 3: broadcast messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		metrics.WSConnections.Dec()
	}
	total := len(h.clients)
	h.mu.Unlock()

	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// shutdown closes all connected clients and logs structured shutdown
// information. ctx.Err() is not logged as an error because cancellation
// is expected behavior during graceful shutdown.
func (h *Hub) shutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// broadcastToClients sends a message to all connected clients in a
// deterministic order. Clients are sorted by their monotonically increasing
// ID so message delivery order is reproducible in tests.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	// Track clients to remove (can't modify map during iteration)
	var toRemove []*Client

	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			// Channel full or closed, mark for removal
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
	}
}

// closeAllClients gracefully closes all connected WebSocket clients.
// Called during shutdown to ensure clean termination.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
	}
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// BroadcastAlert sends a newly created alert to all connected clients
func (h *Hub) BroadcastAlert(alert *models.Alert) {
	message := Message{
		Type: MessageTypeAlert,
		Data: alert,
	}

	select {
	case h.broadcast <- message:
		logging.Info().
			Int("clients", h.GetClientCount()).
			Str("country", alert.CountryCode).
			Str("severity", alert.Severity).
			Msg("broadcast alert")
	default:
		metrics.WSErrors.WithLabelValues("broadcast_drop").Inc()
		logging.Warn().Msg("broadcast channel full, dropping alert message")
	}
}

// DataUpdateData represents data sent with data_update messages
type DataUpdateData struct {
	Timestamp   string `json:"timestamp"`
	Kind        string `json:"kind"`
	CountryCode string `json:"country_code,omitempty"`
	CropID      string `json:"crop_id,omitempty"`
}

// BroadcastDataUpdate notifies all clients that new production or price
// data has been ingested for a country/crop pair.
func (h *Hub) BroadcastDataUpdate(kind, countryCode, cropID string) {
	data := DataUpdateData{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Kind:        kind,
		CountryCode: countryCode,
		CropID:      cropID,
	}

	message := Message{
		Type: MessageTypeDataUpdate,
		Data: data,
	}

	select {
	case h.broadcast <- message:
		logging.Debug().
			Int("clients", h.GetClientCount()).
			Str("kind", kind).
			Str("country", countryCode).
			Msg("broadcast data_update")
	default:
		metrics.WSErrors.WithLabelValues("broadcast_drop").Inc()
		logging.Warn().Msg("broadcast channel full, dropping data_update message")
	}
}

// BroadcastPredictionUpdate notifies all clients that a fresh yield
// prediction is available.
func (h *Hub) BroadcastPredictionUpdate(prediction *models.YieldPrediction) {
	message := Message{
		Type: MessageTypePredictionUpdate,
		Data: prediction,
	}

	select {
	case h.broadcast <- message:
		logging.Debug().
			Int("clients", h.GetClientCount()).
			Str("country", prediction.CountryCode).
			Str("crop", prediction.CropID).
			Msg("broadcast prediction_update")
	default:
		metrics.WSErrors.WithLabelValues("broadcast_drop").Inc()
		logging.Warn().Msg("broadcast channel full, dropping prediction_update message")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
