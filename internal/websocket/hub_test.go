// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package websocket

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/metrics"
	"github.com/SIAKOU/Agri-Intel/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// setupHub creates and starts a new hub for testing
func setupHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(10 * time.Millisecond)
	return hub
}

// createTestClient creates a mock client for testing
func createTestClient(hub *Hub) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, conn: nil, send: make(chan Message, 256)}
}

// registerClient registers a client and waits for registration to complete
func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func testAlert() *models.Alert {
	return &models.Alert{
		ID:          1,
		Severity:    models.SeverityWarning,
		Title:       "Rainfall deficit",
		Message:     "Rainfall 30% below seasonal average",
		CountryCode: "TG",
		CropID:      "maize",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	checks := []struct {
		name   string
		check  bool
		errMsg string
	}{
		{"clients map", hub.clients != nil, "clients map not initialized"},
		{"broadcast channel", hub.broadcast != nil, "broadcast channel not initialized"},
		{"Register channel", hub.Register != nil, "Register channel not initialized"},
		{"Unregister channel", hub.Unregister != nil, "Unregister channel not initialized"},
		{"empty clients", len(hub.clients) == 0, "clients map should be empty"},
	}

	for _, c := range checks {
		if !c.check {
			t.Error(c.errMsg)
		}
	}
}

func TestHub_ClientRegistration(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)
	registerClient(hub, client)

	if hub.GetClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.GetClientCount())
	}

	hub.mu.RLock()
	if !hub.clients[client] {
		t.Error("Client should be registered")
	}
	hub.mu.RUnlock()

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients after unregister, got %d", hub.GetClientCount())
	}
}

func TestHub_UnregisterNonExistentClient(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.GetClientCount())
	}
}

func TestHub_BroadcastAlertToClients(t *testing.T) {
	hub := setupHub(t)

	const numClients = 3
	clients := make([]*Client, numClients)
	var mu sync.Mutex
	received := make([]bool, numClients)
	var wg sync.WaitGroup

	for i := 0; i < numClients; i++ {
		clients[i] = createTestClient(hub)
		registerClient(hub, clients[i])
	}

	if hub.GetClientCount() != numClients {
		t.Fatalf("Expected %d clients, got %d", numClients, hub.GetClientCount())
	}

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(idx int, c *Client) {
			defer wg.Done()
			select {
			case msg := <-c.send:
				if msg.Type == MessageTypeAlert {
					mu.Lock()
					received[idx] = true
					mu.Unlock()
				}
			case <-time.After(500 * time.Millisecond):
			}
		}(i, clients[i])
	}

	time.Sleep(20 * time.Millisecond)
	hub.BroadcastAlert(testAlert())
	wg.Wait()

	mu.Lock()
	for i, r := range received {
		if !r {
			t.Errorf("Client %d did not receive broadcast", i)
		}
	}
	mu.Unlock()
}

func TestHub_BroadcastDataUpdate(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)
	registerClient(hub, client)

	hub.BroadcastDataUpdate("production", "TG", "maize")

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeDataUpdate {
			t.Fatalf("Expected %q message, got %q", MessageTypeDataUpdate, msg.Type)
		}
		data, ok := msg.Data.(DataUpdateData)
		if !ok {
			t.Fatalf("Expected DataUpdateData, got %T", msg.Data)
		}
		if data.Kind != "production" || data.CountryCode != "TG" || data.CropID != "maize" {
			t.Errorf("Unexpected data: %+v", data)
		}
		if data.Timestamp == "" {
			t.Error("Expected non-empty timestamp")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Client did not receive data_update")
	}
}

func TestHub_BroadcastPredictionUpdate(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)
	registerClient(hub, client)

	prediction := &models.YieldPrediction{
		CountryCode:    "GH",
		CropID:         "cocoa",
		PredictedYield: 0.82,
		Confidence:     0.9,
		ModelName:      "agri-yield",
		ModelVersion:   "1.2.0",
		GeneratedAt:    time.Now().UTC(),
	}
	hub.BroadcastPredictionUpdate(prediction)

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypePredictionUpdate {
			t.Fatalf("Expected %q message, got %q", MessageTypePredictionUpdate, msg.Type)
		}
		got, ok := msg.Data.(*models.YieldPrediction)
		if !ok {
			t.Fatalf("Expected *models.YieldPrediction, got %T", msg.Data)
		}
		if got.CountryCode != "GH" || got.CropID != "cocoa" {
			t.Errorf("Unexpected prediction: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Client did not receive prediction_update")
	}
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := setupHub(t)
	hub.BroadcastAlert(testAlert())
	hub.BroadcastDataUpdate("price", "CI", "cocoa")
	time.Sleep(10 * time.Millisecond)
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := setupHub(t)

	slow := &Client{id: clientIDCounter.Add(1), hub: hub, conn: nil, send: make(chan Message)}
	registerClient(hub, slow)

	dropped := testutil.ToFloat64(metrics.WSErrors.WithLabelValues("slow_client"))

	// Nobody reads from slow.send, so the non-blocking broadcast drops the client.
	hub.BroadcastAlert(testAlert())
	time.Sleep(50 * time.Millisecond)

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected slow client to be dropped, got %d clients", hub.GetClientCount())
	}
	if got := testutil.ToFloat64(metrics.WSErrors.WithLabelValues("slow_client")); got != dropped+1 {
		t.Errorf("slow_client error count = %f, want %f", got, dropped+1)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	client := createTestClient(hub)
	registerClient(hub, client)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Hub did not stop after context cancellation")
	}

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients after shutdown, got %d", hub.GetClientCount())
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Expected client send channel to be closed")
		}
	default:
		t.Error("Expected client send channel to be closed")
	}
}

func TestHub_ConcurrentOperations(t *testing.T) {
	hub := setupHub(t)
	done := make(chan bool)

	go func() {
		for i := 0; i < 10; i++ {
			registerClient(hub, createTestClient(hub))
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 20; i++ {
			hub.BroadcastDataUpdate("production", "TG", "maize")
			time.Sleep(2 * time.Millisecond)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 50; i++ {
			hub.GetClientCount()
			time.Sleep(1 * time.Millisecond)
		}
		done <- true
	}()

	for i := 0; i < 3; i++ {
		<-done
	}
	time.Sleep(100 * time.Millisecond)

	if hub.GetClientCount() != 10 {
		t.Errorf("Expected 10 clients, got %d", hub.GetClientCount())
	}
}
