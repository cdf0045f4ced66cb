// file: internal/realtime/events.go
// version: 2.1.0
// guid: 9e8d7f6a-5c4b-3a21-0f9e-8d7c6b5a4392

// Package realtime fans out import and operation events to SSE clients.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// EventType defines the type of real-time event
type EventType string

const (
	EventOperationProgress EventType = "operation.progress"
	EventOperationStatus   EventType = "operation.status"
	EventOperationLog      EventType = "operation.log"
	EventSystemStatus      EventType = "system.status"
	EventImportCompleted   EventType = "import.completed"
	EventImportDuplicate   EventType = "import.duplicate"
	EventImportFailed      EventType = "import.failed"
	EventConnected         EventType = "connection.established"
	EventHeartbeat         EventType = "heartbeat"
)

// DefaultHeartbeat is how often an idle stream is pinged.
const DefaultHeartbeat = 15 * time.Second

// OperationLookup reports the current state of an operation as the data of
// an operation.status event.
type OperationLookup func(operationID string) (map[string]interface{}, bool)

// Event represents a real-time event to send to clients
type Event struct {
	Type      EventType              `json:"type"`
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID         string
	Channel    chan *Event
	Operations map[string]bool // Operations this client is interested in
	mu         sync.RWMutex
}

// NewClient creates a new SSE client
func NewClient(id string) *Client {
	return &Client{
		ID:         id,
		Channel:    make(chan *Event, 100),
		Operations: make(map[string]bool),
	}
}

// Subscribe subscribes the client to an operation
func (c *Client) Subscribe(operationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Operations[operationID] = true
	log.Debug().Str("client", c.ID).Str("operation", operationID).Msg("client subscribed")
}

// Unsubscribe unsubscribes the client from an operation
func (c *Client) Unsubscribe(operationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Operations, operationID)
	log.Debug().Str("client", c.ID).Str("operation", operationID).Msg("client unsubscribed")
}

// IsSubscribed checks if client is subscribed to an operation
func (c *Client) IsSubscribed(operationID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Operations[operationID]
}

// wants reports whether the client should receive an event for
// operationID. System-wide events and clients without subscriptions get
// everything.
func (c *Client) wants(operationID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return operationID == "" || len(c.Operations) == 0 || c.Operations[operationID]
}

// EventHub manages SSE connections and event distribution
type EventHub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	heartbeat time.Duration
	lookup    OperationLookup
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[string]*Client),
		heartbeat: DefaultHeartbeat,
	}
}

// SetHeartbeat changes the idle ping interval of streams opened afterwards.
// Non-positive values restore the default.
func (h *EventHub) SetHeartbeat(d time.Duration) {
	if d <= 0 {
		d = DefaultHeartbeat
	}
	h.mu.Lock()
	h.heartbeat = d
	h.mu.Unlock()
}

// SetOperationLookup installs the source of operation state replayed to
// clients when they subscribe.
func (h *EventHub) SetOperationLookup(fn OperationLookup) {
	h.mu.Lock()
	h.lookup = fn
	h.mu.Unlock()
}

func (h *EventHub) streamSettings() (time.Duration, OperationLookup) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.heartbeat, h.lookup
}

// RegisterClient registers a new client
func (h *EventHub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Debug().Str("client", client.ID).Int("clients", len(h.clients)).Msg("client registered")
}

// UnregisterClient removes a client
func (h *EventHub) UnregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Debug().Str("client", clientID).Int("clients", len(h.clients)).Msg("client unregistered")
	}
}

// Broadcast sends an event to all subscribed clients
func (h *EventHub) Broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, client := range h.clients {
		if client.wants(event.ID) {
			select {
			case client.Channel <- event:
				count++
			default:
				log.Warn().Str("client", client.ID).Str("type", string(event.Type)).Msg("client channel full, dropping event")
			}
		}
	}

	if count > 0 {
		log.Trace().Str("type", string(event.Type)).Int("clients", count).Msg("broadcast event")
	}
}

// SendOperationProgress sends an operation progress event
func (h *EventHub) SendOperationProgress(operationID string, current, total int, message string) {
	event := &Event{
		Type:      EventOperationProgress,
		ID:        operationID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"operation_id": operationID,
			"current":      current,
			"total":        total,
			"message":      message,
			"percentage":   calculatePercentage(current, total),
		},
	}
	h.Broadcast(event)
}

// SendOperationStatus sends an operation status change event
func (h *EventHub) SendOperationStatus(operationID, status string, details map[string]interface{}) {
	event := &Event{
		Type:      EventOperationStatus,
		ID:        operationID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"operation_id": operationID,
			"status":       status,
			"details":      details,
		},
	}
	h.Broadcast(event)
}

// SendOperationLog sends an operation log event
func (h *EventHub) SendOperationLog(operationID, level, message string, details *string) {
	data := map[string]interface{}{
		"operation_id": operationID,
		"level":        level,
		"message":      message,
	}
	if details != nil {
		data["details"] = *details
	}

	event := &Event{
		Type:      EventOperationLog,
		ID:        operationID,
		Timestamp: time.Now(),
		Data:      data,
	}
	h.Broadcast(event)
}

// SendSystemStatus sends a system status event
func (h *EventHub) SendSystemStatus(data map[string]interface{}) {
	event := &Event{
		Type:      EventSystemStatus,
		ID:        "",
		Timestamp: time.Now(),
		Data:      data,
	}
	h.Broadcast(event)
}

// SendImportEvent publishes the outcome of a single import. operationID is
// empty for imports that are not part of a bulk operation.
func (h *EventHub) SendImportEvent(eventType EventType, operationID string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	if operationID != "" {
		data["operation_id"] = operationID
	}
	h.Broadcast(&Event{
		Type:      eventType,
		ID:        operationID,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// GetClientCount returns the number of connected clients
func (h *EventHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ParseOperationIDs splits the ?operation= value of a stream request. Ids
// may be repeated or comma separated.
func ParseOperationIDs(values []string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// HandleSSE streams events to one client. With ?operation= the stream is
// limited to those operations, and each one's current state is sent right
// after the connection event so a late subscriber still sees finished
// operations.
func (h *EventHub) HandleSSE(c *gin.Context) {
	heartbeat, lookup := h.streamSettings()
	operationIDs := ParseOperationIDs(c.QueryArray("operation"))

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("X-Accel-Buffering", "no")

	client := NewClient("client-" + ulid.Make().String())
	for _, id := range operationIDs {
		client.Subscribe(id)
	}
	h.RegisterClient(client)
	defer h.UnregisterClient(client.ID)

	logger := log.With().Str("client", client.ID).Logger()
	send := func(event *Event) bool {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Error().Err(err).Str("type", string(event.Type)).Msg("failed to marshal event")
			return true
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			logger.Debug().Err(err).Msg("failed to write SSE event")
			return false
		}
		c.Writer.Flush()
		return true
	}

	if !send(&Event{
		Type:      EventConnected,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"client_id":         client.ID,
			"operations":        operationIDs,
			"heartbeat_seconds": heartbeat.Seconds(),
		},
	}) {
		return
	}
	if lookup != nil {
		for _, id := range operationIDs {
			state, ok := lookup(id)
			if !ok {
				continue
			}
			if !send(&Event{Type: EventOperationStatus, ID: id, Timestamp: time.Now(), Data: state}) {
				return
			}
		}
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			logger.Debug().Msg("SSE connection closed")
			return
		case event, ok := <-client.Channel:
			if !ok || !send(event) {
				return
			}
		case now := <-ticker.C:
			if !send(&Event{
				Type:      EventHeartbeat,
				Timestamp: now,
				Data:      map[string]interface{}{"clients": h.GetClientCount()},
			}) {
				return
			}
		}
	}
}

// calculatePercentage calculates percentage with bounds checking
func calculatePercentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	percentage := (current * 100) / total
	if percentage > 100 {
		return 100
	}
	return percentage
}

// Global event hub instance
var GlobalHub *EventHub

// InitializeEventHub initializes the global event hub
func InitializeEventHub() {
	if GlobalHub != nil {
		log.Warn().Msg("event hub already initialized")
		return
	}
	GlobalHub = NewEventHub()
	log.Debug().Msg("event hub initialized")
}
