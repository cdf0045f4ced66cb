// file: internal/realtime/events_test.go
// version: 2.1.0
// guid: a0b1c2d3-e4f5-6a7b-8c9d-0e1f2a3b4c5d

package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := NewClient("test-client-1")
	require.NotNil(t, client)
	assert.Equal(t, "test-client-1", client.ID)
	assert.NotNil(t, client.Channel)
	assert.NotNil(t, client.Operations)
}

func TestClient_SubscribeUnsubscribe(t *testing.T) {
	client := NewClient("c")
	client.Subscribe("op-1")
	assert.True(t, client.IsSubscribed("op-1"))
	client.Unsubscribe("op-1")
	assert.False(t, client.IsSubscribed("op-1"))
}

func TestBroadcast_Filtering(t *testing.T) {
	hub := NewEventHub()
	all := NewClient("all")
	only := NewClient("only")
	only.Subscribe("op-1")
	hub.RegisterClient(all)
	hub.RegisterClient(only)
	assert.Equal(t, 2, hub.GetClientCount())

	hub.SendOperationProgress("op-2", 1, 4, "working")
	hub.SendImportEvent(EventImportCompleted, "", map[string]interface{}{"series_code": "8CAC"})
	hub.SendOperationStatus("op-1", "completed", nil)

	assert.Len(t, all.Channel, 3)
	require.Len(t, only.Channel, 2)

	first := <-only.Channel
	assert.Equal(t, EventImportCompleted, first.Type)
	assert.Equal(t, "8CAC", first.Data["series_code"])
	second := <-only.Channel
	assert.Equal(t, EventOperationStatus, second.Type)

	progress := <-all.Channel
	assert.Equal(t, 25, progress.Data["percentage"])

	hub.UnregisterClient("all")
	hub.UnregisterClient("missing")
	assert.Equal(t, 1, hub.GetClientCount())
}

func TestSendImportEvent_OperationID(t *testing.T) {
	hub := NewEventHub()
	client := NewClient("c")
	hub.RegisterClient(client)

	hub.SendImportEvent(EventImportFailed, "op-9", nil)
	ev := <-client.Channel
	assert.Equal(t, "op-9", ev.ID)
	assert.Equal(t, "op-9", ev.Data["operation_id"])
}

func TestBroadcast_DropsWhenChannelFull(t *testing.T) {
	hub := NewEventHub()
	client := &Client{ID: "slow", Channel: make(chan *Event, 1), Operations: map[string]bool{}}
	hub.RegisterClient(client)

	hub.SendSystemStatus(map[string]interface{}{"n": 1})
	hub.SendSystemStatus(map[string]interface{}{"n": 2})
	assert.Len(t, client.Channel, 1)
}

func TestCalculatePercentage(t *testing.T) {
	tests := []struct {
		current, total, want int
	}{
		{0, 0, 0},
		{5, 10, 50},
		{15, 10, 100},
		{1, 3, 33},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calculatePercentage(tt.current, tt.total))
	}
}

func TestHandleSSE(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewEventHub()
	router := gin.New()
	router.GET("/events", hub.HandleSSE)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 0, hub.GetClientCount())
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(w.Body.String(), "connection.established"))
}

func TestParseOperationIDs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"none", nil, nil},
		{"single", []string{"op-1"}, []string{"op-1"}},
		{"comma separated", []string{"op-1, op-2"}, []string{"op-1", "op-2"}},
		{"repeated and blank", []string{"op-1", "", "op-2,op-1,"}, []string{"op-1", "op-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOperationIDs(tt.in))
		})
	}
}

// readEvents decodes the data lines of an SSE stream.
func readEvents(body io.Reader, out chan<- Event) {
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err == nil {
			out <- event
		}
	}
	close(out)
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-events:
		require.True(t, ok, "stream closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestHandleSSE_ReplaysStateAndHeartbeats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewEventHub()
	hub.SetHeartbeat(20 * time.Millisecond)
	hub.SetOperationLookup(func(id string) (map[string]interface{}, bool) {
		if id != "op-1" {
			return nil, false
		}
		return map[string]interface{}{"operation_id": id, "status": "completed"}, true
	})
	router := gin.New()
	router.GET("/events", hub.HandleSSE)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events?operation=op-1,op-2")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan Event, 16)
	go readEvents(resp.Body, events)

	connected := nextEvent(t, events)
	assert.Equal(t, EventConnected, connected.Type)
	assert.Equal(t, []interface{}{"op-1", "op-2"}, connected.Data["operations"])

	replay := nextEvent(t, events)
	assert.Equal(t, EventOperationStatus, replay.Type)
	assert.Equal(t, "op-1", replay.ID)
	assert.Equal(t, "completed", replay.Data["status"])

	// Events for operations the client did not ask for are filtered out.
	hub.SendOperationStatus("op-3", "running", nil)
	hub.SendOperationStatus("op-2", "running", nil)

	var sawStatus, sawHeartbeat bool
	for !(sawStatus && sawHeartbeat) {
		e := nextEvent(t, events)
		switch e.Type {
		case EventOperationStatus:
			assert.Equal(t, "op-2", e.ID)
			sawStatus = true
		case EventHeartbeat:
			assert.EqualValues(t, 1, e.Data["clients"])
			sawHeartbeat = true
		}
	}
}

func TestSetHeartbeatDefault(t *testing.T) {
	hub := NewEventHub()
	hub.SetHeartbeat(0)
	heartbeat, lookup := hub.streamSettings()
	assert.Equal(t, DefaultHeartbeat, heartbeat)
	assert.Nil(t, lookup)
}
