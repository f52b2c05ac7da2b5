package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"exista-mqtt-bridge/pkg/modbus"
	"exista-mqtt-bridge/pkg/mqtt"
)

type stubLink modbus.ComStatus

func (s stubLink) Status() modbus.ComStatus { return modbus.ComStatus(s) }

type stubBroker mqtt.State

func (s stubBroker) State() mqtt.State { return mqtt.State(s) }

type stubQueue int

func (s stubQueue) Len() int { return int(s) }

// TestHealthHandler tests the status mapping for link and broker states
func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		com        modbus.ComStatus
		broker     mqtt.State
		wantStatus string
		wantCode   int
	}{
		{"all connected", modbus.StatusConnected, mqtt.StateConnected, "healthy", http.StatusOK},
		{"device silent", modbus.StatusDisconnected, mqtt.StateConnected, "degraded", http.StatusOK},
		{"broker lost", modbus.StatusConnected, mqtt.StateReconnectPending, "unhealthy", http.StatusServiceUnavailable},
		{"never connected", modbus.StatusDisconnected, mqtt.StateDisconnected, "unhealthy", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(stubLink(tt.com), stubBroker(tt.broker), stubQueue(2), "1.0")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("Expected HTTP %d, got %d", tt.wantCode, rec.Code)
			}
			var status HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Expected %s, got %s", tt.wantStatus, status.Status)
			}
			if status.ComStatus != tt.com.String() || status.MQTTState != tt.broker.String() {
				t.Errorf("Unexpected states: %+v", status)
			}
			if status.QueueDepth != 2 {
				t.Errorf("Expected queue depth 2, got %d", status.QueueDepth)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "30 seconds"},
		{5 * time.Minute, "5 minutes"},
		{2*time.Hour + 15*time.Minute, "2 hours 15 minutes"},
		{50 * time.Hour, "2 days 2 hours"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
