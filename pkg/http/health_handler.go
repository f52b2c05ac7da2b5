package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"exista-mqtt-bridge/pkg/modbus"
	"exista-mqtt-bridge/pkg/mqtt"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp  time.Time `json:"timestamp"`
	Uptime     string    `json:"uptime"`
	ComStatus  string    `json:"com_status"`  // Modbus link as seen by the last heartbeat
	MQTTState  string    `json:"mqtt_state"`  // Bridge connection state
	QueueDepth int       `json:"queue_depth"` // Requests waiting for the dispatcher
	Version    string    `json:"version,omitempty"`
}

// LinkStatus reports the Modbus com status
type LinkStatus interface {
	Status() modbus.ComStatus
}

// BrokerState reports the MQTT bridge state
type BrokerState interface {
	State() mqtt.State
}

// QueueLength reports the requests queue depth
type QueueLength interface {
	Len() int
}

// HealthHandler provides HTTP health check endpoint
type HealthHandler struct {
	startTime time.Time
	link      LinkStatus
	broker    BrokerState
	queue     QueueLength
	version   string
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(link LinkStatus, broker BrokerState, queue QueueLength, version string) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		link:      link,
		broker:    broker,
		queue:     queue,
		version:   version,
	}
}

// ServeHTTP implements http.Handler interface for /health endpoint
func (hh *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := hh.getHealthStatus()

	w.Header().Set("Content-Type", "application/json")

	statusCode := http.StatusOK
	if status.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(status); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode health status: %v", err), http.StatusInternalServerError)
	}
}

// getHealthStatus determines current health status. Without a broker
// connection no request can be answered; a silent device only degrades.
func (hh *HealthHandler) getHealthStatus() HealthStatus {
	now := time.Now()
	com := hh.link.Status()
	state := hh.broker.State()

	status := "healthy"
	switch {
	case state != mqtt.StateConnected:
		status = "unhealthy"
	case com != modbus.StatusConnected:
		status = "degraded"
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  now,
		Uptime:     formatDuration(now.Sub(hh.startTime)),
		ComStatus:  com.String(),
		MQTTState:  state.String(),
		QueueDepth: hh.queue.Len(),
		Version:    hh.version,
	}
}

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours %d minutes", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%d days %d hours", int(d.Hours())/24, int(d.Hours())%24)
	}
}

// StartHealthServer starts an HTTP server for health checks
func StartHealthServer(handler *HealthHandler, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/health", handler)

	// Create server with secure timeout settings (gosec G114)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server.ListenAndServe()
}
