package metrics

import "time"

// MetricsCollector defines the interface for collecting bridge metrics.
//
// Implementations:
//   - PrometheusMetrics: client_golang collectors served on /metrics
//   - NullMetrics: no-op implementation when metrics are disabled
type MetricsCollector interface {
	// ObserveHeartbeat records one heartbeat probe and the resulting com status
	ObserveHeartbeat(ok bool)

	// IncrementModbusErrors counts a failed Modbus exchange outside the heartbeat
	IncrementModbusErrors()

	// ObserveModbusReadDuration records how long a document build spent on the link
	ObserveModbusReadDuration(duration time.Duration)

	// IncrementEventsQueued counts device events pushed by the listener
	IncrementEventsQueued()

	// SetQueueDepth reports the number of requests waiting in the queue
	SetQueueDepth(depth int)

	// IncrementMQTTPublishes counts successful reply publishes
	IncrementMQTTPublishes()

	// IncrementMQTTErrors counts failed reply publishes
	IncrementMQTTErrors()

	// IncrementRequestFailures counts requests whose document could not be built
	IncrementRequestFailures()

	// SetBrokerConnected reports the MQTT connection state
	SetBrokerConnected(connected bool)

	// IncrementReconnectAttempts counts reconnect attempts issued by the bridge
	IncrementReconnectAttempts()

	// StartMetricsServer starts an HTTP server to expose metrics
	// Parameters:
	//   - port: HTTP port to listen on (0 disables the server)
	StartMetricsServer(port int) error
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector
var _ MetricsCollector = (*PrometheusMetrics)(nil)
