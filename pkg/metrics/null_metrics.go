package metrics

import "time"

// NullMetrics is a no-op implementation of MetricsCollector.
// Used when metrics are disabled (metrics_port = 0).
type NullMetrics struct{}

// NewNullMetrics creates a new NullMetrics instance
func NewNullMetrics() *NullMetrics {
	return &NullMetrics{}
}

func (nm *NullMetrics) ObserveHeartbeat(ok bool)                         {}
func (nm *NullMetrics) IncrementModbusErrors()                           {}
func (nm *NullMetrics) ObserveModbusReadDuration(duration time.Duration) {}
func (nm *NullMetrics) IncrementEventsQueued()                           {}
func (nm *NullMetrics) SetQueueDepth(depth int)                          {}
func (nm *NullMetrics) IncrementMQTTPublishes()                          {}
func (nm *NullMetrics) IncrementMQTTErrors()                             {}
func (nm *NullMetrics) IncrementRequestFailures()                        {}
func (nm *NullMetrics) SetBrokerConnected(connected bool)                {}
func (nm *NullMetrics) IncrementReconnectAttempts()                      {}

// StartMetricsServer is a no-op (always returns nil)
func (nm *NullMetrics) StartMetricsServer(port int) error {
	return nil
}

// Compile-time verification that NullMetrics implements MetricsCollector
var _ MetricsCollector = (*NullMetrics)(nil)
