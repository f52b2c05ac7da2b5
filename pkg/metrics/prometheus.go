package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exista_bridge"

// PrometheusMetrics tracks bridge metrics on a private registry
type PrometheusMetrics struct {
	registry *prometheus.Registry

	heartbeatProbes   *prometheus.CounterVec
	comStatus         prometheus.Gauge
	modbusErrors      prometheus.Counter
	modbusReadSeconds prometheus.Histogram
	eventsQueued      prometheus.Counter
	queueDepth        prometheus.Gauge
	mqttPublishes     prometheus.Counter
	mqttErrors        prometheus.Counter
	requestFailures   prometheus.Counter
	brokerConnected   prometheus.Gauge
	reconnectAttempts prometheus.Counter
}

// NewPrometheusMetrics creates and registers the bridge collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		heartbeatProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeat_probes_total",
			Help:      "Heartbeat probes by result.",
		}, []string{"result"}),
		comStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "com_status",
			Help:      "Modbus com status from the last heartbeat (1 = connected).",
		}),
		modbusErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modbus_errors_total",
			Help:      "Failed Modbus exchanges while building documents.",
		}),
		modbusReadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "modbus_read_duration_seconds",
			Help:      "Time spent on the link per document build.",
			Buckets:   prometheus.DefBuckets,
		}),
		eventsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_events_total",
			Help:      "Device event frames pushed onto the requests queue.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Requests waiting in the queue.",
		}),
		mqttPublishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publishes_total",
			Help:      "Successful reply publishes.",
		}),
		mqttErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_errors_total",
			Help:      "Failed reply publishes.",
		}),
		requestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "Requests whose document could not be built.",
		}),
		brokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "MQTT broker connection state (1 = connected).",
		}),
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_reconnect_attempts_total",
			Help:      "Reconnect attempts issued after a lost or failed connection.",
		}),
	}

	pm.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		pm.heartbeatProbes,
		pm.comStatus,
		pm.modbusErrors,
		pm.modbusReadSeconds,
		pm.eventsQueued,
		pm.queueDepth,
		pm.mqttPublishes,
		pm.mqttErrors,
		pm.requestFailures,
		pm.brokerConnected,
		pm.reconnectAttempts,
	)
	return pm
}

// ObserveHeartbeat counts the probe and sets the com status gauge
func (pm *PrometheusMetrics) ObserveHeartbeat(ok bool) {
	if ok {
		pm.heartbeatProbes.WithLabelValues("success").Inc()
		pm.comStatus.Set(1)
		return
	}
	pm.heartbeatProbes.WithLabelValues("failure").Inc()
	pm.comStatus.Set(0)
}

func (pm *PrometheusMetrics) IncrementModbusErrors() {
	pm.modbusErrors.Inc()
}

func (pm *PrometheusMetrics) ObserveModbusReadDuration(duration time.Duration) {
	pm.modbusReadSeconds.Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) IncrementEventsQueued() {
	pm.eventsQueued.Inc()
}

func (pm *PrometheusMetrics) SetQueueDepth(depth int) {
	pm.queueDepth.Set(float64(depth))
}

func (pm *PrometheusMetrics) IncrementMQTTPublishes() {
	pm.mqttPublishes.Inc()
}

func (pm *PrometheusMetrics) IncrementMQTTErrors() {
	pm.mqttErrors.Inc()
}

func (pm *PrometheusMetrics) IncrementRequestFailures() {
	pm.requestFailures.Inc()
}

func (pm *PrometheusMetrics) SetBrokerConnected(connected bool) {
	if connected {
		pm.brokerConnected.Set(1)
		return
	}
	pm.brokerConnected.Set(0)
}

func (pm *PrometheusMetrics) IncrementReconnectAttempts() {
	pm.reconnectAttempts.Inc()
}

// Registry exposes the underlying registry for scraping in tests
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// Handler returns the /metrics handler for this registry
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer starts an HTTP server on the given port to expose metrics
func (pm *PrometheusMetrics) StartMetricsServer(port int) error {
	if port == 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", pm.Handler())

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
