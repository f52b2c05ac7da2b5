package builder

import (
	"context"
	"fmt"
	"io"

	"exista-mqtt-bridge/pkg/config"
	"exista-mqtt-bridge/pkg/handler"
	bridgehttp "exista-mqtt-bridge/pkg/http"
	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/metrics"
	"exista-mqtt-bridge/pkg/modbus"
	"exista-mqtt-bridge/pkg/mqtt"
	"exista-mqtt-bridge/pkg/requests"
	"exista-mqtt-bridge/pkg/services"
)

// Version is reported on the health endpoint
const Version = "1.0.0"

// ApplicationBuilder provides a fluent interface for constructing Application instances
type ApplicationBuilder struct {
	config  *config.Config
	link    modbus.Link
	engine  mqtt.Engine
	metrics metrics.MetricsCollector
	queue   *requests.Queue
}

// NewApplicationBuilder creates a new builder with default configuration
func NewApplicationBuilder(cfg *config.Config) *ApplicationBuilder {
	return &ApplicationBuilder{config: cfg}
}

// WithLink sets a custom Modbus link instead of opening the serial port
func (b *ApplicationBuilder) WithLink(link modbus.Link) *ApplicationBuilder {
	b.link = link
	return b
}

// WithEngine sets a custom MQTT engine instead of the paho client
func (b *ApplicationBuilder) WithEngine(engine mqtt.Engine) *ApplicationBuilder {
	b.engine = engine
	return b
}

// WithMetrics sets a custom metrics collector
func (b *ApplicationBuilder) WithMetrics(collector metrics.MetricsCollector) *ApplicationBuilder {
	b.metrics = collector
	return b
}

// WithQueue sets the requests queue
func (b *ApplicationBuilder) WithQueue(q *requests.Queue) *ApplicationBuilder {
	b.queue = q
	return b
}

// Build constructs the Application with all dependencies
// Creates default implementations for any missing dependencies
func (b *ApplicationBuilder) Build() (*Application, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := b.config
	modbusSettings := config.NewModbusSettings(cfg)
	mqttSettings := config.NewMQTTSettings(cfg)

	if b.link == nil {
		link, err := modbus.OpenSerialLink(modbus.SerialConfig{
			Address:  modbusSettings.Port,
			BaudRate: modbusSettings.BaudRate,
			DataBits: modbusSettings.DataBits,
			StopBits: modbusSettings.StopBits,
			Parity:   modbusSettings.Parity,
		}, modbus.LinkOptions{
			Timeout:           modbusSettings.Timeout,
			EventFunctionCode: modbusSettings.EventFunctionCode,
		})
		if err != nil {
			return nil, err
		}
		b.link = link
	}

	if b.engine == nil {
		b.engine = mqtt.NewPahoEngine(mqttSettings)
	}

	if b.metrics == nil {
		if cfg.MetricsPort > 0 {
			b.metrics = metrics.NewPrometheusMetrics()
		} else {
			b.metrics = metrics.NewNullMetrics()
		}
	}

	if b.queue == nil {
		b.queue = requests.NewQueue()
	}

	serials := requests.NewSerialNumberSource(cfg.Device.SerialNumber, requests.SerialNumberCommand(cfg.Modbus))

	// the handler publishes through the bridge, the bridge dispatches to the handler
	bridge := mqtt.NewBridge(b.engine, nil, mqttSettings, b.metrics)
	h := handler.NewHandler(b.link, bridge, cfg.MQTT.Topics, cfg.Modbus, serials, b.metrics)
	bridge.SetHandler(h)

	heartbeat := services.NewHeartbeatService(b.link, requests.HeartbeatCommand(cfg.Modbus), modbusSettings.HeartbeatInterval, b.metrics)
	listener := services.NewListenerService(b.link, b.queue, b.metrics)
	dispatcher := handler.NewEventDispatcher(b.queue, h, b.metrics)

	runner := services.NewRunner(heartbeat, listener, dispatcher).WithFatalSignal(bridge.Fatal())

	return &Application{
		config:  cfg,
		link:    b.link,
		bridge:  bridge,
		handler: h,
		queue:   b.queue,
		runner:  runner,
		metrics: b.metrics,
		health:  bridgehttp.NewHealthHandler(b.link, bridge, b.queue, Version),
	}, nil
}

// Application wires the services, the bridge and the HTTP endpoints
type Application struct {
	config  *config.Config
	link    modbus.Link
	bridge  *mqtt.Bridge
	handler *handler.Handler
	queue   *requests.Queue
	runner  *services.Runner
	metrics metrics.MetricsCollector
	health  *bridgehttp.HealthHandler
}

// Run starts everything and blocks until ctx is cancelled or a fatal
// error occurs. The returned error is nil on an orderly stop.
func (app *Application) Run(ctx context.Context) error {
	if port := app.config.MetricsPort; port > 0 {
		go func() {
			logger.LogInfo("📊 Metrics server listening on :%d/metrics", port)
			if err := app.metrics.StartMetricsServer(port); err != nil {
				logger.LogError("❌ Metrics server error: %v", err)
			}
		}()
	}
	if port := app.config.HealthPort; port > 0 {
		go func() {
			logger.LogInfo("🩺 Health server listening on :%d/health", port)
			if err := bridgehttp.StartHealthServer(app.health, port); err != nil {
				logger.LogError("❌ Health server error: %v", err)
			}
		}()
	}

	app.bridge.Start(ctx)
	err := app.runner.Run(ctx)
	app.Stop()
	return err
}

// Stop closes the queue, leaves the broker and releases the serial port
func (app *Application) Stop() {
	app.queue.Close()
	if n := app.queue.Len(); n > 0 {
		logger.LogWarn("⚠️ %d queued requests not handled at shutdown", n)
	}
	app.bridge.Stop()
	if closer, ok := app.link.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.LogWarn("⚠️ Error closing serial port: %v", err)
		}
	}
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *config.Config {
	return app.config
}

// GetBridge returns the MQTT bridge
func (app *Application) GetBridge() *mqtt.Bridge {
	return app.bridge
}

// GetHandler returns the request handler
func (app *Application) GetHandler() *handler.Handler {
	return app.handler
}

// GetQueue returns the requests queue
func (app *Application) GetQueue() *requests.Queue {
	return app.queue
}

// GetRunner returns the service runner
func (app *Application) GetRunner() *services.Runner {
	return app.runner
}

// GetHealthHandler returns the /health handler
func (app *Application) GetHealthHandler() *bridgehttp.HealthHandler {
	return app.health
}
