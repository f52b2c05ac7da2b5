package mqtt

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"exista-mqtt-bridge/pkg/config"
	bridgeerrors "exista-mqtt-bridge/pkg/errors"
	"exista-mqtt-bridge/pkg/handler"
	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/metrics"
)

// State of the broker connection
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateReconnectPending
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateReconnectPending:
		return "reconnect_pending"
	default:
		return "unknown"
	}
}

// Status payloads published on the status topic
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// MessageHandler answers one request message
type MessageHandler interface {
	HandleMessage(ctx context.Context, topic string, payload []byte) (handler.Report, error)
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Bridge owns the broker connection lifecycle:
//
//	Disconnected --connect ok--> Connected --lost--> ReconnectPending
//	ReconnectPending --connect failed--> ReconnectPending (sleep, retry)
//	ReconnectPending --connect ok--> Connected
//
// Retries are unbounded with a fixed delay. A failed message is fatal.
type Bridge struct {
	engine   Engine
	handler  MessageHandler
	settings config.MQTTSettings
	metrics  metrics.MetricsCollector
	sleep    SleepFunc
	log      logger.ILogger

	mu    sync.Mutex
	state State
	ctx   context.Context

	fatal chan error
}

// NewBridge creates a bridge in the Disconnected state
func NewBridge(engine Engine, h MessageHandler, settings config.MQTTSettings, collector metrics.MetricsCollector) *Bridge {
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &Bridge{
		engine:   engine,
		handler:  h,
		settings: settings,
		metrics:  collector,
		sleep:    sleep,
		log:      logger.NewStandardLogger(),
		ctx:      context.Background(),
		fatal:    make(chan error, 1),
	}
}

// WithSleep replaces the retry delay wait
func (b *Bridge) WithSleep(s SleepFunc) *Bridge {
	b.sleep = s
	return b
}

// WithLogger replaces the logger
func (b *Bridge) WithLogger(l logger.ILogger) *Bridge {
	b.log = l
	return b
}

// SetHandler sets the message handler. Used when the handler itself needs
// the bridge as its publisher.
func (b *Bridge) SetHandler(h MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// State returns the current connection state
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Fatal delivers the first message handling failure
func (b *Bridge) Fatal() <-chan error {
	return b.fatal
}

// Topics returns the fixed subscription set
func (b *Bridge) Topics() map[string]byte {
	return map[string]byte{
		b.settings.Topics.BatteryInfoRequest: b.settings.QoS,
		b.settings.Topics.DeviceInfoRequest:  b.settings.QoS,
	}
}

// Start registers the callbacks and issues the first connect. ctx bounds
// reconnect waits and message handling.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	b.engine.SetCallbacks(Callbacks{
		OnConnect:        b.OnConnectSuccess,
		OnConnectFailure: b.OnConnectFailure,
		OnConnectionLost: b.OnConnectionLost,
		OnMessage:        b.OnMessage,
	})

	b.log.LogInfo("🔄 Connecting to MQTT broker %s as %s", b.settings.BrokerURL, b.settings.ClientID)
	b.engine.Connect()
}

// Stop publishes offline and disconnects
func (b *Bridge) Stop() {
	if b.State() == StateConnected {
		if err := b.engine.Publish(b.settings.Topics.Status, 1, true, []byte(StatusOffline)); err != nil {
			b.log.LogWarn("⚠️ Error publishing offline status: %v", err)
		}
	}
	b.engine.Disconnect()
	b.setState(StateDisconnected)
	b.metrics.SetBrokerConnected(false)
	b.log.LogInfo("🔌 Disconnected from MQTT broker")
}

// OnConnectSuccess subscribes to the request topics and announces online
func (b *Bridge) OnConnectSuccess() {
	b.setState(StateConnected)
	b.metrics.SetBrokerConnected(true)
	b.log.LogInfo("✅ Connected to MQTT broker %s", b.settings.BrokerURL)

	topics := b.Topics()
	if err := b.engine.Subscribe(topics); err != nil {
		b.metrics.IncrementMQTTErrors()
		b.log.LogError("❌ Error subscribing to request topics: %v", err)
	} else {
		b.log.LogInfo("📡 Subscribed to %s (qos %d)", topicList(topics), b.settings.QoS)
	}

	if err := b.engine.Publish(b.settings.Topics.Status, 1, true, []byte(StatusOnline)); err != nil {
		b.log.LogWarn("⚠️ Error publishing online status on connect: %v", err)
	}
}

// OnConnectionLost waits the retry delay and reconnects
func (b *Bridge) OnConnectionLost(err error) {
	b.setState(StateReconnectPending)
	b.metrics.SetBrokerConnected(false)
	b.log.LogError("🔴 Connection to MQTT broker lost: %v", err)
	b.reconnect()
}

// OnConnectFailure waits the retry delay and tries again
func (b *Bridge) OnConnectFailure(err error) {
	b.setState(StateReconnectPending)
	b.log.LogError("❌ MQTT connect failed: %v", err)
	b.reconnect()
}

func (b *Bridge) reconnect() {
	ctx := b.context()
	b.log.LogInfo("⏳ Reconnecting in %v...", b.settings.RetryDelay)
	if err := b.sleep(ctx, b.settings.RetryDelay); err != nil {
		b.log.LogDebug("🔇 Reconnect abandoned: %v", err)
		return
	}
	b.metrics.IncrementReconnectAttempts()
	b.engine.Connect()
}

// OnMessage hands the request to the handler. A failure is reported on
// the fatal channel and ends the process.
func (b *Bridge) OnMessage(topic string, payload []byte) {
	b.mu.Lock()
	h := b.handler
	ctx := b.ctx
	b.mu.Unlock()

	if h == nil {
		b.signalFatal(bridgeerrors.NewHandlerError("handle message", fmt.Errorf("no handler"), topic))
		return
	}

	if ctx.Err() != nil {
		b.log.LogDebug("🔇 Message on %s ignored, bridge is stopping", topic)
		return
	}

	report, err := h.HandleMessage(ctx, topic, payload)
	if err != nil {
		if ctx.Err() != nil {
			b.log.LogDebug("🔇 Message on %s abandoned on shutdown: %v", topic, err)
			return
		}
		b.signalFatal(err)
		return
	}
	b.log.LogInfo("✅ Request handled: %s", report)
}

// Publish sends payload through the engine
func (b *Bridge) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if err := b.engine.Publish(topic, qos, retained, payload); err != nil {
		mqttErr := bridgeerrors.NewMQTTError("publish", err, b.settings.BrokerURL)
		mqttErr.Topic = topic
		mqttErr.QoS = qos
		return mqttErr
	}
	return nil
}

func (b *Bridge) signalFatal(err error) {
	fatal := bridgeerrors.NewFatalError("mqtt message handler", err)
	b.log.LogError("💥 %v", fatal)
	select {
	case b.fatal <- fatal:
	default:
	}
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	prev := b.state
	b.state = s
	b.mu.Unlock()
	if prev != s {
		b.log.LogDebug("🔀 MQTT bridge %s -> %s", prev, s)
	}
}

func (b *Bridge) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

func topicList(topics map[string]byte) []string {
	list := make([]string, 0, len(topics))
	for t := range topics {
		list = append(list, t)
	}
	sort.Strings(list)
	return list
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ handler.Publisher = (*Bridge)(nil)
