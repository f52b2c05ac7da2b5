package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"exista-mqtt-bridge/pkg/config"
	bridgeerrors "exista-mqtt-bridge/pkg/errors"
	"exista-mqtt-bridge/pkg/handler"
	"exista-mqtt-bridge/pkg/logger"

	"github.com/google/go-cmp/cmp"
)

// mockEngine records what the bridge asks of it. Connection outcomes are
// driven by the test through the bridge callbacks.
type mockEngine struct {
	mu         sync.Mutex
	cb         Callbacks
	connects   int
	subscribes []map[string]byte
	publishes  []string
	disconnect int
}

func (e *mockEngine) SetCallbacks(cb Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cb = cb
}

func (e *mockEngine) Connect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connects++
}

func (e *mockEngine) Subscribe(topics map[string]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribes = append(e.subscribes, topics)
	return nil
}

func (e *mockEngine) Publish(topic string, qos byte, retained bool, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publishes = append(e.publishes, topic+"="+string(payload))
	return nil
}

func (e *mockEngine) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnect++
}

func (e *mockEngine) counts() (connects, subscribes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connects, len(e.subscribes)
}

type mockHandler struct {
	err   error
	calls []string
}

func (h *mockHandler) HandleMessage(_ context.Context, topic string, _ []byte) (handler.Report, error) {
	h.calls = append(h.calls, topic)
	return handler.Report{Trigger: topic}, h.err
}

func testSettings() config.MQTTSettings {
	return config.MQTTSettings{
		BrokerURL:  "tcp://localhost:1883",
		ClientID:   "test",
		RetryDelay: time.Second,
		QoS:        1,
		Topics: config.TopicsConfig{
			BatteryInfoRequest: config.DefaultTopicBatteryInfoReq,
			BatteryInfoReply:   config.DefaultTopicBatteryInfoRep,
			DeviceInfoRequest:  config.DefaultTopicDeviceInfo,
			DeviceInfoReply:    config.DefaultTopicDeviceInfoRep,
			Status:             config.DefaultTopicStatus,
		},
	}
}

// recordingSleep returns immediately and records every requested delay
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestBridge(h MessageHandler) (*Bridge, *mockEngine, *recordingSleep) {
	engine := &mockEngine{}
	rs := &recordingSleep{}
	b := NewBridge(engine, h, testSettings(), nil).WithSleep(rs.sleep)
	return b, engine, rs
}

func TestBridgeStartsDisconnected(t *testing.T) {
	b, engine, _ := newTestBridge(&mockHandler{})
	if b.State() != StateDisconnected {
		t.Errorf("Expected initial state disconnected, got %s", b.State())
	}

	b.Start(context.Background())
	if connects, _ := engine.counts(); connects != 1 {
		t.Errorf("Expected one initial connect, got %d", connects)
	}
	if engine.cb.OnConnect == nil || engine.cb.OnConnectionLost == nil ||
		engine.cb.OnConnectFailure == nil || engine.cb.OnMessage == nil {
		t.Error("Expected all callbacks registered on Start")
	}
}

// TestBridgeReconnectSubscribesOnceAfterSuccess: lost, one failed reconnect,
// one successful reconnect -> exactly one subscribe, after the success
func TestBridgeReconnectSubscribesOnceAfterSuccess(t *testing.T) {
	b, engine, rs := newTestBridge(&mockHandler{})
	b.Start(context.Background())
	b.OnConnectSuccess()

	engine.mu.Lock()
	engine.connects = 0
	engine.subscribes = nil
	engine.mu.Unlock()

	b.OnConnectionLost(errors.New("broker went away"))
	if b.State() != StateReconnectPending {
		t.Errorf("Expected reconnect pending after loss, got %s", b.State())
	}
	if c, s := engine.counts(); c != 1 || s != 0 {
		t.Fatalf("Expected 1 reconnect and no subscribe, got %d/%d", c, s)
	}

	b.OnConnectFailure(errors.New("connection refused"))
	if b.State() != StateReconnectPending {
		t.Errorf("Expected to stay reconnect pending, got %s", b.State())
	}
	if c, s := engine.counts(); c != 2 || s != 0 {
		t.Fatalf("Expected 2 reconnects and no subscribe, got %d/%d", c, s)
	}

	b.OnConnectSuccess()
	if b.State() != StateConnected {
		t.Errorf("Expected connected, got %s", b.State())
	}
	if _, s := engine.counts(); s != 1 {
		t.Fatalf("Expected exactly one subscribe, got %d", s)
	}

	want := map[string]byte{
		config.DefaultTopicBatteryInfoReq: 1,
		config.DefaultTopicDeviceInfo:     1,
	}
	if diff := cmp.Diff(want, engine.subscribes[0]); diff != "" {
		t.Errorf("subscription set mismatch (-want +got):\n%s", diff)
	}

	for _, d := range rs.delays {
		if d != time.Second {
			t.Errorf("Expected fixed 1s retry delay, got %v", d)
		}
	}
	if len(rs.delays) != 2 {
		t.Errorf("Expected 2 waits, got %d", len(rs.delays))
	}
}

func TestBridgeAnnouncesOnlineOnConnect(t *testing.T) {
	b, engine, _ := newTestBridge(&mockHandler{})
	b.OnConnectSuccess()

	want := []string{config.DefaultTopicStatus + "=" + StatusOnline}
	if diff := cmp.Diff(want, engine.publishes); diff != "" {
		t.Errorf("publishes mismatch (-want +got):\n%s", diff)
	}

	b.Stop()
	if engine.publishes[len(engine.publishes)-1] != config.DefaultTopicStatus+"="+StatusOffline {
		t.Errorf("Expected offline published on stop, got %v", engine.publishes)
	}
	if b.State() != StateDisconnected {
		t.Errorf("Expected disconnected after stop, got %s", b.State())
	}
}

func TestBridgeReconnectAbandonedOnShutdown(t *testing.T) {
	b, engine, _ := newTestBridge(&mockHandler{})
	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	cancel()

	b.OnConnectFailure(errors.New("refused"))
	if c, _ := engine.counts(); c != 1 {
		t.Errorf("Expected no reconnect after shutdown, got %d connects", c)
	}
}

func TestBridgeMessageSuccess(t *testing.T) {
	h := &mockHandler{}
	b, _, _ := newTestBridge(h)
	b.OnMessage(config.DefaultTopicBatteryInfoReq, []byte("{}"))

	if len(h.calls) != 1 || h.calls[0] != config.DefaultTopicBatteryInfoReq {
		t.Errorf("Expected handler called with request topic, got %v", h.calls)
	}
	select {
	case err := <-b.Fatal():
		t.Errorf("Expected no fatal signal, got %v", err)
	default:
	}
}

func TestBridgeMessageFailureIsFatal(t *testing.T) {
	h := &mockHandler{err: errors.New("modbus timeout")}
	log := logger.NewMockLogger()
	b, _, _ := newTestBridge(h)
	b.WithLogger(log)
	b.OnMessage(config.DefaultTopicBatteryInfoReq, nil)

	select {
	case err := <-b.Fatal():
		if !bridgeerrors.IsFatal(err) {
			t.Errorf("Expected FatalError, got %v", err)
		}
	default:
		t.Fatal("Expected a fatal signal after handler failure")
	}
	if log.Count(logger.LogLevelError) != 1 {
		t.Errorf("Expected one error logged, got %v", log.Messages(logger.LogLevelError))
	}
}

// cancellingHandler stops the bridge while a message is being handled
type cancellingHandler struct {
	cancel context.CancelFunc
	calls  int
}

func (h *cancellingHandler) HandleMessage(ctx context.Context, topic string, _ []byte) (handler.Report, error) {
	h.calls++
	h.cancel()
	return handler.Report{}, ctx.Err()
}

func TestBridgeMessageDuringShutdownIsNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &cancellingHandler{cancel: cancel}
	log := logger.NewMockLogger()
	b, _, _ := newTestBridge(h)
	b.WithLogger(log)
	b.Start(ctx)

	b.OnMessage(config.DefaultTopicBatteryInfoReq, nil)
	b.OnMessage(config.DefaultTopicDeviceInfo, nil)

	if h.calls != 1 {
		t.Errorf("Expected only the message received before shutdown to be handled, got %d", h.calls)
	}
	select {
	case err := <-b.Fatal():
		t.Errorf("Expected no fatal signal during shutdown, got %v", err)
	default:
	}
	if log.Count(logger.LogLevelError) != 0 {
		t.Errorf("Expected no error logged during shutdown, got %v", log.Messages(logger.LogLevelError))
	}
}

func TestBridgePublishWrapsEngineError(t *testing.T) {
	b := NewBridge(&failingEngine{}, nil, testSettings(), nil)
	err := b.Publish("t", 0, false, nil)
	var mqttErr *bridgeerrors.MQTTError
	if !errors.As(err, &mqttErr) {
		t.Fatalf("Expected MQTTError, got %v", err)
	}
	if mqttErr.Topic != "t" {
		t.Errorf("Expected topic t, got %s", mqttErr.Topic)
	}
}

type failingEngine struct{ mockEngine }

func (e *failingEngine) Publish(string, byte, bool, []byte) error {
	return errors.New("not connected")
}
