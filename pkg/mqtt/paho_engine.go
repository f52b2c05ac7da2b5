package mqtt

import (
	"fmt"
	"sync"
	"time"

	"exista-mqtt-bridge/pkg/config"
	"exista-mqtt-bridge/pkg/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const operationTimeout = 10 * time.Second

// PahoEngine adapts the paho client to Engine. Automatic reconnection is
// off; the bridge decides when to reconnect.
type PahoEngine struct {
	client paho.Client

	mu sync.RWMutex
	cb Callbacks
}

// NewPahoEngine creates a client for the broker in settings. The last will
// marks the bridge offline on the status topic.
func NewPahoEngine(settings config.MQTTSettings) *PahoEngine {
	e := &PahoEngine{}

	opts := paho.NewClientOptions()
	opts.AddBroker(settings.BrokerURL)
	opts.SetClientID(settings.ClientID)
	opts.SetUsername(settings.Username)
	opts.SetPassword(settings.Password)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(settings.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(operationTimeout)
	// message handlers publish replies and wait on tokens
	opts.SetOrderMatters(false)
	opts.SetWill(settings.Topics.Status, StatusOffline, 1, true)

	opts.SetOnConnectHandler(func(paho.Client) {
		if cb := e.callbacks(); cb.OnConnect != nil {
			cb.OnConnect()
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		if cb := e.callbacks(); cb.OnConnectionLost != nil {
			cb.OnConnectionLost(err)
		}
	})

	e.client = paho.NewClient(opts)
	return e
}

func (e *PahoEngine) SetCallbacks(cb Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cb = cb
}

func (e *PahoEngine) callbacks() Callbacks {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cb
}

// Connect starts a connection attempt in the background. Success is
// reported by the client's on-connect handler.
func (e *PahoEngine) Connect() {
	go func() {
		token := e.client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			if cb := e.callbacks(); cb.OnConnectFailure != nil {
				cb.OnConnectFailure(err)
			}
		}
	}()
}

// Subscribe subscribes to all topics with one request
func (e *PahoEngine) Subscribe(topics map[string]byte) error {
	token := e.client.SubscribeMultiple(topics, func(_ paho.Client, msg paho.Message) {
		if cb := e.callbacks(); cb.OnMessage != nil {
			cb.OnMessage(msg.Topic(), msg.Payload())
		}
	})
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("subscribe timed out after %v", operationTimeout)
	}
	return token.Error()
}

func (e *PahoEngine) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !e.client.IsConnectionOpen() {
		return fmt.Errorf("not connected")
	}
	token := e.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("publish to %s timed out after %v", topic, operationTimeout)
	}
	if err := token.Error(); err != nil {
		return err
	}
	logger.LogTrace("📤 Published %d bytes to %s", len(payload), topic)
	return nil
}

func (e *PahoEngine) Disconnect() {
	if e.client.IsConnected() {
		e.client.Disconnect(250)
	}
}

var _ Engine = (*PahoEngine)(nil)
