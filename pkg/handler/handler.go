package handler

import (
	"context"
	"fmt"
	"time"

	"exista-mqtt-bridge/pkg/config"
	bridgeerrors "exista-mqtt-bridge/pkg/errors"
	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/metrics"
	"exista-mqtt-bridge/pkg/modbus"
	"exista-mqtt-bridge/pkg/requests"
)

// Publisher sends a serialized document to the broker
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Report describes one published reply
type Report struct {
	Trigger    string // request topic or device_event
	ReplyTopic string
	QoS        byte
	Bytes      int
	Duration   time.Duration
}

func (r Report) String() string {
	return fmt.Sprintf("%s -> %s (qos %d, %d bytes, %v)", r.Trigger, r.ReplyTopic, r.QoS, r.Bytes, r.Duration.Round(time.Millisecond))
}

// Handler turns a request into a published telemetry document
type Handler struct {
	bus       modbus.Bus
	publisher Publisher
	topics    config.TopicsConfig
	modbus    config.ModbusConfig
	serials   requests.SerialSource
	metrics   metrics.MetricsCollector
}

// NewHandler creates a request handler
func NewHandler(
	bus modbus.Bus,
	publisher Publisher,
	topics config.TopicsConfig,
	modbusCfg config.ModbusConfig,
	serials requests.SerialSource,
	collector metrics.MetricsCollector,
) *Handler {
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &Handler{
		bus:       bus,
		publisher: publisher,
		topics:    topics,
		modbus:    modbusCfg,
		serials:   serials,
		metrics:   collector,
	}
}

// ObjectFor returns a fresh request object for a request topic
func (h *Handler) ObjectFor(topic string) (requests.RequestObject, error) {
	switch topic {
	case h.topics.BatteryInfoRequest:
		return h.batteryInfo()
	case h.topics.DeviceInfoRequest:
		return requests.NewDeviceInfo(requests.DeviceInfoCommands(h.modbus), h.topics.DeviceInfoReply, h.serials)
	default:
		return nil, fmt.Errorf("no request object for topic %q", topic)
	}
}

func (h *Handler) batteryInfo() (requests.RequestObject, error) {
	return requests.NewBatteryInfo(requests.BatteryCommands(h.modbus), h.topics.BatteryInfoReply, h.serials)
}

// HandleMessage answers an MQTT request. The payload is not inspected.
func (h *Handler) HandleMessage(ctx context.Context, topic string, payload []byte) (Report, error) {
	logger.LogDebug("📨 Request on %s (%d bytes)", topic, len(payload))

	obj, err := h.ObjectFor(topic)
	if err != nil {
		return Report{}, bridgeerrors.NewHandlerError("select request object", err, topic)
	}
	return h.Execute(ctx, obj, topic)
}

// HandleRequest answers a queued request. A device event refreshes and
// publishes battery info.
func (h *Handler) HandleRequest(ctx context.Context, req requests.Request) (Report, error) {
	switch req.Kind {
	case requests.KindDeviceEvent:
		obj, err := h.batteryInfo()
		if err != nil {
			return Report{}, bridgeerrors.NewHandlerError("select request object", err, "")
		}
		return h.Execute(ctx, obj, req.Kind.String())
	case requests.KindInbound:
		return h.HandleMessage(ctx, req.Topic, req.Payload)
	default:
		return Report{}, bridgeerrors.NewHandlerError("handle request",
			fmt.Errorf("unsupported request kind %d", req.Kind), req.Topic)
	}
}

// Execute fills obj from the bus and publishes it
func (h *Handler) Execute(ctx context.Context, obj requests.RequestObject, trigger string) (Report, error) {
	start := time.Now()
	err := obj.InsertData(ctx, h.bus)
	h.metrics.ObserveModbusReadDuration(time.Since(start))
	if err != nil {
		h.metrics.IncrementModbusErrors()
		return Report{}, bridgeerrors.NewHandlerError("insert data", err, trigger)
	}

	payload, err := obj.Serialize()
	if err != nil {
		return Report{}, bridgeerrors.NewHandlerError("serialize", err, trigger)
	}

	if err := h.publisher.Publish(obj.Topic(), obj.QoS(), false, payload); err != nil {
		h.metrics.IncrementMQTTErrors()
		mqttErr := bridgeerrors.NewMQTTError("publish reply", err, "")
		mqttErr.Topic = obj.Topic()
		mqttErr.QoS = obj.QoS()
		return Report{}, mqttErr
	}
	h.metrics.IncrementMQTTPublishes()
	logger.LogTrace("📤 %s: %s", obj.Topic(), payload)

	return Report{
		Trigger:    trigger,
		ReplyTopic: obj.Topic(),
		QoS:        obj.QoS(),
		Bytes:      len(payload),
		Duration:   time.Since(start),
	}, nil
}
