package requests

import (
	"time"

	"exista-mqtt-bridge/pkg/modbus"

	"github.com/google/uuid"
)

// Kind tags what produced a queued request
type Kind int

const (
	// KindDeviceEvent is an unsolicited frame captured by the listener
	KindDeviceEvent Kind = iota
	// KindInbound is work triggered by an MQTT message
	KindInbound
)

func (k Kind) String() string {
	switch k {
	case KindDeviceEvent:
		return "device_event"
	case KindInbound:
		return "inbound"
	default:
		return "unknown"
	}
}

// Request is one unit of work waiting in the queue.
// Once pushed, the queue owns the request until it is popped.
type Request struct {
	ID         uuid.UUID
	Kind       Kind
	Frame      modbus.Frame // set for KindDeviceEvent
	Topic      string       // set for KindInbound
	Payload    []byte       // set for KindInbound
	ReceivedAt time.Time
}

// NewDeviceEvent wraps an event frame. The frame bytes are kept as received.
func NewDeviceEvent(frame modbus.Frame) Request {
	return Request{
		ID:         uuid.New(),
		Kind:       KindDeviceEvent,
		Frame:      frame,
		ReceivedAt: time.Now(),
	}
}

// NewInbound wraps an MQTT message
func NewInbound(topic string, payload []byte) Request {
	return Request{
		ID:         uuid.New(),
		Kind:       KindInbound,
		Topic:      topic,
		Payload:    append([]byte(nil), payload...),
		ReceivedAt: time.Now(),
	}
}
