package requests

import (
	"context"
	"fmt"
	"sync"

	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/modbus"
)

// SerialSource provides the device serial number stamped on every document
type SerialSource interface {
	SerialNumber(ctx context.Context, bus modbus.Bus) (string, error)
}

// SerialNumberSource reads the serial number once and serves the cached
// value afterwards. A failed read is not cached.
type SerialNumberSource struct {
	mu       sync.Mutex
	value    string
	override string
	cmd      modbus.Command
}

// NewSerialNumberSource creates a source. A non-empty override is returned
// as-is and the device is never asked.
func NewSerialNumberSource(override string, cmd modbus.Command) *SerialNumberSource {
	return &SerialNumberSource{override: override, cmd: cmd}
}

// SerialNumber returns the cached serial number, reading it from the device on first use
func (s *SerialNumberSource) SerialNumber(ctx context.Context, bus modbus.Bus) (string, error) {
	if s.override != "" {
		return s.override, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value != "" {
		return s.value, nil
	}

	reply, err := bus.Send(ctx, s.cmd)
	if err != nil {
		return "", fmt.Errorf("read serial number: %w", err)
	}
	payload, err := reply.Payload()
	if err != nil {
		return "", fmt.Errorf("read serial number: %w", err)
	}
	value, err := modbus.RegistersString(payload)
	if err != nil {
		return "", fmt.Errorf("decode serial number: %w", err)
	}
	if value == "" {
		return "", fmt.Errorf("device reported an empty serial number")
	}

	s.value = value
	logger.LogInfo("🔖 Device serial number: %s", value)
	return value, nil
}
