package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/modbus"
)

// DeviceInfoFields is the deviceInfo object of the reply
type DeviceInfoFields struct {
	ComStatus       *modbus.ComStatus `json:"comStatus"`
	FirmwareVersion *float64          `json:"firmwareVersion"`
	Model           *float64          `json:"model"`
}

// DeviceInfoDocument is the device info reply
type DeviceInfoDocument struct {
	SerialNumber *string          `json:"serialNumber"`
	DeviceInfo   DeviceInfoFields `json:"deviceInfo"`
}

// DeviceInfo answers device info requests
type DeviceInfo struct {
	commands []modbus.Command
	topic    string
	serials  SerialSource

	mu  sync.RWMutex
	doc DeviceInfoDocument
}

// NewDeviceInfo creates a request object with an all-null document
func NewDeviceInfo(commands []modbus.Command, topic string, serials SerialSource) (*DeviceInfo, error) {
	if len(commands) != DeviceInfoCommandCount {
		return nil, fmt.Errorf("device info needs %d commands, got %d", DeviceInfoCommandCount, len(commands))
	}
	return &DeviceInfo{commands: commands, topic: topic, serials: serials}, nil
}

func (d *DeviceInfo) Commands() []modbus.Command {
	return d.commands
}

func (d *DeviceInfo) Decode(reply modbus.Frame, index int) *float64 {
	payload, err := reply.Payload()
	if err == nil {
		var v float64
		if v, err = modbus.RegistersValue(payload); err == nil {
			return &v
		}
	}
	logger.LogWarn("⚠️ Device info field %d: %v", index, err)
	return nil
}

func (d *DeviceInfo) InsertData(ctx context.Context, bus modbus.Bus) error {
	serial, err := d.serials.SerialNumber(ctx, bus)
	if err != nil {
		return err
	}
	status := bus.Status()

	values, err := readAll(ctx, bus, d)
	if err != nil {
		return err
	}

	next := DeviceInfoDocument{
		SerialNumber: ptr(serial),
		DeviceInfo: DeviceInfoFields{
			ComStatus:       ptr(status),
			FirmwareVersion: values[IndexFirmware],
			Model:           values[IndexModel],
		},
	}

	d.mu.Lock()
	d.doc = next
	d.mu.Unlock()
	return nil
}

// Document returns a copy of the current document
func (d *DeviceInfo) Document() DeviceInfoDocument {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc
}

func (d *DeviceInfo) Serialize() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.Marshal(d.doc)
}

func (d *DeviceInfo) Topic() string {
	return d.topic
}

func (d *DeviceInfo) QoS() byte {
	return ReplyQoS
}

var _ RequestObject = (*DeviceInfo)(nil)
