package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/modbus"
)

// BatteryInfoFields is the batteryInfo object of the reply.
// Field order here is the key order on the wire.
type BatteryInfoFields struct {
	ComStatus      *modbus.ComStatus `json:"comStatus"`
	DCStatus       *float64          `json:"dcStatus"`
	BatteryStatus  *float64          `json:"batteryStatus"`
	BatteryVoltage *float64          `json:"batteryVoltage"`
	BatteryCurrent *float64          `json:"batteryCurrent"`
	SOC            *float64          `json:"soc"`
	SOH            *float64          `json:"soh"`
	TimeLeft       *float64          `json:"timeLeft"`
}

// BatteryInfoDocument is the battery info reply
type BatteryInfoDocument struct {
	SerialNumber *string           `json:"serialNumber"`
	BatteryInfo  BatteryInfoFields `json:"batteryInfo"`
}

// BatteryInfo answers battery info requests and device events
type BatteryInfo struct {
	commands []modbus.Command
	topic    string
	serials  SerialSource

	mu  sync.RWMutex
	doc BatteryInfoDocument
}

// NewBatteryInfo creates a request object with an all-null document
func NewBatteryInfo(commands []modbus.Command, topic string, serials SerialSource) (*BatteryInfo, error) {
	if len(commands) != BatteryCommandCount {
		return nil, fmt.Errorf("battery info needs %d commands, got %d", BatteryCommandCount, len(commands))
	}
	return &BatteryInfo{
		commands: commands,
		topic:    topic,
		serials:  serials,
	}, nil
}

func (b *BatteryInfo) Commands() []modbus.Command {
	return b.commands
}

// Decode applies the percent rule to SoC and SoH and the plain value rule
// to every other position
func (b *BatteryInfo) Decode(reply modbus.Frame, index int) *float64 {
	payload, err := reply.Payload()
	if err != nil {
		logger.LogWarn("⚠️ Battery info field %d: %v", index, err)
		return nil
	}

	var v float64
	switch index {
	case IndexSOC, IndexSOH:
		v, err = modbus.RegistersPercent(payload)
	default:
		v, err = modbus.RegistersValue(payload)
	}
	if err != nil {
		logger.LogWarn("⚠️ Battery info field %d: %v", index, err)
		return nil
	}
	return &v
}

// InsertData reads the serial number, com status and the seven battery
// registers, then swaps in the new document
func (b *BatteryInfo) InsertData(ctx context.Context, bus modbus.Bus) error {
	serial, err := b.serials.SerialNumber(ctx, bus)
	if err != nil {
		return err
	}
	status := bus.Status()

	values, err := readAll(ctx, bus, b)
	if err != nil {
		return err
	}

	next := BatteryInfoDocument{
		SerialNumber: ptr(serial),
		BatteryInfo: BatteryInfoFields{
			ComStatus:      ptr(status),
			DCStatus:       values[IndexDCStatus],
			BatteryStatus:  values[IndexBatteryStatus],
			BatteryVoltage: values[IndexVoltage],
			BatteryCurrent: values[IndexCurrent],
			SOC:            values[IndexSOC],
			SOH:            values[IndexSOH],
			TimeLeft:       values[IndexBackupTime],
		},
	}

	b.mu.Lock()
	b.doc = next
	b.mu.Unlock()
	return nil
}

// Document returns a copy of the current document
func (b *BatteryInfo) Document() BatteryInfoDocument {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.doc
}

func (b *BatteryInfo) Serialize() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return json.Marshal(b.doc)
}

func (b *BatteryInfo) Topic() string {
	return b.topic
}

func (b *BatteryInfo) QoS() byte {
	return ReplyQoS
}

var _ RequestObject = (*BatteryInfo)(nil)
