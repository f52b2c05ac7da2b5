package requests

import (
	"context"
	"testing"

	"exista-mqtt-bridge/pkg/modbus"
)

func TestSerialNumberOverride(t *testing.T) {
	bus := newFakeBus()
	src := NewSerialNumberSource("CFG-42", modbus.Command{})

	got, err := src.SerialNumber(context.Background(), bus)
	if err != nil {
		t.Fatalf("Expected override, got error: %v", err)
	}
	if got != "CFG-42" {
		t.Errorf("Expected CFG-42, got %s", got)
	}
	if len(bus.calls) != 0 {
		t.Errorf("Expected no device reads, got %v", bus.calls)
	}
}

func TestSerialNumberReadOnceAndCached(t *testing.T) {
	m := testModbusConfig(t)
	bus := newFakeBus()
	bus.set("READ_SERIAL_NUMBER", []byte("EX12345678\x00\x00\x00\x00\x00\x00")...)
	src := NewSerialNumberSource("", SerialNumberCommand(m))

	for i := 0; i < 3; i++ {
		got, err := src.SerialNumber(context.Background(), bus)
		if err != nil {
			t.Fatalf("Expected serial number, got error: %v", err)
		}
		if got != "EX12345678" {
			t.Errorf("Expected EX12345678, got %q", got)
		}
	}
	if len(bus.calls) != 1 {
		t.Errorf("Expected a single device read, got %d", len(bus.calls))
	}
}

func TestSerialNumberFailureNotCached(t *testing.T) {
	m := testModbusConfig(t)
	bus := newFakeBus()
	src := NewSerialNumberSource("", SerialNumberCommand(m))

	if _, err := src.SerialNumber(context.Background(), bus); err == nil {
		t.Fatal("Expected error without a reply")
	}

	bus.set("READ_SERIAL_NUMBER", []byte("EX99")...)
	got, err := src.SerialNumber(context.Background(), bus)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if got != "EX99" {
		t.Errorf("Expected EX99, got %q", got)
	}
}
