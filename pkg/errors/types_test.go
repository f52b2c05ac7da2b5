package errors

import (
	"errors"
	"fmt"
	"testing"
)

// TestModbusErrorCreation tests creating ModbusError
func TestModbusErrorCreation(t *testing.T) {
	baseErr := fmt.Errorf("timeout reading register")
	modbusErr := NewModbusError("send", baseErr, "read_soc")
	modbusErr.SlaveID = 1

	if modbusErr.Command != "read_soc" {
		t.Errorf("Expected Command 'read_soc', got '%s'", modbusErr.Command)
	}
	if modbusErr.Code != CodeModbus {
		t.Errorf("Expected Code %d, got %d", CodeModbus, modbusErr.Code)
	}
	if modbusErr.Error() == "" {
		t.Error("Expected non-empty error message")
	}
}

// TestErrorUnwrapping tests error unwrapping
func TestErrorUnwrapping(t *testing.T) {
	baseErr := fmt.Errorf("base error")
	modbusErr := NewModbusError("test", baseErr, "read_voltage")

	if !errors.Is(modbusErr, baseErr) {
		t.Error("Expected to unwrap to base error")
	}
}

func TestFatalDetectionThroughWrapping(t *testing.T) {
	queueErr := NewQueueError("push", fmt.Errorf("queue closed"), "abc")
	fatal := NewFatalError("listener", queueErr)
	wrapped := fmt.Errorf("service stopped: %w", fatal)

	if !IsFatal(wrapped) {
		t.Error("Expected wrapped FatalError to be detected")
	}
	if IsFatal(queueErr) {
		t.Error("Expected bare QueueError not to be fatal")
	}

	var qe *QueueError
	if !errors.As(wrapped, &qe) || qe.RequestID != "abc" {
		t.Error("Expected QueueError to be reachable through FatalError")
	}
}

// TestErrorSeverity tests error severity levels
func TestErrorSeverity(t *testing.T) {
	tests := []struct {
		name string
		err  ErrorSeverity
		want ErrorSeverity
	}{
		{"modbus", NewModbusError("x", nil, "c").Severity, SeverityError},
		{"mqtt", NewMQTTError("x", nil, "b").Severity, SeverityError},
		{"queue", NewQueueError("x", nil, "r").Severity, SeverityCritical},
		{"config", NewConfigError("x", nil, "f").Severity, SeverityCritical},
	}
	for _, tt := range tests {
		if tt.err != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, tt.err)
		}
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(NewModbusError("send", fmt.Errorf("timeout"), "heartbeat")) {
		t.Error("Expected Modbus exchange failure to be recoverable")
	}
	if IsRecoverable(NewQueueError("push", fmt.Errorf("closed"), "id")) {
		t.Error("Expected queue failure to be unrecoverable")
	}
	if IsRecoverable(NewFatalError("bridge", fmt.Errorf("handler failed"))) {
		t.Error("Expected fatal error to be unrecoverable")
	}
	if !IsRecoverable(nil) {
		t.Error("Expected nil to be recoverable")
	}
}

// TestErrorCodes tests diagnostic error codes
func TestErrorCodes(t *testing.T) {
	if code := GetDiagnosticCode(NewConfigError("t", nil, "f")); code != CodeConfig {
		t.Errorf("Expected Code %d, got %d", CodeConfig, code)
	}
	if code := GetDiagnosticCode(fmt.Errorf("wrap: %w", NewMQTTError("t", nil, "b"))); code != CodeMQTT {
		t.Errorf("Expected Code %d through wrapping, got %d", CodeMQTT, code)
	}
	if code := GetDiagnosticCode(NewHandlerError("t", nil, "exista/battery_info/req")); code != CodeHandler {
		t.Errorf("Expected Code %d, got %d", CodeHandler, code)
	}
	if code := GetDiagnosticCode(fmt.Errorf("plain")); code != CodeGeneric {
		t.Errorf("Expected generic code, got %d", code)
	}
}
