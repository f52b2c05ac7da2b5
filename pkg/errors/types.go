package errors

import (
	"errors"
	"fmt"
)

// ErrorSeverity defines the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic codes carried by BridgeError
const (
	CodeConfig  = 1
	CodeQueue   = 2
	CodeModbus  = 3
	CodeMQTT    = 4
	CodeHandler = 5
	CodeGeneric = 99
)

// BridgeError is the base error type for all bridge errors
type BridgeError struct {
	Op       string        // Operation that failed
	Err      error         // Underlying error
	Severity ErrorSeverity // Error severity
	Code     int           // Diagnostic code
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Severity, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Op)
}

// Unwrap returns the underlying error
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// ModbusError represents a failed exchange on the Modbus link
type ModbusError struct {
	BridgeError
	Command string
	SlaveID uint8
}

// NewModbusError creates a new Modbus error for the named command
func NewModbusError(op string, err error, command string) *ModbusError {
	return &ModbusError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeModbus,
		},
		Command: command,
	}
}

// Error implements the error interface
func (e *ModbusError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("[%s] Modbus command '%s': %s: %v", e.Severity, e.Command, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Modbus: %s: %v", e.Severity, e.Op, e.Err)
}

// MQTTError represents errors from MQTT operations
type MQTTError struct {
	BridgeError
	Broker string
	Topic  string
	QoS    byte
}

// NewMQTTError creates a new MQTT error
func NewMQTTError(op string, err error, broker string) *MQTTError {
	return &MQTTError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeMQTT,
		},
		Broker: broker,
	}
}

// Error implements the error interface
func (e *MQTTError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("[%s] MQTT broker '%s' (topic: %s): %s: %v",
			e.Severity, e.Broker, e.Topic, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] MQTT broker '%s': %s: %v",
		e.Severity, e.Broker, e.Op, e.Err)
}

// QueueError represents a failure to hand a request to the requests queue
type QueueError struct {
	BridgeError
	RequestID string
}

// NewQueueError creates a new queue error. Queue writes losing events are critical.
func NewQueueError(op string, err error, requestID string) *QueueError {
	return &QueueError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityCritical,
			Code:     CodeQueue,
		},
		RequestID: requestID,
	}
}

// Error implements the error interface
func (e *QueueError) Error() string {
	return fmt.Sprintf("[%s] Requests queue (request %s): %s: %v", e.Severity, e.RequestID, e.Op, e.Err)
}

// ConfigError represents configuration errors
type ConfigError struct {
	BridgeError
	Field string
}

// NewConfigError creates a new configuration error
func NewConfigError(op string, err error, field string) *ConfigError {
	return &ConfigError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityCritical,
			Code:     CodeConfig,
		},
		Field: field,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] Configuration field '%s': %s: %v",
			e.Severity, e.Field, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Configuration: %s: %v", e.Severity, e.Op, e.Err)
}

// HandlerError represents a request that could not be turned into a reply
type HandlerError struct {
	BridgeError
	Topic string
}

// NewHandlerError creates a new handler error for the request topic
func NewHandlerError(op string, err error, topic string) *HandlerError {
	return &HandlerError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeHandler,
		},
		Topic: topic,
	}
}

// Error implements the error interface
func (e *HandlerError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("[%s] Handler (topic: %s): %s: %v", e.Severity, e.Topic, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Handler: %s: %v", e.Severity, e.Op, e.Err)
}

// FatalError marks a condition that must end the process.
// The supervisor restarts the bridge; nothing retries locally.
type FatalError struct {
	Source string // service or callback that raised it
	Err    error
}

// NewFatalError wraps err as fatal
func NewFatalError(source string, err error) *FatalError {
	return &FatalError{Source: source, Err: err}
}

// Error implements the error interface
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error in %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error
func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err, or anything it wraps, is a FatalError
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
