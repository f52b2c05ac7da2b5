package errors

import (
	"errors"

	"exista-mqtt-bridge/pkg/logger"
)

// Handle logs an error according to its type and severity
func Handle(err error) {
	if err == nil {
		return
	}

	var (
		fatalErr  *FatalError
		modbusErr *ModbusError
		mqttErr   *MQTTError
		queueErr  *QueueError
		configErr *ConfigError
		handleErr *HandlerError
		bridgeErr *BridgeError
	)

	switch {
	case errors.As(err, &fatalErr):
		logger.LogError("🔴 FATAL (%s): %v", fatalErr.Source, fatalErr.Err)
	case errors.As(err, &queueErr):
		logger.LogError("🔴 CRITICAL Queue Error: %s", queueErr.Error())
	case errors.As(err, &configErr):
		logger.LogError("🔴 CRITICAL Configuration Error: %s", configErr.Error())
	case errors.As(err, &modbusErr):
		logBySeverity("Modbus", modbusErr.Severity, modbusErr.Error())
	case errors.As(err, &mqttErr):
		logBySeverity("MQTT", mqttErr.Severity, mqttErr.Error())
	case errors.As(err, &handleErr):
		logBySeverity("Handler", handleErr.Severity, handleErr.Error())
	case errors.As(err, &bridgeErr):
		logBySeverity("Bridge", bridgeErr.Severity, bridgeErr.Error())
	default:
		logger.LogError("Untyped Error: %v", err)
	}
}

func logBySeverity(kind string, severity ErrorSeverity, msg string) {
	switch severity {
	case SeverityCritical:
		logger.LogError("🔴 CRITICAL %s Error: %s", kind, msg)
	case SeverityError:
		logger.LogError("%s Error: %s", kind, msg)
	case SeverityWarning:
		logger.LogWarn("%s Warning: %s", kind, msg)
	default:
		logger.LogInfo("%s Info: %s", kind, msg)
	}
}

// IsRecoverable returns true if the error is recoverable
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	if IsFatal(err) {
		return false
	}

	var (
		configErr *ConfigError
		queueErr  *QueueError
		modbusErr *ModbusError
		mqttErr   *MQTTError
		handleErr *HandlerError
		bridgeErr *BridgeError
	)
	switch {
	case errors.As(err, &configErr), errors.As(err, &queueErr):
		return false
	case errors.As(err, &handleErr):
		return handleErr.Severity != SeverityCritical
	case errors.As(err, &modbusErr):
		return modbusErr.Severity != SeverityCritical
	case errors.As(err, &mqttErr):
		return mqttErr.Severity != SeverityCritical
	case errors.As(err, &bridgeErr):
		return bridgeErr.Severity != SeverityCritical
	default:
		return true // Unknown errors are assumed recoverable
	}
}

// GetDiagnosticCode extracts the diagnostic code from an error
func GetDiagnosticCode(err error) int {
	if err == nil {
		return 0
	}

	var (
		modbusErr *ModbusError
		mqttErr   *MQTTError
		queueErr  *QueueError
		configErr *ConfigError
		handleErr *HandlerError
		bridgeErr *BridgeError
	)
	switch {
	case errors.As(err, &modbusErr):
		return modbusErr.Code
	case errors.As(err, &handleErr):
		return handleErr.Code
	case errors.As(err, &mqttErr):
		return mqttErr.Code
	case errors.As(err, &queueErr):
		return queueErr.Code
	case errors.As(err, &configErr):
		return configErr.Code
	case errors.As(err, &bridgeErr):
		return bridgeErr.Code
	default:
		return CodeGeneric
	}
}
