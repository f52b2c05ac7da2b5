package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bridgeerrors "exista-mqtt-bridge/pkg/errors"
)

const minimalConfig = `
mqtt:
  broker: localhost
modbus:
  port: /dev/ttyUSB0
`

func TestLoadConfigFromStringAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfigFromString(minimalConfig)
	if err != nil {
		t.Fatalf("Expected valid config, got error: %v", err)
	}

	if cfg.Version != CurrentVersion {
		t.Errorf("Expected version %s, got %s", CurrentVersion, cfg.Version)
	}
	if cfg.MQTT.Port != 1883 {
		t.Errorf("Expected default port 1883, got %d", cfg.MQTT.Port)
	}
	if cfg.MQTT.RetryDelay != DefaultRetryDelayMs {
		t.Errorf("Expected default retry delay %d, got %d", DefaultRetryDelayMs, cfg.MQTT.RetryDelay)
	}
	if cfg.MQTT.Topics.BatteryInfoRequest != DefaultTopicBatteryInfoReq {
		t.Errorf("Expected default battery info request topic, got %s", cfg.MQTT.Topics.BatteryInfoRequest)
	}
	if cfg.MQTT.QoS != DefaultSubscribeQoS {
		t.Errorf("Expected default subscribe qos %d, got %d", DefaultSubscribeQoS, cfg.MQTT.QoS)
	}
	if cfg.Modbus.FunctionCode != 0x03 {
		t.Errorf("Expected default function code 0x03, got 0x%02X", cfg.Modbus.FunctionCode)
	}
	if cfg.Modbus.Registers.SOC.Quantity != 1 {
		t.Errorf("Expected default SOC register quantity 1, got %d", cfg.Modbus.Registers.SOC.Quantity)
	}
}

func TestExplicitZeroQoSIsKept(t *testing.T) {
	cfg, err := LoadConfigFromString("mqtt:\n  broker: localhost\n  qos: 0\nmodbus:\n  port: /dev/ttyUSB0\n")
	if err != nil {
		t.Fatalf("Expected valid config, got error: %v", err)
	}
	if cfg.MQTT.QoS != 0 {
		t.Errorf("Expected qos 0, got %d", cfg.MQTT.QoS)
	}
}

func TestValidateRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing broker",
			yaml:    "modbus:\n  port: /dev/ttyUSB0\n",
			wantErr: "mqtt.broker",
		},
		{
			name:    "missing serial port",
			yaml:    "mqtt:\n  broker: localhost\n",
			wantErr: "modbus.port",
		},
		{
			name:    "qos out of range",
			yaml:    "mqtt:\n  broker: localhost\n  qos: 3\nmodbus:\n  port: /dev/ttyUSB0\n",
			wantErr: "mqtt.qos",
		},
		{
			name:    "bad parity",
			yaml:    "mqtt:\n  broker: localhost\nmodbus:\n  port: /dev/ttyUSB0\n  parity: X\n",
			wantErr: "modbus.parity",
		},
		{
			name:    "event code collides with read code",
			yaml:    "mqtt:\n  broker: localhost\nmodbus:\n  port: /dev/ttyUSB0\n  event_function_code: 3\n",
			wantErr: "event_function_code",
		},
		{
			name:    "same request topics",
			yaml:    "mqtt:\n  broker: localhost\n  topics:\n    battery_info_req: a\n    device_info: a\nmodbus:\n  port: /dev/ttyUSB0\n",
			wantErr: "must differ",
		},
		{
			name:    "unsupported version",
			yaml:    "version: \"9.9\"\n" + minimalConfig,
			wantErr: "incompatible configuration version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromString(tt.yaml)
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestValidationErrorsAreConfigErrors checks the failing field is reported
// through a ConfigError
func TestValidationErrorsAreConfigErrors(t *testing.T) {
	_, err := LoadConfigFromString("mqtt:\n  broker: localhost\n  qos: 3\nmodbus:\n  port: /dev/ttyUSB0\n")

	var cfgErr *bridgeerrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError, got %T: %v", err, err)
	}
	if cfgErr.Field != "mqtt.qos" {
		t.Errorf("Expected field mqtt.qos, got %s", cfgErr.Field)
	}
	if bridgeerrors.IsRecoverable(err) {
		t.Error("Expected configuration errors not to be recoverable")
	}
	if code := bridgeerrors.GetDiagnosticCode(err); code != bridgeerrors.CodeConfig {
		t.Errorf("Expected diagnostic code %d, got %d", bridgeerrors.CodeConfig, code)
	}
}

func TestLoadConfigMissingFileIsConfigError(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Skip("a configuration exists in a default location on this host")
	}
	var cfgErr *bridgeerrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigError, got %T: %v", err, err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
version: "1.0"
mqtt:
  broker: broker.local
  port: 8883
  retry_delay: 250
  qos: 1
modbus:
  port: /dev/ttyS1
  heartbeat_interval: 10
  registers:
    soc:
      address: 0x0300
      quantity: 1
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected config to load, got %v", err)
	}
	if cfg.Modbus.Registers.SOC.Address != 0x0300 {
		t.Errorf("Expected SOC address 0x0300, got 0x%04X", cfg.Modbus.Registers.SOC.Address)
	}

	mqtt := NewMQTTSettings(cfg)
	if mqtt.BrokerURL != "tcp://broker.local:8883" {
		t.Errorf("Unexpected broker URL %s", mqtt.BrokerURL)
	}
	if mqtt.RetryDelay != 250*time.Millisecond {
		t.Errorf("Expected retry delay 250ms, got %v", mqtt.RetryDelay)
	}

	modbus := NewModbusSettings(cfg)
	if modbus.HeartbeatInterval != 10*time.Second {
		t.Errorf("Expected heartbeat interval 10s, got %v", modbus.HeartbeatInterval)
	}
}
