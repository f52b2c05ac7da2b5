package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	bridgeerrors "exista-mqtt-bridge/pkg/errors"
	"exista-mqtt-bridge/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Version     string               `yaml:"version,omitempty"`
	MQTT        MQTTConfig           `yaml:"mqtt"`
	Modbus      ModbusConfig         `yaml:"modbus"`
	Device      DeviceConfig         `yaml:"device"`
	Logging     logger.LoggingConfig `yaml:"logging"`
	MetricsPort int                  `yaml:"metrics_port"` // 0 disables /metrics
	HealthPort  int                  `yaml:"health_port"`  // 0 disables /health
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker     string       `yaml:"broker"`
	Port       int          `yaml:"port"`
	Username   string       `yaml:"username"`
	Password   string       `yaml:"password"`
	ClientID   string       `yaml:"client_id"`
	RetryDelay int          `yaml:"retry_delay"` // Delay between reconnect attempts in milliseconds
	KeepAlive  int          `yaml:"keep_alive"`  // Seconds
	QoS        byte         `yaml:"qos"`         // QoS used for request topic subscriptions
	Topics     TopicsConfig `yaml:"topics"`
}

// TopicsConfig holds the request/reply topic names
type TopicsConfig struct {
	BatteryInfoRequest string `yaml:"battery_info_req"`
	BatteryInfoReply   string `yaml:"battery_info_rep"`
	DeviceInfoRequest  string `yaml:"device_info"`
	DeviceInfoReply    string `yaml:"device_info_rep"`
	Status             string `yaml:"status"`
}

// ModbusConfig contains serial link and register map settings
type ModbusConfig struct {
	Port              string      `yaml:"port"` // e.g. /dev/ttyUSB0
	BaudRate          int         `yaml:"baud_rate"`
	DataBits          int         `yaml:"data_bits"`
	StopBits          int         `yaml:"stop_bits"`
	Parity            string      `yaml:"parity"`  // N, E or O
	Timeout           int         `yaml:"timeout"` // Serial read timeout in milliseconds
	SlaveID           uint8       `yaml:"slave_id"`
	FunctionCode      uint8       `yaml:"function_code"`       // Function used for register reads
	EventFunctionCode uint8       `yaml:"event_function_code"` // Function code of unsolicited device frames
	HeartbeatInterval int         `yaml:"heartbeat_interval"`  // Seconds between heartbeat probes
	Registers         RegisterMap `yaml:"registers"`
}

// RegisterMap lists the device registers the bridge reads
type RegisterMap struct {
	Heartbeat     Register `yaml:"heartbeat"`
	DCStatus      Register `yaml:"dc_status"`
	BatteryStatus Register `yaml:"battery_status"`
	Voltage       Register `yaml:"voltage"`
	Current       Register `yaml:"current"`
	SOC           Register `yaml:"soc"`
	SOH           Register `yaml:"soh"`
	BackupTime    Register `yaml:"backup_time"`
	SerialNumber  Register `yaml:"serial_number"`
	Firmware      Register `yaml:"firmware"`
	Model         Register `yaml:"model"`
}

// Register is a contiguous register block
type Register struct {
	Address  uint16 `yaml:"address"`
	Quantity uint16 `yaml:"quantity"`
}

// DeviceConfig holds device identity settings
type DeviceConfig struct {
	// SerialNumber overrides the serial number read from the device
	SerialNumber string `yaml:"serial_number,omitempty"`
}

// LoadConfig loads configuration from specified file, falling back to default locations
func LoadConfig(configPath string) (*Config, error) {
	paths := []string{
		configPath,
		"/etc/exista-bridge/config.yaml",
		"/etc/exista-bridge.yaml",
		"./config.yaml",
	}

	var data []byte
	var err error
	var usedPath string

	for _, path := range paths {
		if path == "" {
			continue
		}
		// #nosec G304 - explicit path or hardcoded configuration locations
		data, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if err != nil {
		return nil, bridgeerrors.NewConfigError("read",
			fmt.Errorf("cannot read configuration file from any of the locations: %v. Last error: %w", paths, err), "")
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", usedPath, err)
	}

	logger.LogInfo("✅ Configuration loaded successfully from %s (version: %s)", usedPath, cfg.Version)
	return cfg, nil
}

// LoadConfigFromString loads configuration from a YAML string (for testing)
func LoadConfigFromString(yamlContent string) (*Config, error) {
	return parse([]byte(yamlContent))
}

func parse(data []byte) (*Config, error) {
	var versionCheck VersionInfo
	if err := yaml.Unmarshal(data, &versionCheck); err != nil {
		return nil, bridgeerrors.NewConfigError("parse version", err, "version")
	}
	if versionCheck.Version != "" {
		if err := ValidateVersion(versionCheck.Version); err != nil {
			return nil, bridgeerrors.NewConfigError("check version", err, "version")
		}
	}

	// qos 0 is a valid setting, so its default is seeded before decoding
	config := Config{MQTT: MQTTConfig{QoS: DefaultSubscribeQoS}}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, bridgeerrors.NewConfigError("parse", err, "")
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyDefaults fills unset fields with the bridge defaults
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = CurrentVersion
	}

	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "exista-bridge"
	}
	if c.MQTT.RetryDelay == 0 {
		c.MQTT.RetryDelay = DefaultRetryDelayMs
	}
	if c.MQTT.KeepAlive == 0 {
		c.MQTT.KeepAlive = 60
	}
	t := &c.MQTT.Topics
	if t.BatteryInfoRequest == "" {
		t.BatteryInfoRequest = DefaultTopicBatteryInfoReq
	}
	if t.BatteryInfoReply == "" {
		t.BatteryInfoReply = DefaultTopicBatteryInfoRep
	}
	if t.DeviceInfoRequest == "" {
		t.DeviceInfoRequest = DefaultTopicDeviceInfo
	}
	if t.DeviceInfoReply == "" {
		t.DeviceInfoReply = DefaultTopicDeviceInfoRep
	}
	if t.Status == "" {
		t.Status = DefaultTopicStatus
	}

	m := &c.Modbus
	if m.BaudRate == 0 {
		m.BaudRate = 9600
	}
	if m.DataBits == 0 {
		m.DataBits = 8
	}
	if m.StopBits == 0 {
		m.StopBits = 1
	}
	if m.Parity == "" {
		m.Parity = "N"
	}
	if m.Timeout == 0 {
		m.Timeout = 500
	}
	if m.SlaveID == 0 {
		m.SlaveID = 1
	}
	if m.FunctionCode == 0 {
		m.FunctionCode = 0x03
	}
	if m.EventFunctionCode == 0 {
		m.EventFunctionCode = DefaultEventFunctionCode
	}
	if m.HeartbeatInterval == 0 {
		m.HeartbeatInterval = DefaultHeartbeatInterval
	}
	defaultRegisters(&m.Registers)

	if c.Logging.Level == "" {
		c.Logging.Level = logger.LogLevelInfo
	}
}

func defaultRegisters(r *RegisterMap) {
	set := func(reg *Register, def Register) {
		if reg.Quantity == 0 {
			*reg = def
		}
	}
	set(&r.Heartbeat, Register{Address: 0x0000, Quantity: 1})
	set(&r.DCStatus, Register{Address: 0x0100, Quantity: 1})
	set(&r.BatteryStatus, Register{Address: 0x0101, Quantity: 1})
	set(&r.Voltage, Register{Address: 0x0102, Quantity: 1})
	set(&r.Current, Register{Address: 0x0103, Quantity: 1})
	set(&r.SOC, Register{Address: 0x0104, Quantity: 1})
	set(&r.SOH, Register{Address: 0x0105, Quantity: 1})
	set(&r.BackupTime, Register{Address: 0x0106, Quantity: 1})
	set(&r.SerialNumber, Register{Address: 0x0200, Quantity: 8})
	set(&r.Firmware, Register{Address: 0x0210, Quantity: 1})
	set(&r.Model, Register{Address: 0x0211, Quantity: 1})
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return invalid("mqtt.broker", "is not specified")
	}
	if c.MQTT.Port <= 0 {
		return invalid("mqtt.port", "must be positive")
	}
	if c.MQTT.RetryDelay < 0 {
		return invalid("mqtt.retry_delay", "must be non-negative")
	}
	if c.MQTT.QoS > 2 {
		return invalid("mqtt.qos", "must be 0, 1 or 2")
	}
	if c.MQTT.Topics.BatteryInfoRequest == c.MQTT.Topics.DeviceInfoRequest {
		return invalid("mqtt.topics", "battery_info_req and device_info must differ")
	}
	if c.Modbus.Port == "" {
		return invalid("modbus.port", "is not specified")
	}
	if c.Modbus.Timeout < 0 {
		return invalid("modbus.timeout", "must be non-negative")
	}
	if c.Modbus.HeartbeatInterval < 0 {
		return invalid("modbus.heartbeat_interval", "must be positive")
	}
	switch strings.ToUpper(c.Modbus.Parity) {
	case "N", "E", "O":
	default:
		return invalid("modbus.parity", "must be one of N, E, O")
	}
	if c.Modbus.SlaveID > 247 {
		return invalid("modbus.slave_id", "must be in range 1..247")
	}
	if c.Modbus.EventFunctionCode == c.Modbus.FunctionCode {
		return invalid("modbus.event_function_code", "must differ from modbus.function_code")
	}
	for name, reg := range c.Modbus.Registers.named() {
		if reg.Quantity == 0 || reg.Quantity > 125 {
			return invalid("modbus.registers."+name, "quantity must be in range 1..125")
		}
	}
	return nil
}

func invalid(field, msg string) error {
	return bridgeerrors.NewConfigError("validate", errors.New(msg), field)
}

func (r RegisterMap) named() map[string]Register {
	return map[string]Register{
		"heartbeat":      r.Heartbeat,
		"dc_status":      r.DCStatus,
		"battery_status": r.BatteryStatus,
		"voltage":        r.Voltage,
		"current":        r.Current,
		"soc":            r.SOC,
		"soh":            r.SOH,
		"backup_time":    r.BackupTime,
		"serial_number":  r.SerialNumber,
		"firmware":       r.Firmware,
		"model":          r.Model,
	}
}
