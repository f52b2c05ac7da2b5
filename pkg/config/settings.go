package config

import (
	"fmt"
	"time"
)

// Defaults for the wire-level constants of the bridge
const (
	DefaultTopicBatteryInfoReq = "exista/battery_info/req"
	DefaultTopicBatteryInfoRep = "exista/battery_info/rep"
	DefaultTopicDeviceInfo     = "exista/device_info/req"
	DefaultTopicDeviceInfoRep  = "exista/device_info/rep"
	DefaultTopicStatus         = "exista/status"

	DefaultRetryDelayMs      = 1000
	DefaultHeartbeatInterval = 5
	DefaultEventFunctionCode = 0x41 // first user-defined function code
	DefaultSubscribeQoS      = 1
)

// MQTTSettings contains only MQTT-specific configuration
// Used for dependency injection to avoid coupling to full Config
type MQTTSettings struct {
	BrokerURL  string
	Username   string
	Password   string
	ClientID   string
	RetryDelay time.Duration
	KeepAlive  time.Duration
	QoS        byte
	Topics     TopicsConfig
}

// NewMQTTSettings extracts MQTT settings from full config
func NewMQTTSettings(cfg *Config) MQTTSettings {
	return MQTTSettings{
		BrokerURL:  fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Broker, cfg.MQTT.Port),
		Username:   cfg.MQTT.Username,
		Password:   cfg.MQTT.Password,
		ClientID:   cfg.MQTT.ClientID,
		RetryDelay: time.Duration(cfg.MQTT.RetryDelay) * time.Millisecond,
		KeepAlive:  time.Duration(cfg.MQTT.KeepAlive) * time.Second,
		QoS:        cfg.MQTT.QoS,
		Topics:     cfg.MQTT.Topics,
	}
}

// ModbusSettings contains only serial link configuration
type ModbusSettings struct {
	Port              string
	BaudRate          int
	DataBits          int
	StopBits          int
	Parity            string
	Timeout           time.Duration
	SlaveID           uint8
	FunctionCode      uint8
	EventFunctionCode uint8
	HeartbeatInterval time.Duration
}

// NewModbusSettings extracts Modbus settings from full config
func NewModbusSettings(cfg *Config) ModbusSettings {
	return ModbusSettings{
		Port:              cfg.Modbus.Port,
		BaudRate:          cfg.Modbus.BaudRate,
		DataBits:          cfg.Modbus.DataBits,
		StopBits:          cfg.Modbus.StopBits,
		Parity:            cfg.Modbus.Parity,
		Timeout:           time.Duration(cfg.Modbus.Timeout) * time.Millisecond,
		SlaveID:           cfg.Modbus.SlaveID,
		FunctionCode:      cfg.Modbus.FunctionCode,
		EventFunctionCode: cfg.Modbus.EventFunctionCode,
		HeartbeatInterval: time.Duration(cfg.Modbus.HeartbeatInterval) * time.Second,
	}
}
