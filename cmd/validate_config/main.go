package main

import (
	"fmt"
	"os"

	"exista-mqtt-bridge/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_config <config-file>")
		os.Exit(1)
	}

	configPath := os.Args[1]
	fmt.Printf("📄 Loading config from: %s\n", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Version: %s\n", cfg.Version)
	fmt.Printf("   MQTT Broker: %s:%d (client %s, qos %d)\n", cfg.MQTT.Broker, cfg.MQTT.Port, cfg.MQTT.ClientID, cfg.MQTT.QoS)
	fmt.Printf("   Retry delay: %d ms\n", cfg.MQTT.RetryDelay)

	t := cfg.MQTT.Topics
	fmt.Printf("   Topics:\n")
	fmt.Printf("     battery info: %s -> %s\n", t.BatteryInfoRequest, t.BatteryInfoReply)
	fmt.Printf("     device info:  %s -> %s\n", t.DeviceInfoRequest, t.DeviceInfoReply)
	fmt.Printf("     status:       %s\n", t.Status)

	m := cfg.Modbus
	fmt.Printf("   Serial: %s %d %d%s%d, timeout %d ms\n", m.Port, m.BaudRate, m.DataBits, m.Parity, m.StopBits, m.Timeout)
	fmt.Printf("   Slave ID: %d, read function 0x%02X, event function 0x%02X\n", m.SlaveID, m.FunctionCode, m.EventFunctionCode)
	fmt.Printf("   Heartbeat every %d s at 0x%04X\n", m.HeartbeatInterval, m.Registers.Heartbeat.Address)

	if cfg.Device.SerialNumber != "" {
		fmt.Printf("   Serial number override: %s\n", cfg.Device.SerialNumber)
	} else {
		fmt.Printf("   Serial number: read from 0x%04X (%d registers)\n",
			m.Registers.SerialNumber.Address, m.Registers.SerialNumber.Quantity)
	}
	if cfg.MetricsPort > 0 {
		fmt.Printf("   Metrics: :%d/metrics\n", cfg.MetricsPort)
	}
	if cfg.HealthPort > 0 {
		fmt.Printf("   Health: :%d/health\n", cfg.HealthPort)
	}
}
