package builder

import (
	"context"
	"fmt"

	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/requests"
	"exista-mqtt-bridge/pkg/services"
)

// DiagnosticMode checks the device side without touching the broker: one
// heartbeat probe, then one build of each document
func (app *Application) DiagnosticMode(ctx context.Context) error {
	logger.LogInfo("🔍 Starting diagnostic mode...")

	logger.LogInfo("🔍 Test 1: Modbus heartbeat on %s", app.config.Modbus.Port)
	heartbeat := services.NewHeartbeatService(app.link, requests.HeartbeatCommand(app.config.Modbus), 0, app.metrics)
	if !heartbeat.Probe(ctx) {
		logger.LogInfo("💡 Possible issues:")
		logger.LogInfo("   - Device is not powered on")
		logger.LogInfo("   - Wrong slave ID (%d) or register map", app.config.Modbus.SlaveID)
		logger.LogInfo("   - Wrong baud rate or parity (%d %s)", app.config.Modbus.BaudRate, app.config.Modbus.Parity)
		logger.LogInfo("   - Physical connection issues (RS485 wiring)")
		return fmt.Errorf("heartbeat probe failed")
	}
	logger.LogInfo("✅ Device answered the heartbeat")

	topics := []string{app.config.MQTT.Topics.BatteryInfoRequest, app.config.MQTT.Topics.DeviceInfoRequest}
	for i, topic := range topics {
		logger.LogInfo("🔍 Test %d: document for %s", i+2, topic)
		obj, err := app.handler.ObjectFor(topic)
		if err != nil {
			return err
		}
		if err := obj.InsertData(ctx, app.link); err != nil {
			logger.LogError("❌ Reading %s failed: %v", topic, err)
			return fmt.Errorf("document for %s: %w", topic, err)
		}
		payload, err := obj.Serialize()
		if err != nil {
			return err
		}
		logger.LogInfo("✅ %s: %s", obj.Topic(), payload)
	}

	logger.LogInfo("🎉 All diagnostic tests passed!")
	return nil
}
