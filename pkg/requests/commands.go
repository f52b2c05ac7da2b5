package requests

import (
	"exista-mqtt-bridge/pkg/config"
	"exista-mqtt-bridge/pkg/modbus"
)

// Positions of the battery info reads. Decoding is positional.
const (
	IndexDCStatus = iota
	IndexBatteryStatus
	IndexVoltage
	IndexCurrent
	IndexSOC
	IndexSOH
	IndexBackupTime

	BatteryCommandCount
)

// Positions of the device info reads
const (
	IndexFirmware = iota
	IndexModel

	DeviceInfoCommandCount
)

func readCommand(m config.ModbusConfig, name string, reg config.Register) modbus.Command {
	return modbus.NewReadCommand(name, m.SlaveID, m.FunctionCode, reg.Address, reg.Quantity)
}

// BatteryCommands returns the battery info reads in their fixed order
func BatteryCommands(m config.ModbusConfig) []modbus.Command {
	r := m.Registers
	return []modbus.Command{
		readCommand(m, "READ_DC_STATUS", r.DCStatus),
		readCommand(m, "READ_BATTERY_STATUS", r.BatteryStatus),
		readCommand(m, "READ_BATTERY_VOLTAGE", r.Voltage),
		readCommand(m, "READ_BATTERY_CURRENT", r.Current),
		readCommand(m, "READ_SOC", r.SOC),
		readCommand(m, "READ_SOH", r.SOH),
		readCommand(m, "READ_BACKUP_TIME", r.BackupTime),
	}
}

// DeviceInfoCommands returns the firmware and model reads
func DeviceInfoCommands(m config.ModbusConfig) []modbus.Command {
	r := m.Registers
	return []modbus.Command{
		readCommand(m, "READ_FIRMWARE", r.Firmware),
		readCommand(m, "READ_MODEL", r.Model),
	}
}

// HeartbeatCommand returns the liveness probe
func HeartbeatCommand(m config.ModbusConfig) modbus.Command {
	return readCommand(m, "HEARTBEAT", m.Registers.Heartbeat)
}

// SerialNumberCommand returns the read of the ASCII serial number block
func SerialNumberCommand(m config.ModbusConfig) modbus.Command {
	return readCommand(m, "READ_SERIAL_NUMBER", m.Registers.SerialNumber)
}
