package modbus

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// PercentScale is the divisor between raw SoC/SoH registers and percent
const PercentScale = 10.0

// RegistersValue interprets one register (2 bytes) or two registers
// (4 bytes, high word first) as a big-endian unsigned integer.
func RegistersValue(payload []byte) (float64, error) {
	switch len(payload) {
	case 2:
		return float64(binary.BigEndian.Uint16(payload)), nil
	case 4:
		return float64(binary.BigEndian.Uint32(payload)), nil
	default:
		return 0, fmt.Errorf("unsupported register payload length %d", len(payload))
	}
}

// RegistersPercent decodes a value under the percent rule: raw tenths of a percent
func RegistersPercent(payload []byte) (float64, error) {
	raw, err := RegistersValue(payload)
	if err != nil {
		return 0, err
	}
	return raw / PercentScale, nil
}

// RegistersString decodes registers holding two ASCII characters each.
// Trailing NUL and space padding is dropped.
func RegistersString(payload []byte) (string, error) {
	if len(payload) == 0 || len(payload)%2 != 0 {
		return "", fmt.Errorf("invalid string register payload length %d", len(payload))
	}
	return strings.TrimRight(string(payload), "\x00 "), nil
}
