package modbus

// crcTable is the reflected 0xA001 polynomial table used by Modbus RTU
var crcTable = func() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// CRC16 calculates the Modbus RTU CRC16 checksum
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = (crc >> 8) ^ crcTable[byte(crc)^b]
	}
	return crc
}

// VerifyCRC verifies the trailing CRC16 (low byte first) of an RTU frame
func VerifyCRC(frame []byte) bool {
	if len(frame) < 4 {
		return false
	}
	body := frame[:len(frame)-2]
	received := uint16(frame[len(frame)-2]) | uint16(frame[len(frame)-1])<<8
	return CRC16(body) == received
}

// AppendCRC returns a copy of data with its CRC16 appended low byte first
func AppendCRC(data []byte) []byte {
	crc := CRC16(data)
	out := make([]byte, len(data), len(data)+2)
	copy(out, data)
	return append(out, byte(crc), byte(crc>>8))
}
