package modbus

import (
	"encoding/binary"
	"fmt"
)

// Function codes the link knows how to frame
const (
	FuncReadHoldingRegisters = 0x03
	FuncReadInputRegisters   = 0x04
	FuncWriteSingleCoil      = 0x05
	FuncWriteSingleRegister  = 0x06
	FuncWriteMultipleCoils   = 0x0F
	FuncWriteMultipleRegs    = 0x10

	exceptionFlag = 0x80
)

// FrameKind tells a command reply apart from an unsolicited device frame
type FrameKind int

const (
	FrameReply FrameKind = iota
	FrameEvent
)

func (k FrameKind) String() string {
	if k == FrameEvent {
		return "event"
	}
	return "reply"
}

// Frame is a raw RTU frame as received from the device, CRC included.
// Its layout is not self-describing: which register a reply holds depends
// on the command that produced it.
type Frame struct {
	Data []byte
	Kind FrameKind
}

// Len returns the frame length in bytes
func (f Frame) Len() int {
	return len(f.Data)
}

// IsEvent reports whether the device sent the frame unsolicited
func (f Frame) IsEvent() bool {
	return f.Kind == FrameEvent
}

// SlaveID returns the address byte, or 0 for an empty frame
func (f Frame) SlaveID() byte {
	if len(f.Data) == 0 {
		return 0
	}
	return f.Data[0]
}

// FunctionCode returns the function byte, or 0 for a frame shorter than two bytes
func (f Frame) FunctionCode() byte {
	if len(f.Data) < 2 {
		return 0
	}
	return f.Data[1]
}

// IsException reports a Modbus exception reply
func (f Frame) IsException() bool {
	return f.FunctionCode()&exceptionFlag != 0
}

// Valid checks the trailing CRC
func (f Frame) Valid() bool {
	return VerifyCRC(f.Data)
}

// Payload returns the register bytes of a byte-count framed message
// (read replies and event frames): slave, function, count, data..., crc.
func (f Frame) Payload() ([]byte, error) {
	if len(f.Data) < 5 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(f.Data))
	}
	count := int(f.Data[2])
	if len(f.Data) < 3+count+2 {
		return nil, fmt.Errorf("byte count %d exceeds frame length %d", count, len(f.Data))
	}
	return f.Data[3 : 3+count], nil
}

// Clone returns a frame that shares no memory with f
func (f Frame) Clone() Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return Frame{Data: data, Kind: f.Kind}
}

// Command is a fixed, pre-framed RTU request
type Command struct {
	Name    string
	Payload []byte
}

// NewReadCommand frames a register read request with its CRC
func NewReadCommand(name string, slaveID, functionCode byte, address, quantity uint16) Command {
	pdu := make([]byte, 6)
	pdu[0] = slaveID
	pdu[1] = functionCode
	binary.BigEndian.PutUint16(pdu[2:4], address)
	binary.BigEndian.PutUint16(pdu[4:6], quantity)
	return Command{Name: name, Payload: AppendCRC(pdu)}
}

// SlaveID returns the addressed slave
func (c Command) SlaveID() byte {
	if len(c.Payload) == 0 {
		return 0
	}
	return c.Payload[0]
}

// FunctionCode returns the requested function
func (c Command) FunctionCode() byte {
	if len(c.Payload) < 2 {
		return 0
	}
	return c.Payload[1]
}

func (c Command) String() string {
	return fmt.Sprintf("%s[% X]", c.Name, c.Payload)
}

// expectedLength returns the full RTU frame length once header bytes are known.
// Zero means more header bytes are needed.
func expectedLength(header []byte) int {
	if len(header) < 2 {
		return 0
	}
	fc := header[1]
	switch {
	case fc&exceptionFlag != 0:
		return 5
	case fc == FuncWriteSingleCoil, fc == FuncWriteSingleRegister,
		fc == FuncWriteMultipleCoils, fc == FuncWriteMultipleRegs:
		return 8
	}
	if len(header) < 3 {
		return 0
	}
	return 3 + int(header[2]) + 2
}
