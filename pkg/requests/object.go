package requests

import (
	"context"

	"exista-mqtt-bridge/pkg/errors"
	"exista-mqtt-bridge/pkg/modbus"
)

// RequestObject builds one telemetry document from a fixed list of reads
type RequestObject interface {
	// Commands returns the reads in the order Decode expects them
	Commands() []modbus.Command
	// Decode interprets the reply to the command at index. Nil means the
	// reply could not be decoded and the field is published as null.
	Decode(reply modbus.Frame, index int) *float64
	// InsertData runs every read and replaces the document in one step.
	// On error the document is left as it was.
	InsertData(ctx context.Context, bus modbus.Bus) error
	Serialize() ([]byte, error)
	Topic() string
	QoS() byte
}

// ReplyQoS is the QoS of every published document
const ReplyQoS byte = 0

// readAll sends each command in order and decodes its reply. The first
// failed exchange aborts the whole read.
func readAll(ctx context.Context, bus modbus.Bus, obj RequestObject) ([]*float64, error) {
	cmds := obj.Commands()
	values := make([]*float64, len(cmds))
	for i, cmd := range cmds {
		reply, err := bus.Send(ctx, cmd)
		if err != nil {
			e := errors.NewModbusError("insert data", err, cmd.Name)
			e.SlaveID = cmd.SlaveID()
			return nil, e
		}
		values[i] = obj.Decode(reply, i)
	}
	return values, nil
}

func ptr[T any](v T) *T {
	return &v
}
