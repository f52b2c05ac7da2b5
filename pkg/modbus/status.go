package modbus

import "sync/atomic"

// ComStatus is the connectivity of the Modbus link as seen by the last heartbeat
type ComStatus int32

const (
	StatusDisconnected ComStatus = iota
	StatusConnected
)

func (s ComStatus) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// MarshalText lets ComStatus appear as a JSON string
func (s ComStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// statusFlag is written by the heartbeat and read by document builds
type statusFlag struct {
	v atomic.Int32
}

func (f *statusFlag) load() ComStatus {
	return ComStatus(f.v.Load())
}

func (f *statusFlag) store(s ComStatus) {
	f.v.Store(int32(s))
}
