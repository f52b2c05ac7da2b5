package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"exista-mqtt-bridge/pkg/logger"

	"github.com/grid-x/serial"
)

// ErrNoData is returned by ReadOnce when the read timeout elapsed without input
var ErrNoData = errors.New("no data received")

// Bus is what a request object needs from the link to build a document
type Bus interface {
	Send(ctx context.Context, cmd Command) (Frame, error)
	Status() ComStatus
}

// Link is the shared handle on the Modbus serial line
type Link interface {
	Bus
	// ReadOnce reads one frame into buf and classifies it as reply or event
	ReadOnce(buf []byte) (Frame, error)
	SetConnected()
	SetDisconnected()
}

// LinkOptions configures a SerialLink
type LinkOptions struct {
	// Timeout bounds a single frame read
	Timeout time.Duration
	// EventFunctionCode identifies unsolicited frames sent by the device
	EventFunctionCode byte
}

// SerialLink serializes every exchange on one RTU port.
// A heartbeat probe and a listener read never interleave on the wire.
// Device events that arrive while a command waits for its reply are kept
// in pending and handed out by ReadOnce before the port is read again.
type SerialLink struct {
	mu      sync.Mutex
	port    io.ReadWriteCloser
	opts    LinkOptions
	poll    time.Duration
	pending []Frame
	status  statusFlag
}

// SerialConfig holds the line settings used to open the port
type SerialConfig struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

const (
	defaultTimeout = 500 * time.Millisecond
	minPoll        = 5 * time.Millisecond
	maxPoll        = 50 * time.Millisecond
	// maxStaleFrames bounds the input cleared before one command
	maxStaleFrames = 8
)

// pollInterval is the longest a single port read may block. Frame deadlines
// are checked between reads, so it must stay well below the frame timeout.
func pollInterval(timeout time.Duration) time.Duration {
	poll := timeout / 10
	if poll < minPoll {
		return minPoll
	}
	if poll > maxPoll {
		return maxPoll
	}
	return poll
}

// OpenSerialLink opens the serial device and wraps it as a link
func OpenSerialLink(cfg SerialConfig, opts LinkOptions) (*SerialLink, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  pollInterval(opts.Timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Address, err)
	}
	return NewLink(port, opts), nil
}

// NewLink wraps an already opened port. The link starts disconnected
// until the first heartbeat succeeds.
func NewLink(port io.ReadWriteCloser, opts LinkOptions) *SerialLink {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &SerialLink{port: port, opts: opts, poll: pollInterval(opts.Timeout)}
}

// Send writes cmd and waits for its reply. Exception replies, CRC errors and
// replies from another slave or function are errors. Event frames received
// before the reply are set aside for ReadOnce.
func (l *SerialLink) Send(ctx context.Context, cmd Command) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.discardStale()

	if _, err := l.port.Write(cmd.Payload); err != nil {
		return Frame{}, fmt.Errorf("write %s: %w", cmd.Name, err)
	}

	buf := make([]byte, rtuMaxSize)
	deadline := time.Now().Add(l.opts.Timeout)
	for {
		data, err := l.readFrameInto(buf, deadline)
		if err != nil {
			return Frame{}, fmt.Errorf("read reply to %s: %w", cmd.Name, err)
		}
		if cmd.FunctionCode() != l.opts.EventFunctionCode && l.isEvent(data) {
			l.keepEvent(data)
			continue
		}
		return verifyReply(cmd, Frame{Data: append([]byte(nil), data...), Kind: FrameReply})
	}
}

func verifyReply(cmd Command, reply Frame) (Frame, error) {
	data := reply.Data
	if !reply.Valid() {
		return Frame{}, fmt.Errorf("reply to %s: crc mismatch [% X]", cmd.Name, data)
	}
	if reply.SlaveID() != cmd.SlaveID() {
		return Frame{}, fmt.Errorf("reply to %s: slave %d, expected %d", cmd.Name, reply.SlaveID(), cmd.SlaveID())
	}
	if reply.IsException() {
		code := byte(0)
		if len(data) > 2 {
			code = data[2]
		}
		return Frame{}, fmt.Errorf("reply to %s: modbus exception 0x%02X", cmd.Name, code)
	}
	if reply.FunctionCode() != cmd.FunctionCode() {
		return Frame{}, fmt.Errorf("reply to %s: function 0x%02X, expected 0x%02X",
			cmd.Name, reply.FunctionCode(), cmd.FunctionCode())
	}
	return reply, nil
}

// ReadOnce returns the oldest pending event, or blocks for at most the read
// timeout waiting for one frame. The returned frame owns a copy of the bytes;
// buf bounds the size of a frame read from the port.
func (l *SerialLink) ReadOnce(buf []byte) (Frame, error) {
	l.mu.Lock()
	if len(l.pending) > 0 {
		f := l.pending[0]
		l.pending = l.pending[1:]
		l.mu.Unlock()
		return f, nil
	}
	data, err := l.readFrameInto(buf, time.Now().Add(l.opts.Timeout))
	l.mu.Unlock()
	if err != nil {
		return Frame{}, err
	}

	out := make([]byte, len(data))
	copy(out, data)
	kind := FrameReply
	if l.isEvent(out) {
		kind = FrameEvent
	}
	return Frame{Data: out, Kind: kind}, nil
}

// Pending returns the number of events waiting for ReadOnce
func (l *SerialLink) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// isEvent reports an intact frame carrying the configured event function code
func (l *SerialLink) isEvent(data []byte) bool {
	f := Frame{Data: data}
	return f.Valid() && f.FunctionCode() == l.opts.EventFunctionCode
}

// keepEvent stores a copy of an event frame. Caller holds l.mu.
func (l *SerialLink) keepEvent(data []byte) {
	out := make([]byte, len(data))
	copy(out, data)
	l.pending = append(l.pending, Frame{Data: out, Kind: FrameEvent})
	logger.LogDebug("📌 Device event received during an exchange, kept for the listener: [% X]", out)
}

// discardStale clears input left on the line by an earlier exchange, such as
// a reply that arrived after its command timed out. Events are kept.
// Caller holds l.mu.
func (l *SerialLink) discardStale() {
	buf := make([]byte, rtuMaxSize)
	for i := 0; i < maxStaleFrames; i++ {
		data, err := l.readFrameInto(buf, time.Now().Add(l.poll))
		if errors.Is(err, ErrNoData) {
			return
		}
		if err != nil {
			logger.LogDebug("🧹 Discarded partial input: %v", err)
			return
		}
		if l.isEvent(data) {
			l.keepEvent(data)
			continue
		}
		logger.LogDebug("🧹 Discarded stale frame: [% X]", data)
	}
}

// Status returns the com status set by the last heartbeat
func (l *SerialLink) Status() ComStatus {
	return l.status.load()
}

func (l *SerialLink) SetConnected() {
	l.status.store(StatusConnected)
}

func (l *SerialLink) SetDisconnected() {
	l.status.store(StatusDisconnected)
}

// Close releases the serial port
func (l *SerialLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port.Close()
}

const rtuMaxSize = 256

// readFrameInto reads header bytes first, then the rest of the frame as
// announced by the header. Caller holds l.mu.
func (l *SerialLink) readFrameInto(buf []byte, deadline time.Time) ([]byte, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("read buffer too small: %d bytes", len(buf))
	}

	got, err := l.readAtLeast(buf, 0, 2, deadline)
	if err != nil {
		if got == 0 {
			return nil, ErrNoData
		}
		return nil, err
	}

	need := expectedLength(buf[:got])
	if need == 0 {
		if got, err = l.readAtLeast(buf, got, 3, deadline); err != nil {
			return nil, err
		}
		need = expectedLength(buf[:got])
	}
	if need > len(buf) {
		return nil, fmt.Errorf("frame of %d bytes exceeds buffer of %d", need, len(buf))
	}
	if got, err = l.readAtLeast(buf, got, need, deadline); err != nil {
		return nil, err
	}
	return buf[:need], nil
}

// readAtLeast reads until min bytes are in buf. The deadline is checked
// before every read and a single read blocks for at most the poll interval.
func (l *SerialLink) readAtLeast(buf []byte, got, min int, deadline time.Time) (int, error) {
	for got < min {
		if !time.Now().Before(deadline) {
			return got, fmt.Errorf("timeout after %d of %d bytes", got, min)
		}
		n, err := l.port.Read(buf[got:min])
		got += n
		if err != nil && got < min && !idle(err) {
			return got, err
		}
	}
	return got, nil
}

// idle reports a read that ended without input
func idle(err error) bool {
	return errors.Is(err, serial.ErrTimeout) || errors.Is(err, io.EOF)
}
