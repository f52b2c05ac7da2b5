package services

import (
	"context"
	"errors"
	"time"

	bridgeerrors "exista-mqtt-bridge/pkg/errors"
	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/metrics"
	"exista-mqtt-bridge/pkg/modbus"
	"exista-mqtt-bridge/pkg/requests"
)

// ListenerBufferSize bounds a single unsolicited frame
const ListenerBufferSize = 16

// RequestSink receives captured device events
type RequestSink interface {
	Push(r requests.Request) error
	Len() int
}

// ListenerService reads the link continuously and queues device events
type ListenerService struct {
	link    modbus.Link
	queue   RequestSink
	metrics metrics.MetricsCollector
	log     logger.ILogger
}

// NewListenerService creates a new listener service
func NewListenerService(link modbus.Link, queue RequestSink, collector metrics.MetricsCollector) *ListenerService {
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &ListenerService{link: link, queue: queue, metrics: collector, log: logger.NewStandardLogger()}
}

// WithLogger replaces the logger
func (s *ListenerService) WithLogger(l logger.ILogger) *ListenerService {
	s.log = l
	return s
}

func (s *ListenerService) Job() Job {
	return JobListener
}

// Run reads frames until ctx is done. A failed push is fatal: a lost
// device event cannot be recovered.
func (s *ListenerService) Run(ctx context.Context) error {
	s.log.LogInfo("👂 Listener service started")
	buf := make([]byte, ListenerBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			s.log.LogDebug("🔇 Listener service stopped")
			return err
		}

		frame, err := s.link.ReadOnce(buf)
		if err != nil {
			if !errors.Is(err, modbus.ErrNoData) {
				s.log.LogDebug("⚠️ Listener read error: %v", err)
			}
			continue
		}

		if !frame.IsEvent() {
			s.log.LogDebug("🤷 Unexpected frame on the line, discarded: [% X]", frame.Data)
			continue
		}

		if err := s.enqueue(frame); err != nil {
			return err
		}
	}
}

func (s *ListenerService) enqueue(frame modbus.Frame) error {
	req := requests.NewDeviceEvent(frame)
	if err := s.queue.Push(req); err != nil {
		qerr := bridgeerrors.NewQueueError("push device event", err, req.ID.String())
		s.log.LogError("💥 Failed to queue device event: %v", qerr)
		return bridgeerrors.NewFatalError("listener", qerr)
	}

	s.metrics.IncrementEventsQueued()
	s.metrics.SetQueueDepth(s.queue.Len())
	s.log.LogInfo("📥 [%s] Device event queued: [% X]", req.ReceivedAt.Format(time.RFC3339), frame.Data)
	return nil
}
