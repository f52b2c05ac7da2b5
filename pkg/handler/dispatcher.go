package handler

import (
	"context"
	"errors"

	bridgeerrors "exista-mqtt-bridge/pkg/errors"
	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/metrics"
	"exista-mqtt-bridge/pkg/requests"
	"exista-mqtt-bridge/pkg/services"
)

// RequestSource is the consumer side of the requests queue
type RequestSource interface {
	Pop(ctx context.Context) (requests.Request, error)
	Len() int
}

// RequestHandler handles one queued request
type RequestHandler interface {
	HandleRequest(ctx context.Context, req requests.Request) (Report, error)
}

// EventDispatcher drains the requests queue in FIFO order.
// A request that fails with a recoverable error is logged and dropped and
// the dispatcher keeps going. Any other failure ends it with a FatalError.
type EventDispatcher struct {
	queue   RequestSource
	handler RequestHandler
	metrics metrics.MetricsCollector
	log     logger.ILogger
}

// NewEventDispatcher creates a queue consumer
func NewEventDispatcher(queue RequestSource, handler RequestHandler, collector metrics.MetricsCollector) *EventDispatcher {
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &EventDispatcher{queue: queue, handler: handler, metrics: collector, log: logger.NewStandardLogger()}
}

// WithLogger replaces the logger
func (d *EventDispatcher) WithLogger(l logger.ILogger) *EventDispatcher {
	d.log = l
	return d
}

func (d *EventDispatcher) Job() services.Job {
	return services.JobEventDispatcher
}

// Run pops and handles requests until ctx is done or the queue is closed
func (d *EventDispatcher) Run(ctx context.Context) error {
	d.log.LogInfo("📬 Event dispatcher started")

	for {
		req, err := d.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, requests.ErrQueueClosed) {
				d.log.LogDebug("🔇 Event dispatcher stopped: queue closed")
				return nil
			}
			return err
		}
		d.metrics.SetQueueDepth(d.queue.Len())

		report, err := d.handler.HandleRequest(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.metrics.IncrementRequestFailures()
			code := bridgeerrors.GetDiagnosticCode(err)
			if !bridgeerrors.IsRecoverable(err) {
				d.log.LogError("💥 Request %s (%s) failed, code %d: %v", req.ID, req.Kind, code, err)
				return bridgeerrors.NewFatalError("event dispatcher", err)
			}
			d.log.LogWarn("⚠️ Request %s (%s) dropped, code %d: %v", req.ID, req.Kind, code, err)
			continue
		}
		d.log.LogInfo("✅ Request %s handled: %s", req.ID, report)
	}
}

var _ services.Service = (*EventDispatcher)(nil)
