package services

import (
	"context"
	"time"

	"exista-mqtt-bridge/pkg/logger"
	"exista-mqtt-bridge/pkg/metrics"
	"exista-mqtt-bridge/pkg/modbus"
)

// HeartbeatService probes the device and owns the link com status.
// Every probe sets the status from its own outcome, then sleeps a fixed interval.
type HeartbeatService struct {
	link     modbus.Link
	command  modbus.Command
	interval time.Duration
	metrics  metrics.MetricsCollector
	sleep    SleepFunc
	log      logger.ILogger
}

// NewHeartbeatService creates a new heartbeat service
func NewHeartbeatService(
	link modbus.Link,
	command modbus.Command,
	interval time.Duration,
	collector metrics.MetricsCollector,
) *HeartbeatService {
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &HeartbeatService{
		link:     link,
		command:  command,
		interval: interval,
		metrics:  collector,
		sleep:    Sleep,
		log:      logger.NewStandardLogger(),
	}
}

// WithSleep replaces the wait between probes
func (s *HeartbeatService) WithSleep(sleep SleepFunc) *HeartbeatService {
	s.sleep = sleep
	return s
}

// WithLogger replaces the logger
func (s *HeartbeatService) WithLogger(l logger.ILogger) *HeartbeatService {
	s.log = l
	return s
}

func (s *HeartbeatService) Job() Job {
	return JobHeartbeat
}

// Run begins the heartbeat loop
func (s *HeartbeatService) Run(ctx context.Context) error {
	s.log.LogInfo("💓 Heartbeat service started with interval: %v", s.interval)

	for {
		s.Probe(ctx)
		if err := s.sleep(ctx, s.interval); err != nil {
			s.log.LogDebug("🔇 Heartbeat service stopped")
			return err
		}
	}
}

// Probe sends one heartbeat command and records the outcome
func (s *HeartbeatService) Probe(ctx context.Context) bool {
	_, err := s.link.Send(ctx, s.command)
	s.metrics.ObserveHeartbeat(err == nil)

	if err != nil {
		s.link.SetDisconnected()
		s.log.LogWarn("💔 Heartbeat failed, device disconnected: %v", err)
		return false
	}

	s.link.SetConnected()
	s.log.LogDebug("💓 Heartbeat ok, device connected")
	return true
}
