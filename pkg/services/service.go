package services

import (
	"context"
	"time"
)

// Job names one of the long-running services of the bridge
type Job int

const (
	JobHeartbeat Job = iota
	JobListener
	JobEventDispatcher
)

func (j Job) String() string {
	switch j {
	case JobHeartbeat:
		return "heartbeat"
	case JobListener:
		return "listener"
	case JobEventDispatcher:
		return "event_dispatcher"
	default:
		return "unknown"
	}
}

// Service runs until ctx is cancelled or it hits an error it cannot absorb.
// A returned FatalError ends the process.
type Service interface {
	Job() Job
	Run(ctx context.Context) error
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
