// Package platform holds the optional device capabilities the offline
// coordinator can use: user notifications and background task scheduling.
// Hosts without them use Noop.
package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable is returned when the host has no such capability.
var ErrUnavailable = errors.New("platform capability unavailable")

// Notifier shows a message to the user outside the app's own UI.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Scheduler runs task periodically, including while the app is backgrounded
// where the platform allows it. cancel stops the schedule.
type Scheduler interface {
	Schedule(name string, interval time.Duration, task func(ctx context.Context) error) (cancel func(), err error)
}

// Noop has no capabilities: notifications are dropped and scheduling
// reports ErrUnavailable.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) error { return nil }

func (Noop) Schedule(string, time.Duration, func(context.Context) error) (func(), error) {
	return nil, ErrUnavailable
}

// LogNotifier writes notifications to the log. Used by the CLI.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, title, body string) error {
	n.Logger.Info(title, zap.String("body", body))
	return nil
}

// TickerScheduler runs tasks on goroutines with a time.Ticker. It suits
// desktop and CLI hosts where the process simply stays alive.
type TickerScheduler struct {
	Logger *zap.Logger

	wg sync.WaitGroup
}

func (s *TickerScheduler) Schedule(name string, interval time.Duration, task func(ctx context.Context) error) (func(), error) {
	if interval <= 0 {
		return nil, errors.New("schedule interval must be positive")
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := task(ctx); err != nil {
					logger.Warn("background task failed", zap.String("task", name), zap.Error(err))
				}
			}
		}
	}()
	return cancel, nil
}

// Wait blocks until every cancelled task goroutine has returned.
func (s *TickerScheduler) Wait() {
	s.wg.Wait()
}
