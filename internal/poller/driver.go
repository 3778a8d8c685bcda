package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpalmerr/pulsedeck/internal/metrics"
	"github.com/jpalmerr/pulsedeck/internal/registry"
)

// Default loop periods.
const (
	DefaultPollInterval  = 30 * time.Second
	DefaultAlertInterval = 4 * time.Second
)

// Driver owns the two periodic loops.
//
// The poll loop runs [Scheduler.RunDue] immediately and then every poll
// interval. Restarting it cancels the previous loop first, so at most one
// poll loop is ever live. The alert loop re-asserts the alert visual on
// every visible, offline endpoint immediately and then every alert interval;
// it is started at most once.
//
// All methods are safe for concurrent use.
type Driver struct {
	scheduler     *Scheduler
	registry      *registry.Registry
	pollInterval  time.Duration
	alertInterval time.Duration
	logger        *slog.Logger
	metrics       *metrics.Collector

	mu      sync.Mutex
	stopped bool
	poll    *loop
	alert   *loop

	livePolls atomic.Int32
}

// loop is one running ticker goroutine.
type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the loop and waits for its goroutine to exit.
func (l *loop) stop() {
	l.cancel()
	<-l.done
}

// NewDriver creates a [Driver]. Non-positive intervals fall back to the
// defaults. m may be nil.
func NewDriver(s *Scheduler, reg *registry.Registry, pollInterval, alertInterval time.Duration, logger *slog.Logger, m *metrics.Collector) *Driver {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if alertInterval <= 0 {
		alertInterval = DefaultAlertInterval
	}
	return &Driver{
		scheduler:     s,
		registry:      reg,
		pollInterval:  pollInterval,
		alertInterval: alertInterval,
		logger:        logger,
		metrics:       m,
	}
}

// RestartPoll cancels any live poll loop, waits for it to exit, and starts a
// new one. Checks dispatched by the loop run under ctx, not the loop's own
// context, so a restart never aborts them. No-op after [Driver.Stop].
func (d *Driver) RestartPoll(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.poll != nil {
		d.poll.stop()
	}

	d.poll = d.startLoop(ctx, d.pollInterval, func() {
		d.livePolls.Add(1)
	}, func() {
		d.livePolls.Add(-1)
	}, func() {
		d.scheduler.RunDue(ctx, ForceNone)
	})
	d.logger.Debug("poll loop started", "interval", d.pollInterval.String())
}

// StartAlert starts the alert loop unless it is already running.
// No-op after [Driver.Stop].
func (d *Driver) StartAlert(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || d.alert != nil {
		return
	}

	d.alert = d.startLoop(ctx, d.alertInterval, nil, nil, func() {
		d.metrics.AddAlerts(d.registry.RaiseAlerts())
		d.metrics.SetEndpoints(d.registry.Len(), d.registry.Unhealthy())
	})
	d.logger.Debug("alert loop started", "interval", d.alertInterval.String())
}

// Running reports whether each loop is currently started.
func (d *Driver) Running() (poll, alert bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.poll != nil, d.alert != nil
}

// Stop cancels both loops and waits for them and for in-flight checks.
// Stop is idempotent.
func (d *Driver) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.poll != nil {
		d.poll.stop()
		d.poll = nil
	}
	if d.alert != nil {
		d.alert.stop()
		d.alert = nil
	}
	d.mu.Unlock()

	d.scheduler.Wait()
}

// startLoop runs tick immediately and then on every interval until the
// returned loop is stopped or ctx is cancelled. Caller holds d.mu.
func (d *Driver) startLoop(ctx context.Context, interval time.Duration, onStart, onExit, tick func()) *loop {
	loopCtx, cancel := context.WithCancel(ctx)
	l := &loop{cancel: cancel, done: make(chan struct{})}

	if onStart != nil {
		onStart()
	}
	go func() {
		defer close(l.done)
		if onExit != nil {
			defer onExit()
		}

		tick()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
	return l
}
