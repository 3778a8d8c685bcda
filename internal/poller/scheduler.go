package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/pulsedeck/internal/checker"
	"github.com/jpalmerr/pulsedeck/internal/metrics"
	"github.com/jpalmerr/pulsedeck/internal/registry"
)

// EarlyFireTolerance lets a check run up to this long before its interval has
// fully elapsed, so timer jitter never pushes it to the next poll tick.
const EarlyFireTolerance = 2 * time.Second

// Checker performs a single health probe. [checker.Checker] implements it.
type Checker interface {
	Check(ctx context.Context, url string, healthyStatusCode int) checker.Result
}

// Force overrides the interval rule for one key or for all visible endpoints.
// The zero value forces nothing.
type Force struct {
	key string
	all bool
}

// ForceNone evaluates every endpoint by its interval only.
var ForceNone = Force{}

// ForceAll makes every visible, configured endpoint due.
func ForceAll() Force {
	return Force{all: true}
}

// ForceKey makes the endpoint with the given key due, even if it is hidden.
// Other endpoints are still evaluated by their interval.
func ForceKey(key string) Force {
	return Force{key: key}
}

// String returns a readable form for logs.
func (f Force) String() string {
	switch {
	case f.all:
		return "all"
	case f.key != "":
		return "key:" + f.key
	default:
		return "none"
	}
}

// Scheduler selects due endpoints from a [registry.Registry] and checks them.
//
// Checks across endpoints run concurrently. With maxConcurrency > 0 at most
// that many probes are on the wire at once; dispatch itself never waits.
type Scheduler struct {
	registry *registry.Registry
	checker  Checker
	logger   *slog.Logger
	metrics  *metrics.Collector
	now      func() time.Time
	sem      chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]int
}

// NewScheduler creates a [Scheduler]. maxConcurrency <= 0 means unbounded.
// m may be nil.
func NewScheduler(reg *registry.Registry, c Checker, maxConcurrency int, logger *slog.Logger, m *metrics.Collector) *Scheduler {
	s := &Scheduler{
		registry: reg,
		checker:  c,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		inFlight: make(map[string]int),
	}
	if maxConcurrency > 0 {
		s.sem = make(chan struct{}, maxConcurrency)
	}
	return s
}

// RunDue dispatches a check for every due endpoint and returns how many were
// dispatched. It does not wait for the checks to finish.
//
// An endpoint is due when it has a URL and either force targets it, or it is
// visible and now - LastCheckedAt >= CheckInterval - [EarlyFireTolerance].
// Unforced evaluation skips endpoints with a check already in flight.
func (s *Scheduler) RunDue(ctx context.Context, force Force) int {
	now := s.now()
	endpoints := s.registry.All()
	due := make([]registry.Endpoint, 0, len(endpoints))

	s.mu.Lock()
	for _, ep := range endpoints {
		if s.isDue(ep, force, now) {
			due = append(due, ep)
			s.inFlight[ep.Key]++
		}
	}
	s.mu.Unlock()

	for _, ep := range due {
		s.wg.Add(1)
		go s.check(ctx, ep)
	}

	if len(due) > 0 {
		s.logger.Debug("checks dispatched", "count", len(due), "force", force.String())
	}
	return len(due)
}

// isDue applies the due-ness rule. Caller holds s.mu.
func (s *Scheduler) isDue(ep registry.Endpoint, force Force, now time.Time) bool {
	if !ep.Configured() {
		return false
	}
	if force.key != "" && force.key == ep.Key {
		return true
	}
	if !ep.Visible {
		return false
	}
	if force.all {
		return true
	}
	if s.inFlight[ep.Key] > 0 {
		return false
	}
	return now.Sub(ep.LastCheckedAt) >= ep.CheckInterval-EarlyFireTolerance
}

// Wait blocks until every dispatched check has completed.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// InFlight returns the number of checks currently running for key.
func (s *Scheduler) InFlight(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[key]
}

// check runs one probe and records its verdict.
func (s *Scheduler) check(ctx context.Context, ep registry.Endpoint) {
	defer s.wg.Done()
	defer s.release(ep.Key)

	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		case <-ctx.Done():
			return
		}
	}

	result := s.checker.Check(ctx, ep.URL, ep.HealthyStatusCode)

	// shutting down: a cancelled probe says nothing about the endpoint
	if ctx.Err() != nil {
		return
	}

	outcome := s.registry.Record(ep.Key, ep.Generation, result.Online, s.now())
	s.observe(ep, result, outcome)
}

func (s *Scheduler) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[key] <= 1 {
		delete(s.inFlight, key)
		return
	}
	s.inFlight[key]--
}

// observe logs and counts a completed check.
func (s *Scheduler) observe(ep registry.Endpoint, result checker.Result, outcome registry.Outcome) {
	label := metrics.ResultOffline
	switch {
	case outcome == registry.Stale:
		label = metrics.ResultStale
	case result.Err != nil:
		label = metrics.ResultError
	case result.Online:
		label = metrics.ResultOnline
	}
	s.metrics.ObserveCheck(label, result.Latency)
	if s.metrics != nil {
		s.metrics.SetEndpoints(s.registry.Len(), s.registry.Unhealthy())
	}

	logAttrs := []any{
		"key", ep.Key,
		"url", ep.URL,
		"status_code", result.StatusCode,
		"latency_ms", result.Latency.Milliseconds(),
		"outcome", outcome.String(),
	}
	if result.Err != nil {
		logAttrs = append(logAttrs, "error", result.Err.Error())
	}

	switch outcome {
	case registry.WentOffline:
		s.logger.Warn("endpoint offline", logAttrs...)
	case registry.Recovered:
		s.logger.Info("endpoint recovered", logAttrs...)
	default:
		s.logger.Debug("check completed", logAttrs...)
	}
}
