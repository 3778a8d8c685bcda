package pulsedeck

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/pulsedeck/internal/checker"
	"github.com/jpalmerr/pulsedeck/internal/metrics"
	"github.com/jpalmerr/pulsedeck/internal/poller"
	"github.com/jpalmerr/pulsedeck/internal/registry"
)

// Endpoint is a snapshot of one monitored button.
type Endpoint = registry.Endpoint

// Host is the control-surface side of the plugin: the visual actions
// PulseDeck asks it to perform.
//
// Methods are called while internal state is locked and must not block.
// A panicking Host method is recovered and logged.
type Host interface {
	// ShowAlert shows the momentary alert visual on the button key.
	ShowAlert(key string)

	// ShowOK shows the momentary "OK" visual on the button key.
	ShowOK(key string)

	// OpenURL opens url in the user's default browser.
	OpenURL(url string)
}

// Settings are the user-editable options of one button.
type Settings struct {
	// URL to check. Empty leaves the button unconfigured.
	URL string

	// HealthyStatusCode is the only status code considered healthy.
	// Zero means 200.
	HealthyStatusCode int

	// CheckInterval is the minimum time between checks. Zero means 30s.
	CheckInterval time.Duration
}

// Plugin monitors the endpoints behind a set of buttons.
//
// Every button appearance is an event from the host: call [Plugin.Appear],
// [Plugin.Disappear], [Plugin.SettingsChanged] and [Plugin.Activate] as they
// arrive. The first appearance starts the poll and alert loops; they run
// until [Plugin.Stop] or until the context passed to Appear is cancelled.
//
//	p, err := pulsedeck.New(host, pulsedeck.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer p.Stop()
//
//	p.Appear(ctx, "button-1", pulsedeck.Settings{URL: "https://api.example.com/health"})
//
// All methods are safe for concurrent use.
type Plugin struct {
	host      Host
	registry  *registry.Registry
	checker   *checker.Checker
	scheduler *poller.Scheduler
	driver    *poller.Driver
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// New creates a [Plugin] that drives host.
//
// Defaults: 30s poll interval, 4s alert interval, 3s check timeout,
// unbounded concurrency, metrics disabled.
func New(host Host, opts ...Option) (*Plugin, error) {
	if host == nil {
		return nil, errors.New("host cannot be nil")
	}

	cfg := &pluginConfig{
		pollInterval:  poller.DefaultPollInterval,
		alertInterval: poller.DefaultAlertInterval,
		checkTimeout:  checker.DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	var m *metrics.Collector
	if cfg.metrics {
		m = metrics.New()
	}

	checkerOpts := []checker.Option{checker.WithTimeout(cfg.checkTimeout)}
	if cfg.httpClient != nil {
		checkerOpts = append(checkerOpts, checker.WithHTTPClient(cfg.httpClient))
	}
	c := checker.New(checkerOpts...)

	p := &Plugin{
		host:     host,
		registry: registry.New(),
		checker:  c,
		metrics:  m,
		logger:   logger,
	}
	p.registry.SetGuard(p.guard)
	p.scheduler = poller.NewScheduler(p.registry, c, cfg.maxConcurrency, logger, m)
	p.driver = poller.NewDriver(p.scheduler, p.registry, cfg.pollInterval, cfg.alertInterval, logger, m)

	return p, nil
}

// Appear records that the button key is shown with settings. It restarts the
// poll loop, which checks every due endpoint at once, and starts the alert
// loop if it is not yet running.
//
// A button that was shown before keeps its online state and last check time.
func (p *Plugin) Appear(ctx context.Context, key string, s Settings) {
	p.upsert(key, s)
	p.registry.SetVisible(key, true)
	p.logger.Debug("button appeared", "key", key, "url", s.URL)

	p.driver.RestartPoll(ctx)
	p.driver.StartAlert(ctx)
}

// Disappear records that the button key is no longer shown. Its record is
// kept so a later appearance resumes where it left off.
func (p *Plugin) Disappear(_ context.Context, key string) {
	p.registry.SetVisible(key, false)
	p.logger.Debug("button disappeared", "key", key)
}

// SettingsChanged applies edited settings to key and checks it at once.
func (p *Plugin) SettingsChanged(ctx context.Context, key string, s Settings) {
	p.upsert(key, s)
	p.logger.Debug("settings changed", "key", key, "url", s.URL)

	p.scheduler.RunDue(ctx, poller.ForceKey(key))
}

// Activate handles a press on key: the endpoint is checked at once and, if
// it has a URL, the URL is opened regardless of its health.
func (p *Plugin) Activate(ctx context.Context, key string) {
	p.scheduler.RunDue(ctx, poller.ForceKey(key))

	ep, ok := p.registry.Get(key)
	if !ok || !ep.Configured() {
		p.logger.Debug("activated unconfigured button", "key", key)
		return
	}
	p.guard(key, "open_url", func() { p.host.OpenURL(ep.URL) })
}

// CheckAll checks every visible endpoint at once, ignoring intervals.
func (p *Plugin) CheckAll(ctx context.Context) int {
	return p.scheduler.RunDue(ctx, poller.ForceAll())
}

// Remove deletes the record for key. Checks still in flight for it are
// discarded. Reports whether the record existed.
func (p *Plugin) Remove(key string) bool {
	return p.registry.Remove(key)
}

// Endpoints returns a snapshot of every record. Order is unspecified.
func (p *Plugin) Endpoints() []Endpoint {
	return p.registry.All()
}

// All is an alias of [Plugin.Endpoints] for the status server.
func (p *Plugin) All() []Endpoint {
	return p.Endpoints()
}

// Subscribe returns a channel receiving a snapshot of every record change.
// Callers must call [Plugin.Unsubscribe] when done.
func (p *Plugin) Subscribe() <-chan Endpoint {
	return p.registry.Subscribe()
}

// Unsubscribe ends a subscription made with [Plugin.Subscribe].
func (p *Plugin) Unsubscribe(ch <-chan Endpoint) {
	p.registry.Unsubscribe(ch)
}

// MetricsHandler returns the Prometheus handler, or nil if metrics were not
// enabled with [WithMetrics].
func (p *Plugin) MetricsHandler() http.Handler {
	if p.metrics == nil {
		return nil
	}
	return p.metrics.Handler()
}

// Stop ends both loops, waits for in-flight checks and releases idle
// connections. Stop is idempotent; the plugin cannot be restarted.
func (p *Plugin) Stop() {
	p.driver.Stop()
	p.checker.Close()
	p.logger.Info("pulsedeck stopped", "endpoints", p.registry.Len())
}

func (p *Plugin) upsert(key string, s Settings) {
	p.registry.Upsert(key, registry.Config{
		URL:               s.URL,
		HealthyStatusCode: s.HealthyStatusCode,
		CheckInterval:     s.CheckInterval,
		Indicator:         indicator{host: p.host, key: key},
	})
}

// guard runs a host callback with panic recovery. A panic is logged with an
// incident id and never escapes.
func (p *Plugin) guard(key, action string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("host callback panicked",
				"panic", r,
				"key", key,
				"action", action,
				"incident_id", uuid.NewString(),
			)
		}
	}()
	fn()
}

// indicator binds the visual actions of one appearance to the host.
type indicator struct {
	host Host
	key  string
}

func (i indicator) RaiseAlert() { i.host.ShowAlert(i.key) }

func (i indicator) ClearToOK() { i.host.ShowOK(i.key) }
