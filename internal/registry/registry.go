package registry

import (
	"sync"
	"time"
)

// Defaults applied when a [Config] leaves a field at zero.
const (
	DefaultHealthyStatusCode = 200
	DefaultCheckInterval     = 30 * time.Second
)

// Indicator is the pair of visual actions bound to one button appearance.
//
// Calls are made while the registry lock is held and must return promptly.
type Indicator interface {
	// RaiseAlert requests the momentary alert visual.
	RaiseAlert()

	// ClearToOK requests the momentary "OK" visual.
	ClearToOK()
}

// Config is the caller-supplied part of a record.
type Config struct {
	// URL to probe. Empty disables probing.
	URL string

	// HealthyStatusCode is the status considered healthy. Zero means 200.
	HealthyStatusCode int

	// CheckInterval is the minimum time between checks. Zero means 30s.
	CheckInterval time.Duration

	// Indicator is the visual binding for the current appearance.
	Indicator Indicator
}

// Endpoint is a snapshot of one monitored record.
type Endpoint struct {
	Key               string        `json:"key"`
	URL               string        `json:"url,omitempty"`
	Online            bool          `json:"online"`
	Visible           bool          `json:"visible"`
	HealthyStatusCode int           `json:"healthy_status_code"`
	CheckInterval     time.Duration `json:"check_interval"`
	LastCheckedAt     time.Time     `json:"last_checked_at"`

	// Generation changes whenever the probe target (URL or status code)
	// changes. Results tagged with an older generation are discarded.
	Generation uint64 `json:"generation"`

	// Removed is set only on the snapshot published when a record is deleted.
	Removed bool `json:"removed,omitempty"`
}

// Configured reports whether the endpoint has a URL to probe.
func (e Endpoint) Configured() bool {
	return e.URL != ""
}

// Outcome describes what [Registry.Record] did with a check result.
type Outcome int

const (
	// Applied means the result was stored without a visible transition.
	Applied Outcome = iota

	// Recovered means the endpoint went from offline to online and
	// ClearToOK was fired.
	Recovered

	// WentOffline means the endpoint went from online to offline.
	WentOffline

	// Stale means the record was removed or reconfigured since dispatch and
	// the result was dropped.
	Stale
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Recovered:
		return "recovered"
	case WentOffline:
		return "went_offline"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

type record struct {
	Endpoint
	indicator Indicator
}

// Registry is a keyed, concurrency-safe collection of endpoint records.
type Registry struct {
	mu          sync.Mutex
	records     map[string]*record
	subscribers map[chan Endpoint]struct{}
	subMu       sync.RWMutex

	// generations are drawn from one counter so a removed and re-added key
	// never reuses a generation
	lastGeneration uint64

	guard func(key, action string, fn func())
}

// New creates an empty [Registry].
func New() *Registry {
	return &Registry{
		records:     make(map[string]*record),
		subscribers: make(map[chan Endpoint]struct{}),
	}
}

// SetGuard installs a wrapper around every indicator call, typically used to
// recover and log panics from host callbacks. Must be called before use.
func (r *Registry) SetGuard(guard func(key, action string, fn func())) {
	r.guard = guard
}

// Upsert creates the record for key or updates its configuration in place.
//
// On update, Online, Visible and LastCheckedAt are preserved and the
// indicator is replaced by cfg.Indicator. HealthyStatusCode and
// CheckInterval are always taken from cfg (or defaults), never from the
// previous configuration.
func (r *Registry) Upsert(key string, cfg Config) Endpoint {
	code := cfg.HealthyStatusCode
	if code <= 0 {
		code = DefaultHealthyStatusCode
	}
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}

	r.mu.Lock()
	rec, ok := r.records[key]
	if !ok {
		r.lastGeneration++
		rec = &record{Endpoint: Endpoint{Key: key, Online: true, Generation: r.lastGeneration}}
		r.records[key] = rec
	} else if rec.URL != cfg.URL || rec.HealthyStatusCode != code {
		r.lastGeneration++
		rec.Generation = r.lastGeneration
	}
	rec.URL = cfg.URL
	rec.HealthyStatusCode = code
	rec.CheckInterval = interval
	rec.indicator = cfg.Indicator
	snapshot := rec.Endpoint
	r.mu.Unlock()

	r.publish(snapshot)
	return snapshot
}

// SetVisible marks the record for key shown or hidden. Unknown keys are
// ignored.
func (r *Registry) SetVisible(key string, visible bool) {
	r.mu.Lock()
	rec, ok := r.records[key]
	if !ok {
		r.mu.Unlock()
		return
	}
	changed := rec.Visible != visible
	rec.Visible = visible
	snapshot := rec.Endpoint
	r.mu.Unlock()

	if changed {
		r.publish(snapshot)
	}
}

// Get returns a snapshot of the record for key.
func (r *Registry) Get(key string) (Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok {
		return Endpoint{}, false
	}
	return rec.Endpoint, true
}

// ForEach calls fn with a snapshot of every record. Order is unspecified.
// fn runs without the lock held and may call back into the registry.
func (r *Registry) ForEach(fn func(Endpoint)) {
	for _, ep := range r.All() {
		fn(ep)
	}
}

// All returns snapshots of every record. Order is unspecified.
func (r *Registry) All() []Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Endpoint, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Endpoint)
	}
	return out
}

// Remove deletes the record for key. Results still in flight for it are
// dropped when they complete. Reports whether a record existed.
func (r *Registry) Remove(key string) bool {
	r.mu.Lock()
	rec, ok := r.records[key]
	if ok {
		delete(r.records, key)
	}
	r.mu.Unlock()

	if ok {
		snapshot := rec.Endpoint
		snapshot.Removed = true
		r.publish(snapshot)
	}
	return ok
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Unhealthy returns the number of configured records currently offline.
func (r *Registry) Unhealthy() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, rec := range r.records {
		if rec.Configured() && !rec.Online {
			n++
		}
	}
	return n
}

// Record applies the result of a check dispatched against generation.
//
// If the endpoint goes from offline to online, its current indicator's
// ClearToOK is invoked before the lock is released. Transitions to offline
// are silent; the alert loop owns RaiseAlert. LastCheckedAt is set to at
// regardless of the verdict.
func (r *Registry) Record(key string, generation uint64, online bool, at time.Time) Outcome {
	r.mu.Lock()
	rec, ok := r.records[key]
	if !ok || rec.Generation != generation {
		r.mu.Unlock()
		return Stale
	}

	outcome := Applied
	switch {
	case online && !rec.Online:
		outcome = Recovered
	case !online && rec.Online:
		outcome = WentOffline
	}
	rec.Online = online
	rec.LastCheckedAt = at

	if outcome == Recovered && rec.indicator != nil {
		r.invoke(key, "clear_to_ok", rec.indicator.ClearToOK)
	}
	snapshot := rec.Endpoint
	r.mu.Unlock()

	r.publish(snapshot)
	return outcome
}

// RaiseAlerts invokes RaiseAlert on every visible, offline record using its
// current indicator, and returns how many were raised.
func (r *Registry) RaiseAlerts() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, rec := range r.records {
		if rec.Online || !rec.Visible || rec.indicator == nil {
			continue
		}
		r.invoke(key, "raise_alert", rec.indicator.RaiseAlert)
		n++
	}
	return n
}

// invoke runs fn through the guard, if any. Caller holds r.mu.
func (r *Registry) invoke(key, action string, fn func()) {
	if r.guard != nil {
		r.guard(key, action, fn)
		return
	}
	fn()
}
