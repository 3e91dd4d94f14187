// Package health serves liveness and readiness probes for the API server.
//
// Every registered check is polled in its own goroutine. A check turns
// unhealthy after FailureThreshold consecutive failures and healthy again
// after SuccessThreshold consecutive successes, so a single slow ping of a
// store does not flap the probe.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked dependency is healthy.
type CheckFunc func(ctx context.Context) error

// Probe selects the endpoint a check contributes to.
type Probe int

const (
	// Liveness checks fail the process: goroutine leaks, deadlocks.
	Liveness Probe = iota
	// Readiness checks take the instance out of rotation: store or cache
	// connectivity.
	Readiness
)

// Check describes one registered check. Zero thresholds default to three
// failures and one success.
type Check struct {
	Name             string
	Timeout          time.Duration
	FailureThreshold int
	SuccessThreshold int
	Func             CheckFunc
}

// state is a registered check. The counters are owned by the polling
// goroutine; healthy and lastErr are read concurrently by probe handlers.
type state struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails, oks int
}

func (s *state) err() error {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// poll runs the check once and updates its health.
func (s *state) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	err := s.Func(ctx)
	s.lastErr.Store(&err)
	if err != nil {
		s.oks = 0
		if s.fails++; s.fails >= s.FailureThreshold {
			s.healthy.Store(false)
		}
		return
	}
	s.fails = 0
	if s.oks++; s.oks >= s.SuccessThreshold {
		s.healthy.Store(true)
	}
}

// Health tracks the checks of one process. The zero value is not usable; use
// New.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks map[Probe][]*state
	cancel context.CancelFunc
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{checks: make(map[Probe][]*state)}
}

// Register adds a check to probe. Checks start healthy. Register all checks
// before Start.
func (h *Health) Register(probe Probe, c Check) {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	s := &state{Check: c}
	s.healthy.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[probe] = append(h.checks[probe], s)
}

func (h *Health) snapshot(probe Probe) []*state {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.checks[probe])
}

// Start polls every registered check each interval until Stop or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	var all []*state
	for _, probe := range []Probe{Liveness, Readiness} {
		all = append(all, h.checks[probe]...)
	}
	h.mu.Unlock()

	for _, s := range all {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				s.poll(ctx)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
}

// Stop ends polling. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady marks the process as able (or no longer able) to serve traffic.
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// IsReady reports SetReady(true) and all readiness checks healthy.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(Readiness))) == 0
}

// Failure is an unhealthy check in a probe report.
type Failure struct {
	Name    string
	Message string
}

// failures lists unhealthy checks in registration order.
func failures(checks []*state) []Failure {
	var out []Failure
	for _, s := range checks {
		if s.healthy.Load() {
			continue
		}
		msg := "check is unhealthy"
		if err := s.err(); err != nil {
			msg = err.Error()
		}
		out = append(out, Failure{Name: s.Name, Message: msg})
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, failures(h.snapshot(Liveness)))
}

// ReadyEndpoint serves /readyz. An instance not marked ready reports the
// pseudo check "_readiness".
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	f := failures(h.snapshot(Readiness))
	if !h.ready.Load() {
		f = append(f, Failure{Name: "_readiness", Message: "service is not ready"})
	}
	writeReport(w, f)
}

// EncodeReport writes {"status":"ok"} or {"status":"unhealthy","checks":{...}}.
func EncodeReport(e *jx.Encoder, f []Failure) {
	e.ObjStart()
	e.FieldStart("status")
	if len(f) == 0 {
		e.Str("ok")
		e.ObjEnd()
		return
	}
	e.Str("unhealthy")
	e.FieldStart("checks")
	e.ObjStart()
	for _, c := range f {
		e.FieldStart(c.Name)
		e.Str(c.Message)
	}
	e.ObjEnd()
	e.ObjEnd()
}

func writeReport(w http.ResponseWriter, f []Failure) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	EncodeReport(e, f)

	status := http.StatusOK
	if len(f) > 0 {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
