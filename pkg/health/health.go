// Package health exposes Kubernetes-style liveness and readiness endpoints.
//
// Probes run on a shared ticker in the background. A probe flips to failing
// only after failThreshold consecutive errors, and back to passing after a
// single success, so a transient database hiccup does not bounce the pod.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports whether a component is healthy. A nil return means healthy.
type Check func(ctx context.Context) error

const (
	failThreshold = 3
	passThreshold = 1
)

// probe wraps a Check with flap suppression. All mutable state sits behind mu;
// probes are cheap and polled at most every few seconds, so a mutex is fine.
type probe struct {
	name    string
	timeout time.Duration
	check   Check

	mu      sync.Mutex
	failing bool
	fails   int
	passes  int
	lastErr error
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.check(ctx)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err != nil {
		p.passes = 0
		p.fails++
		if p.fails >= failThreshold {
			p.failing = true
		}
		return
	}
	p.fails = 0
	p.passes++
	if p.passes >= passThreshold {
		p.failing = false
	}
}

// status returns the current failing flag and the last observed error.
func (p *probe) status() (failing bool, lastErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failing, p.lastErr
}

// Health tracks liveness and readiness probes for a single service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	stop      context.CancelFunc
}

// New returns a Health that reports not-ready until SetReady(true) is called.
func New() *Health {
	return &Health{}
}

func (h *Health) add(dst *[]*probe, name string, timeout time.Duration, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	*dst = append(*dst, &probe{name: name, timeout: timeout, check: check})
}

// AddLivenessCheck registers a probe served on the liveness endpoint.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check Check) {
	h.add(&h.liveness, name, timeout, check)
}

// AddReadinessCheck registers a probe served on the readiness endpoint.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check Check) {
	h.add(&h.readiness, name, timeout, check)
}

// Start polls every registered probe once immediately and then on the given
// interval until Stop is called or ctx is cancelled. Register all probes
// before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.stop = cancel
	probes := append(append([]*probe(nil), h.liveness...), h.readiness...)
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			for _, p := range probes {
				p.poll(ctx)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels background polling. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stop != nil {
		h.stop()
		h.stop = nil
	}
}

// SetReady flips the manual readiness gate. Call with true once startup
// finishes and with false at the start of graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness probe passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	probes := h.readiness
	h.mu.RUnlock()
	for _, p := range probes {
		if failing, _ := p.status(); failing {
			return false
		}
	}
	return true
}

type report struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

// LiveEndpoint serves the liveness probe. 200 when all liveness checks pass,
// 503 with per-check failure messages otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := append([]*probe(nil), h.liveness...)
	h.mu.RUnlock()

	serveReport(w, failures(probes))
}

// ReadyEndpoint serves the readiness probe. 200 only when the service has
// been marked ready and all readiness checks pass.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := append([]*probe(nil), h.readiness...)
	h.mu.RUnlock()

	fails := failures(probes)
	if !h.ready.Load() {
		fails["_gate"] = "service not marked ready"
	}
	serveReport(w, fails)
}

func failures(probes []*probe) map[string]string {
	fails := make(map[string]string)
	for _, p := range probes {
		failing, lastErr := p.status()
		if !failing {
			continue
		}
		msg := "probe failing"
		if lastErr != nil {
			msg = lastErr.Error()
		}
		fails[p.name] = msg
	}
	return fails
}

func serveReport(w http.ResponseWriter, fails map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	rep := report{Status: "pass"}
	code := http.StatusOK
	if len(fails) > 0 {
		rep = report{Status: "fail", Failures: fails}
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}
