// Package health implements the Health Monitor from spec.md §4.13: a
// per-provider snapshot derived from the Resilience Facade's rolling
// outcome window, aggregated into one global status, with custom probe
// registration for checks that fall outside ordinary request traffic.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/heymumford/skidbladnir/resilience/facade"
)

// GlobalStatus is the aggregated health of every monitored provider.
type GlobalStatus string

const (
	Up       GlobalStatus = "UP"
	Degraded GlobalStatus = "DEGRADED"
	Down     GlobalStatus = "DOWN"
)

// Snapshot is one provider's health at the moment it was polled.
type Snapshot struct {
	Provider  string
	Status    facade.HealthStatus
	CheckedAt time.Time
}

// Probe is a custom health check beyond the ordinary request-derived
// facade status, e.g. a lightweight connectivity ping run on its own
// schedule.
type Probe func(ctx context.Context) facade.HealthStatus

// providerSource pairs a facade with any registered custom probes for
// one provider.
type providerSource struct {
	facade *facade.Facade
	probes []Probe
}

// Monitor polls every registered provider's Resilience Facade and
// derives a global status.
type Monitor struct {
	mu        sync.RWMutex
	providers map[string]*providerSource
	snapshots map[string]Snapshot

	gauge *prometheus.GaugeVec
}

// New builds an empty Monitor. registerer receives the exported
// skidbladnir_provider_health gauge; pass nil to skip Prometheus
// registration (e.g. in tests).
func New(registerer prometheus.Registerer) *Monitor {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skidbladnir_provider_health",
			Help: "Provider health as derived from the resilience facade (1=healthy, 0.5=degraded, 0=unhealthy)",
		},
		[]string{"provider"},
	)
	if registerer != nil {
		registerer.MustRegister(gauge)
	}
	return &Monitor{
		providers: make(map[string]*providerSource),
		snapshots: make(map[string]Snapshot),
		gauge:     gauge,
	}
}

// RegisterProvider begins monitoring f under the given provider id.
func (m *Monitor) RegisterProvider(provider string, f *facade.Facade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[provider] = &providerSource{facade: f}
}

// RegisterProbe attaches a custom probe to an already-registered
// provider. A provider may carry any number of probes; the provider's
// effective status is the worst of its facade status and every probe.
func (m *Monitor) RegisterProbe(provider string, probe Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.providers[provider]
	if !ok {
		src = &providerSource{}
		m.providers[provider] = src
	}
	src.probes = append(src.probes, probe)
}

// Poll refreshes every registered provider's snapshot and returns the
// resulting set.
func (m *Monitor) Poll(ctx context.Context) map[string]Snapshot {
	m.mu.RLock()
	providers := make(map[string]*providerSource, len(m.providers))
	for k, v := range m.providers {
		providers[k] = v
	}
	m.mu.RUnlock()

	now := time.Now()
	out := make(map[string]Snapshot, len(providers))
	for provider, src := range providers {
		status := facade.Healthy
		if src.facade != nil {
			status = src.facade.Health()
		}
		for _, probe := range src.probes {
			if worse := probe(ctx); isWorse(worse, status) {
				status = worse
			}
		}
		snap := Snapshot{Provider: provider, Status: status, CheckedAt: now}
		out[provider] = snap
		m.gauge.WithLabelValues(provider).Set(gaugeValue(status))
	}

	m.mu.Lock()
	m.snapshots = out
	m.mu.Unlock()
	return out
}

// Snapshot returns the most recently polled status for one provider.
func (m *Monitor) Snapshot(provider string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[provider]
	return snap, ok
}

// Global aggregates the most recent snapshots per spec.md §4.13:
// UP when every provider is HEALTHY, DOWN when any provider is
// UNHEALTHY, DEGRADED otherwise.
func (m *Monitor) Global() GlobalStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.snapshots) == 0 {
		return Up
	}
	anyDegraded := false
	for _, snap := range m.snapshots {
		switch snap.Status {
		case facade.Unhealthy:
			return Down
		case facade.Degraded:
			anyDegraded = true
		}
	}
	if anyDegraded {
		return Degraded
	}
	return Up
}

func isWorse(a, b facade.HealthStatus) bool {
	return rank(a) > rank(b)
}

func rank(s facade.HealthStatus) int {
	switch s {
	case facade.Unhealthy:
		return 2
	case facade.Degraded:
		return 1
	default:
		return 0
	}
}

func gaugeValue(s facade.HealthStatus) float64 {
	switch s {
	case facade.Healthy:
		return 1
	case facade.Degraded:
		return 0.5
	default:
		return 0
	}
}
