package health

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/providers"
)

// Status is the last probe result for one provider.
type Status struct {
	Provider  string    `json:"provider"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor periodically probes providers and keeps their latest status for
// reporting. Results are informational and never change the lineup.
type Monitor struct {
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	getLineup func() []providers.Provider
	startOnce sync.Once

	mu     sync.RWMutex
	status map[string]Status
}

// NewMonitor constructs a monitor using the health configuration.
func NewMonitor(cfg config.HealthConfig, logger *slog.Logger) *Monitor {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > interval {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		status:   make(map[string]Status),
	}
}

// Start begins the monitoring loop until ctx is canceled.
func (m *Monitor) Start(ctx context.Context, getLineup func() []providers.Provider) {
	if getLineup == nil {
		return
	}
	m.getLineup = getLineup

	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Initial sweep
	m.CheckNow(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow probes every provider that exposes a health check.
func (m *Monitor) CheckNow(ctx context.Context) {
	if m.getLineup == nil {
		return
	}
	lineup := m.getLineup()

	var wg sync.WaitGroup
	for _, p := range lineup {
		checker, ok := p.(providers.HealthChecker)
		if !ok {
			continue
		}
		id := p.Config().ID

		wg.Add(1)
		go func(id string, checker providers.HealthChecker) {
			defer wg.Done()
			timeoutCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()

			st := Status{Provider: id, Healthy: true, CheckedAt: time.Now().UTC()}
			if err := checker.HealthCheck(timeoutCtx); err != nil {
				st.Healthy = false
				st.Error = err.Error()
				m.logger.WarnContext(ctx, "provider health check failed", "provider", id, "error", err)
			}
			m.mu.Lock()
			m.status[id] = st
			m.mu.Unlock()
		}(id, checker)
	}
	wg.Wait()
}

// Snapshot returns the latest statuses sorted by provider id.
func (m *Monitor) Snapshot() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.status))
	for _, st := range m.status {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
