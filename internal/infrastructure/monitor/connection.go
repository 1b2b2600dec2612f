package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pinger abstracts the tool host client's liveness probe.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// Monitor periodically probes the service's collaborators. The LLM flag is
// static configuration: either a backend was configured at startup or not.
type Monitor struct {
	pg            *pgxpool.Pool
	toolHost      Pinger
	llmConfigured bool

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	logger   *zap.Logger
}

func New(pg *pgxpool.Pool, toolHost Pinger, llmConfigured bool, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:            pg,
		toolHost:      toolHost,
		llmConfigured: llmConfigured,
		interval:      interval,
		stopCh:        make(chan struct{}),
		logger:        logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	close(m.stopCh)
}

// IsOnline reports whether the hard dependency, the durable store, is up.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.PostgreSQL
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	status := Status{
		PostgreSQL: m.checkPostgres(),
		ToolHost:   m.checkToolHost(),
		LLM:        m.llmConfigured,
		LastCheck:  time.Now(),
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Monitor) checkPostgres() bool {
	if m.pg == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return m.pg.Ping(ctx) == nil
}

func (m *Monitor) checkToolHost() bool {
	if m.toolHost == nil {
		return false
	}
	return m.toolHost.Healthy(context.Background())
}
