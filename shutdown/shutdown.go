package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/zooarc/menagerie/logger"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

/* ========================================================================
 * Graceful shutdown manager
 * ========================================================================
 * Hooks run in priority order on SIGINT/SIGTERM/SIGQUIT; hooks sharing
 * a priority run in parallel. A global timeout bounds the whole
 * sequence. The audit retry queue drains before the HTTP server is
 * torn down, so a lower priority means earlier execution.
 * ======================================================================== */

// Hook priorities, lower runs first.
const (
	PriorityFirst  = 0
	PriorityNormal = 50
	PriorityLast   = 100
)

// Hook is one shutdown step.
type Hook func(ctx context.Context) error

type hookEntry struct {
	name     string
	hook     Hook
	priority int
}

// Manager coordinates graceful shutdown.
type Manager struct {
	config  *Config
	logger  *logger.Logger
	timeout time.Duration
	hooks   []hookEntry
	mu      sync.RWMutex
	done    chan struct{}
	once    sync.Once
}

// ManagerParams are the fx dependencies.
type ManagerParams struct {
	fx.In

	Logger *logger.Logger
	Config *Config
}

// NewManager creates a shutdown Manager.
func NewManager(p ManagerParams) *Manager {
	cfg := p.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Manager{
		config:  cfg,
		logger:  p.Logger,
		timeout: cfg.Timeout,
		hooks:   make([]hookEntry, 0),
		done:    make(chan struct{}),
	}
}

// RegisterHook registers a hook at the default priority.
func (m *Manager) RegisterHook(name string, hook Hook) {
	m.RegisterHookWithPriority(name, hook, PriorityNormal)
}

// RegisterHookWithPriority registers a hook; lower priorities run
// first, equal priorities run in parallel.
func (m *Manager) RegisterHookWithPriority(name string, hook Hook, priority int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, hookEntry{
		name:     name,
		hook:     hook,
		priority: priority,
	})

	m.logger.Info("Registered shutdown hook",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Wait blocks until a termination signal arrives, then shuts down.
func (m *Manager) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigChan
	m.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	m.Shutdown(context.Background())
}

// Shutdown runs the hook sequence once; further calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		m.performShutdown(ctx)
		close(m.done)
	})
}

// Done is closed when shutdown completes.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// IsShutdown reports whether shutdown has completed.
func (m *Manager) IsShutdown() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

func (m *Manager) performShutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.RLock()
	hooks := make([]hookEntry, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.RUnlock()

	sort.Slice(hooks, func(i, j int) bool {
		return hooks[i].priority < hooks[j].priority
	})

	m.logger.Info("Starting graceful shutdown",
		zap.Int("hooks", len(hooks)),
		zap.Duration("timeout", m.timeout),
	)

	groups := groupByPriority(hooks)
	var allResults []hookResult

	for _, group := range groups {
		if shutdownCtx.Err() != nil {
			m.logger.Warn("Shutdown timeout reached, skipping remaining hooks")
			break
		}

		m.logger.Info("Executing shutdown hooks",
			zap.Int("priority", group.priority),
			zap.Int("count", len(group.hooks)),
		)

		results := m.executeHookGroup(shutdownCtx, group.hooks)
		allResults = append(allResults, results...)
	}

	m.reportResults(allResults)

	if shutdownCtx.Err() == nil {
		m.logger.Info("Graceful shutdown completed successfully")
	} else {
		m.logger.Warn("Graceful shutdown completed with timeout")
	}
}

type hookGroup struct {
	priority int
	hooks    []hookEntry
}

func groupByPriority(hooks []hookEntry) []hookGroup {
	if len(hooks) == 0 {
		return nil
	}

	var groups []hookGroup
	currentPriority := hooks[0].priority
	currentGroup := hookGroup{priority: currentPriority}

	for _, h := range hooks {
		if h.priority != currentPriority {
			groups = append(groups, currentGroup)
			currentPriority = h.priority
			currentGroup = hookGroup{priority: currentPriority}
		}
		currentGroup.hooks = append(currentGroup.hooks, h)
	}
	groups = append(groups, currentGroup)

	return groups
}

// executeHookGroup runs one priority group in parallel, bounded by ctx.
func (m *Manager) executeHookGroup(ctx context.Context, hooks []hookEntry) []hookResult {
	resultChan := make(chan hookResult, len(hooks))
	var wg sync.WaitGroup

	for _, h := range hooks {
		wg.Add(1)
		go func(entry hookEntry) {
			defer wg.Done()

			start := time.Now()
			err := entry.hook(ctx)

			resultChan <- hookResult{
				name:     entry.name,
				err:      err,
				duration: time.Since(start),
			}
		}(h)
	}

	results := make([]hookResult, 0, len(hooks))
	completed := 0

loop:
	for completed < len(hooks) {
		select {
		case result, ok := <-resultChan:
			if !ok {
				break loop
			}
			results = append(results, result)
			completed++
		case <-ctx.Done():
			m.logger.Warn("Timeout waiting for hook group completion",
				zap.Int("completed", completed),
				zap.Int("total", len(hooks)),
			)
			break loop
		}
	}

	return results
}

type hookResult struct {
	name     string
	err      error
	duration time.Duration
}

func (m *Manager) reportResults(results []hookResult) {
	succeeded := 0
	for _, result := range results {
		if result.err != nil {
			m.logger.Error("Shutdown hook failed",
				zap.String("name", result.name),
				zap.Duration("duration", result.duration),
				zap.Error(result.err),
			)
		} else {
			m.logger.Info("Shutdown hook completed",
				zap.String("name", result.name),
				zap.Duration("duration", result.duration),
			)
			succeeded++
		}
	}

	m.logger.Info("Shutdown summary",
		zap.Int("succeeded", succeeded),
		zap.Int("total", len(results)),
	)
}

// WaitForShutdown blocks until the shutdown sequence has completed.
func (m *Manager) WaitForShutdown() {
	<-m.done
}
