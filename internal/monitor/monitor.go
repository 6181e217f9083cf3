package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gametime/internal/events"
	"gametime/internal/inspector"
)

const (
	minInterval  = 1 * time.Second
	maxInterval  = 60 * time.Second
	stopDeadline = 2 * time.Second
)

// SessionStatus reports whether an authorized session is running.
type SessionStatus interface {
	Active() bool
}

// Config tunes the monitor loop.
type Config struct {
	Interval   time.Duration
	LockScreen bool
}

// Monitor polls the host on an interval and enforces the rules when no
// session is active. Start and Stop are idempotent. Poll errors are
// logged and the loop keeps running; the monitor must survive transient
// host failures.
type Monitor struct {
	inspector inspector.Inspector
	session   SessionStatus
	recorder  *events.Recorder
	logger    *slog.Logger

	mu       sync.Mutex
	rules    []Rule
	interval time.Duration
	lock     bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(insp inspector.Inspector, session SessionStatus, rules []Rule, cfg Config, recorder *events.Recorder, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		inspector: insp,
		session:   session,
		recorder:  recorder,
		logger:    logger,
		rules:     rules,
		lock:      cfg.LockScreen,
	}
	m.interval = clampInterval(cfg.Interval)
	return m
}

func clampInterval(d time.Duration) time.Duration {
	if d < minInterval {
		return minInterval
	}
	if d > maxInterval {
		return maxInterval
	}
	return d
}

// SetInterval changes the poll interval, clamped to [1s, 60s]. Takes
// effect on the next tick.
func (m *Monitor) SetInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = clampInterval(d)
}

// Start launches the poll loop. Starting a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	done := make(chan struct{})
	m.done = done

	go m.loop(loopCtx, done)

	m.recorder.Record(ctx, events.KindMonitorStarted, "interval", m.interval)
	m.logger.Info("monitor started", "interval", m.interval, "rules", len(m.rules))
}

// Stop cancels the loop and waits for the in-flight tick, up to a short
// deadline. Stopping a stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-time.After(stopDeadline):
		m.logger.Warn("monitor did not stop within deadline")
	}

	m.recorder.Record(context.Background(), events.KindMonitorStopped)
	m.logger.Info("monitor stopped")
}

// Running reports whether the poll loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		m.mu.Lock()
		interval := m.interval
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		if m.session != nil && m.session.Active() {
			continue
		}
		if err := m.tick(ctx); err != nil {
			m.logger.Warn("monitor tick failed", "error", err)
		}
	}
}

// tick runs one poll and enforcement pass.
func (m *Monitor) tick(ctx context.Context) error {
	m.mu.Lock()
	rules := m.rules
	lock := m.lock
	m.mu.Unlock()

	processes, err := m.inspector.Processes(ctx)
	if err != nil {
		return fmt.Errorf("inspector.Processes() > %w", err)
	}
	titles, err := m.inspector.WindowTitles(ctx)
	if err != nil {
		return fmt.Errorf("inspector.WindowTitles() > %w", err)
	}

	violated := false
	for i := range rules {
		rule := &rules[i]
		pids, matched := evaluate(rule, processes, titles)
		if !matched {
			continue
		}
		violated = true

		m.recorder.Record(ctx, events.KindRestrictionFound, "rule", rule.Name)
		m.logger.Info("restricted game detected", "rule", rule.Name, "processes", len(pids))

		for _, pid := range pids {
			if err := m.inspector.Terminate(ctx, pid); err != nil {
				m.logger.Warn("failed to terminate process", "pid", pid, "error", err)
				continue
			}
			m.recorder.Record(ctx, events.KindProcessTerminated, "rule", rule.Name, "pid", pid)
		}
	}

	if violated && lock {
		if err := m.inspector.LockScreen(ctx); err != nil {
			m.logger.Warn("failed to lock screen", "error", err)
		} else {
			m.recorder.Record(ctx, events.KindScreenLocked)
		}
	}
	return nil
}

// evaluate returns the PIDs to terminate and whether the rule matched.
// A window rule matches without naming processes; it relies on the
// screen lock.
func evaluate(rule *Rule, processes []inspector.Process, titles []string) ([]int32, bool) {
	titleMatched := false
	for _, title := range titles {
		if rule.matchesTitle(title) {
			titleMatched = true
			break
		}
	}

	switch rule.Kind {
	case KindProcess:
		var pids []int32
		for _, p := range processes {
			if rule.matchesProcess(p.Name) {
				pids = append(pids, p.PID)
			}
		}
		return pids, len(pids) > 0
	case KindWindow:
		return nil, titleMatched
	case KindBrowserTab:
		if !titleMatched {
			return nil, false
		}
		var pids []int32
		for _, p := range processes {
			if rule.matchesProcess(p.Name) {
				pids = append(pids, p.PID)
			}
		}
		return pids, true
	}
	return nil, false
}
