package main

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lifelog-system/desktop-viewer/pkg/icon"
	"github.com/lifelog-system/desktop-viewer/pkg/view"
)

// safeExecute runs a function with panic recovery and logging.
func safeExecute(operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			err = fmt.Errorf("panic in %s: %v\nStack: %s", operation, r, stack)
			slog.Error("[RELIABILITY] Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(stack))
		}
	}()

	start := time.Now()
	err = fn()
	duration := time.Since(start)

	if err != nil {
		slog.Error("[RELIABILITY] Operation failed",
			"operation", operation,
			"error", err,
			"duration", duration)
	} else if duration > 5*time.Second {
		slog.Warn("[RELIABILITY] Slow operation",
			"operation", operation,
			"duration", duration)
	}

	return err
}

// healthMonitor tracks page loads and reports the outcome of the latest one to the tray.
type healthMonitor struct {
	lastLoadTime time.Time
	started      time.Time
	report       func(status icon.Status, page view.Page, err error)
	lastError    error
	loads        int64
	failures     int64
	mu           sync.RWMutex
}

func newHealthMonitor(report func(status icon.Status, page view.Page, err error)) *healthMonitor {
	return &healthMonitor{
		started: time.Now(),
		report:  report,
	}
}

// LoadStarted implements view.Observer.
func (hm *healthMonitor) LoadStarted(p view.Page) {
	if hm.report != nil {
		hm.report(icon.Loading, p, nil)
	}
}

// LoadFinished implements view.Observer.
func (hm *healthMonitor) LoadFinished(p view.Page, err error) {
	hm.mu.Lock()
	hm.loads++
	hm.lastLoadTime = time.Now()
	hm.lastError = err
	if err != nil {
		hm.failures++
	}
	hm.mu.Unlock()

	if hm.report == nil {
		return
	}
	if err != nil {
		hm.report(icon.Error, p, err)
		return
	}
	hm.report(icon.OK, p, nil)
}

func (hm *healthMonitor) metrics() map[string]any {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	errorRate := float64(0)
	if hm.loads > 0 {
		errorRate = float64(hm.failures) / float64(hm.loads) * 100
	}

	lastError := ""
	if hm.lastError != nil {
		lastError = hm.lastError.Error()
	}

	return map[string]any{
		"uptime":     time.Since(hm.started),
		"loads":      hm.loads,
		"failures":   hm.failures,
		"error_rate": errorRate,
		"last_load":  hm.lastLoadTime,
		"last_error": lastError,
	}
}

func (hm *healthMonitor) logMetrics() {
	m := hm.metrics()
	slog.Info("[HEALTH] Application metrics",
		"uptime", m["uptime"],
		"loads", m["loads"],
		"failures", m["failures"],
		"error_rate_pct", fmt.Sprintf("%.1f", m["error_rate"]),
		"last_error", m["last_error"])
}
