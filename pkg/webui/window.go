package webui

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// reopenGuard stops repeated Show calls from opening several tabs while the first
// one is still loading.
const reopenGuard = 10 * time.Second

// Window presents the server as the application's main window. A connected browser
// tab is the window; showing it with no tab connected opens a new one.
type Window struct {
	srv      *Server
	opened   time.Time
	now      func() time.Time
	mu       sync.Mutex
	shown    bool
	disposed bool
}

// Window returns the lifecycle window backed by this server.
func (s *Server) Window() *Window {
	return &Window{srv: s, now: time.Now}
}

// Show opens the window in the browser, or raises the connected one.
func (w *Window) Show() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shown = true

	if w.srv.Clients() > 0 {
		w.srv.signals.Show.Publish(struct{}{})
		return
	}
	if !w.opened.IsZero() && w.now().Sub(w.opened) < reopenGuard {
		slog.Debug("[WINDOW] Browser tab still opening")
		return
	}
	w.opened = w.now()
	url := w.srv.URL()
	if err := w.srv.openLocal(context.Background(), url); err != nil {
		slog.Error("[WINDOW] Failed to open window in browser", "url", url, "error", err)
		w.opened = time.Time{}
	}
}

// Hide asks connected tabs to get out of the way.
func (w *Window) Hide() {
	w.mu.Lock()
	w.shown = false
	w.mu.Unlock()
	w.srv.signals.Hide.Publish(struct{}{})
}

// Focus raises the connected tab.
func (w *Window) Focus() {
	w.srv.signals.Focus.Publish(struct{}{})
}

// Destroy tells connected tabs the application is gone.
func (w *Window) Destroy() {
	w.mu.Lock()
	w.disposed = true
	w.shown = false
	w.mu.Unlock()
	w.srv.hub.broadcast("close", []byte("{}"))
}

// Visible reports whether the window was last shown rather than hidden.
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shown && !w.disposed
}
