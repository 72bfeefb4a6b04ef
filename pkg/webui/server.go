// Package webui serves the viewer window on a loopback address and carries the
// view's IPC: JSON endpoints for shell operations and a server-sent event stream
// for signals and document updates.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/lifelog-system/desktop-viewer/pkg/ipc"
	"github.com/lifelog-system/desktop-viewer/pkg/safebrowse"
	"github.com/lifelog-system/desktop-viewer/pkg/settings"
	"github.com/lifelog-system/desktop-viewer/pkg/view"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// ErrNotLoopback is returned by Start for a listen address outside the loopback interface.
var ErrNotLoopback = errors.New("listen address is not loopback")

// TokenHeader carries the per-run token on every state-changing request.
const TokenHeader = "X-Viewer-Token"

const (
	defaultGrace   = 3 * time.Second
	maxRequestBody = 64 << 10
)

// Shell is the privileged side invoked through /ipc.
type Shell interface {
	view.Bridge
	MinimizeToTray() ipc.Result
}

// Server is the window surface.
type Server struct {
	router    *view.Router
	shell     Shell
	signals   *ipc.Signals
	hub       *hub
	templates *template.Template
	mux       chi.Router
	http      *http.Server
	listener  net.Listener
	open      func(ctx context.Context, rawURL string) error
	openLocal func(ctx context.Context, rawURL string) error
	onClose   func()
	token     string
	dispose   []func()
	grace     time.Duration
	mu        sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithOnClose sets the callback run when the last window has disconnected for the
// grace period, which is how a closed browser tab reaches the lifecycle controller.
func WithOnClose(fn func()) Option {
	return func(s *Server) { s.onClose = fn }
}

// WithGrace sets how long a disconnected window may take to reconnect.
func WithGrace(d time.Duration) Option {
	return func(s *Server) { s.grace = d }
}

// WithOpeners replaces the browser launchers, for external links and for the window itself.
func WithOpeners(external, local func(ctx context.Context, rawURL string) error) Option {
	return func(s *Server) {
		s.open = external
		s.openLocal = local
	}
}

// New wires the window surface to the router, the shell and the signals.
func New(router *view.Router, sh Shell, signals *ipc.Signals, opts ...Option) (*Server, error) {
	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		router:    router,
		shell:     sh,
		signals:   signals,
		templates: tmpl,
		open:      safebrowse.Open,
		openLocal: safebrowse.OpenLocal,
		token:     uuid.NewString(),
		grace:     defaultGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s.grace, func() {
		if s.onClose != nil {
			s.onClose()
		}
	})
	s.setupRoutes()
	s.forward()
	return s, nil
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Token returns the per-run request token.
func (s *Server) Token() string {
	return s.token
}

// Clients returns the number of connected windows.
func (s *Server) Clients() int {
	return s.hub.count()
}

// Start listens on addr (host:port; port 0 picks one) and serves in the background.
// The host must be localhost or a loopback IP.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	if err := checkLoopback(addr); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.http = &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	srv := s.http
	s.mu.Unlock()

	slog.Info("[IPC] Window server listening", "url", s.URL())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[IPC] Window server stopped", "error", err)
		}
	}()
	return nil
}

func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotLoopback, addr)
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the window address.
func (s *Server) URL() string {
	return "http://" + s.Addr() + "/"
}

// Shutdown disconnects the windows and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, d := range s.dispose {
		d()
	}
	s.hub.close()

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// forward relays window signals and document changes to the connected windows.
func (s *Server) forward() {
	relay := func(name string) func(struct{}) {
		return func(struct{}) { s.hub.broadcast(name, []byte("{}")) }
	}
	s.dispose = append(s.dispose,
		s.signals.Show.Subscribe(relay("show")),
		s.signals.Hide.Subscribe(relay("hide")),
		s.signals.Focus.Subscribe(relay("focus")),
		s.router.Document().OnChange(func(snap view.Snapshot) {
			data, err := json.Marshal(snap)
			if err != nil {
				slog.Error("[IPC] Encoding document failed", "error", err)
				return
			}
			s.hub.broadcast("render", data)
		}),
	)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(localOnly)
	r.Use(middleware.RequestSize(maxRequestBody))

	staticSub, _ := fs.Sub(staticFS, "static") //nolint:errcheck // embedded directory always exists
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/", s.handleIndex)
	r.Get("/events", s.handleEvents)

	r.Route("/view", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/settings", s.handleGetForm)
		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Post("/navigate/{page}", s.handleNavigate)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/theme/toggle", s.handleToggleTheme)
			r.Post("/settings", s.handleSubmitForm)
			r.Post("/settings/test", s.handleTestConnection)
			r.Post("/open", s.handleOpen)
		})
	})

	r.Route("/ipc", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
		r.Post("/notification", s.handleNotification)
		r.Post("/minimize", s.handleMinimize)
	})

	s.mux = r
}

// localOnly rejects requests whose Host is not a loopback name, which blocks DNS rebinding.
func localOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.Host)
		if err != nil {
			host = r.Host
		}
		ip := net.ParseIP(host)
		if host != "localhost" && (ip == nil || !ip.IsLoopback()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(TokenHeader) != s.token {
			http.Error(w, "missing or invalid token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Window ---

type indexData struct {
	Token string
	view.Snapshot
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := indexData{Token: s.token, Snapshot: s.router.Document().Snapshot()}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.Error("[IPC] Template error", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, events := s.hub.subscribe()
	defer s.hub.unsubscribe(id)

	// A fresh window gets the whole document, then the theme is re-sent as it is
	// after every page load.
	snap, err := json.Marshal(s.router.Document().Snapshot())
	if err == nil {
		writeEvent(w, "render", snap)
	}
	flusher.Flush()
	go s.signals.ThemeChanged.Publish(string(s.shell.GetSettings().Theme))

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n") //nolint:errcheck // broken pipes end the loop via context
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, ev.name, ev.data)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data []byte) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data) //nolint:errcheck // see handleEvents
}

// --- View ---

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.router.Document().Snapshot())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	p, err := view.ParsePage(chi.URLParam(r, "page"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, ipc.Failed(err))
		return
	}
	if err := s.router.NavigateTo(p); err != nil {
		writeJSON(w, http.StatusNotFound, ipc.Failed(err))
		return
	}
	writeJSON(w, http.StatusOK, ipc.OK())
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.router.Refresh()
	writeJSON(w, http.StatusOK, ipc.OK())
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, _ *http.Request) {
	theme := s.router.Document().ToggleTheme()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "theme": theme})
}

type formJSON struct {
	APIEndpoint          string `json:"apiEndpoint"`
	UpdateInterval       string `json:"updateInterval"`
	Theme                string `json:"theme"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	StartMinimized       bool   `json:"startMinimized"`
}

func (s *Server) handleGetForm(w http.ResponseWriter, _ *http.Request) {
	f := s.router.Settings().Load()
	writeJSON(w, http.StatusOK, formJSON(f))
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	form := settings.Form{
		APIEndpoint:          r.FormValue("apiEndpoint"),
		UpdateInterval:       r.FormValue("updateInterval"),
		Theme:                r.FormValue("theme"),
		NotificationsEnabled: checked(r.FormValue("notificationsEnabled")),
		StartMinimized:       checked(r.FormValue("startMinimized")),
	}
	if err := s.router.Settings().Submit(r.Context(), form); err != nil {
		status := http.StatusInternalServerError
		var verr *settings.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, ipc.Failed(err))
		return
	}
	writeJSON(w, http.StatusOK, ipc.OK())
}

func checked(v string) bool {
	return v == "on" || v == "true" || v == "1"
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	ok := s.router.Settings().TestConnection(r.Context(), r.FormValue("apiEndpoint"))
	writeJSON(w, http.StatusOK, ipc.Result{Success: ok})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	target := r.FormValue("url")
	// The launcher outlives the request.
	if err := s.open(context.WithoutCancel(r.Context()), target); err != nil {
		slog.Warn("[IPC] Refusing to open link", "url", target, "error", err)
		writeJSON(w, http.StatusBadRequest, ipc.Failed(err))
		return
	}
	writeJSON(w, http.StatusOK, ipc.OK())
}

// --- IPC ---

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.shell.GetSettings())
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var next settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeJSON(w, http.StatusBadRequest, ipc.Failed(fmt.Errorf("decode settings: %w", err)))
		return
	}
	result, err := s.shell.SaveSettings(r.Context(), next)
	if err != nil {
		status := http.StatusInternalServerError
		var verr *settings.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ipc.Failed(fmt.Errorf("decode notification: %w", err)))
		return
	}
	writeJSON(w, http.StatusOK, s.shell.ShowNotification(req.Title, req.Body))
}

func (s *Server) handleMinimize(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.shell.MinimizeToTray())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("[IPC] Writing response failed", "error", err)
	}
}
