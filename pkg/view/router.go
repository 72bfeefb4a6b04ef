package view

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lifelog-system/desktop-viewer/pkg/ipc"
	"github.com/lifelog-system/desktop-viewer/pkg/settings"
	"github.com/lifelog-system/desktop-viewer/pkg/viewerapi"
)

// listLimit is the number of rows requested by the list pages.
const listLimit = 50

// API is the part of the viewer service client the pages use.
type API interface {
	Dashboard(ctx context.Context) (*viewerapi.Dashboard, error)
	LifelogSummary(ctx context.Context, date string) (*viewerapi.LifelogSummary, error)
	BrowserRecent(ctx context.Context, p viewerapi.Page) ([]viewerapi.BrowserHistoryItem, error)
	News(ctx context.Context, p viewerapi.Page) ([]viewerapi.NewsItem, error)
	Reports(ctx context.Context, p viewerapi.Page) ([]viewerapi.ReportItem, error)
	SetBaseURL(baseURL string)
	Probe(ctx context.Context, endpoint string) bool
}

// Bridge is the privileged side the view talks to.
type Bridge interface {
	GetSettings() settings.Settings
	SaveSettings(ctx context.Context, s settings.Settings) (ipc.Result, error)
	ShowNotification(title, body string) ipc.Result
}

// Observer is told when the visible page starts and finishes loading.
// Stale loads are not reported as finished.
type Observer interface {
	LoadStarted(p Page)
	LoadFinished(p Page, err error)
}

type loader func(ctx context.Context) (template.HTML, error)

// Router switches between pages and loads their data. It is the only writer of the
// active page.
//
// Every NavigateTo starts a new generation and cancels the loads of the previous one.
// A load writes into the Document only if its generation is still current and its
// page is still active, so late results never land on another page. Loads of the same
// page are also numbered, and a result older than the last committed one is dropped.
type Router struct {
	baseCtx   context.Context //nolint:containedctx // parent of all page loads
	genCtx    context.Context //nolint:containedctx // loads of the current generation
	api       API
	bridge    Bridge
	observer  Observer
	doc       *Document
	render    *renderer
	form      *SettingsForm
	loaders   map[Page]loader
	now       func() time.Time
	resolve   func(settings.Theme) string
	cancel    context.CancelFunc
	issued    map[Page]uint64
	committed map[Page]uint64
	wg        sync.WaitGroup
	gen       uint64
	mu        sync.Mutex
}

// Option configures a Router.
type Option func(*Router)

// WithClock overrides time.Now for relative timestamps and the last-updated label.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// WithThemeResolver sets how the "system" theme becomes light or dark.
func WithThemeResolver(fn func(settings.Theme) string) Option {
	return func(r *Router) {
		r.resolve = fn
	}
}

// WithObserver registers an Observer for page loads.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		r.observer = o
	}
}

// NewRouter creates a router showing the dashboard. Loads end when ctx is canceled.
func NewRouter(ctx context.Context, doc *Document, api API, bridge Bridge, opts ...Option) (*Router, error) {
	r := &Router{
		baseCtx:   ctx,
		doc:       doc,
		api:       api,
		bridge:    bridge,
		now:       time.Now,
		resolve:   staticTheme,
		issued:    make(map[Page]uint64),
		committed: make(map[Page]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}

	rend, err := newRenderer(func() time.Time { return r.now() })
	if err != nil {
		return nil, err
	}
	r.render = rend
	r.form = &SettingsForm{api: api, bridge: bridge, doc: doc, render: rend, resolve: r.resolve}
	r.genCtx, r.cancel = context.WithCancel(ctx)
	r.loaders = map[Page]loader{
		PageDashboard: r.loadDashboard,
		PageLifelog:   r.loadLifelog,
		PageBrowser:   r.loadBrowser,
		PageNews:      r.loadNews,
		PageReports:   r.loadReports,
		PageSettings:  r.loadSettings,
	}
	return r, nil
}

// Document returns the document the router writes to.
func (r *Router) Document() *Document {
	return r.doc
}

// Settings returns the settings page form controller.
func (r *Router) Settings() *SettingsForm {
	return r.form
}

// Active returns the active page.
func (r *Router) Active() Page {
	return r.doc.Active()
}

// Generation returns the navigation counter.
func (r *Router) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// NavigateTo makes p the active page and starts loading it. Unknown pages are
// rejected and leave the active page unchanged.
func (r *Router) NavigateTo(p Page) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPage, p)
	}

	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.cancel()
	r.genCtx, r.cancel = context.WithCancel(r.baseCtx)
	ctx := r.genCtx
	r.doc.ShowPage(p)
	r.mu.Unlock()

	slog.Info("[VIEW] Navigated", "page", p, "generation", gen)
	r.load(ctx, gen, p)
	return nil
}

// Refresh reloads the active page within the current generation. Auto and forced
// refreshes both end up here; neither is debounced.
func (r *Router) Refresh() {
	r.mu.Lock()
	gen := r.gen
	ctx := r.genCtx
	p := r.doc.Active()
	r.mu.Unlock()

	slog.Debug("[VIEW] Refreshing", "page", p, "generation", gen)
	r.load(ctx, gen, p)
}

// ApplyTheme resolves a theme setting and applies it to the document.
func (r *Router) ApplyTheme(t settings.Theme) {
	r.doc.SetTheme(r.resolve(t))
}

// Subscribe connects the router to the shell signals. The returned function disconnects it.
func (r *Router) Subscribe(s *ipc.Signals) (dispose func()) {
	disposers := []func(){
		s.AutoRefresh.Subscribe(func(struct{}) { r.Refresh() }),
		s.ForceRefresh.Subscribe(func(struct{}) { r.Refresh() }),
		s.NavigateTo.Subscribe(func(name string) {
			p, err := ParsePage(name)
			if err != nil {
				slog.Warn("[VIEW] Ignoring navigation request", "error", err)
				return
			}
			if err := r.NavigateTo(p); err != nil {
				slog.Warn("[VIEW] Navigation failed", "page", p, "error", err)
			}
		}),
		s.ThemeChanged.Subscribe(func(theme string) {
			r.ApplyTheme(settings.Theme(theme))
		}),
	}
	return func() {
		for _, d := range disposers {
			d()
		}
	}
}

// Wait blocks until every started load has finished.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) load(ctx context.Context, gen uint64, p Page) {
	if r.observer != nil {
		r.observer.LoadStarted(p)
	}

	r.mu.Lock()
	r.issued[p]++
	seq := r.issued[p]
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		html, err := r.runLoader(ctx, p)

		r.mu.Lock()
		if gen != r.gen || r.doc.Active() != p {
			current := r.gen
			r.mu.Unlock()
			slog.Debug("[VIEW] Discarding stale load", "page", p, "generation", gen, "current", current, "error", err)
			return
		}
		if seq < r.committed[p] {
			newer := r.committed[p]
			r.mu.Unlock()
			slog.Debug("[VIEW] Discarding load overtaken by a newer refresh", "page", p, "seq", seq, "committed", newer, "error", err)
			return
		}
		r.committed[p] = seq
		if err == nil {
			r.doc.Commit(p, html, r.now())
		}
		r.mu.Unlock()

		if err != nil {
			slog.Warn("[VIEW] Page load failed", "page", p, "error", err)
			r.bridge.ShowNotification("Error", fmt.Sprintf("Failed to load %s", strings.ToLower(p.Title())))
		}
		if r.observer != nil {
			r.observer.LoadFinished(p, err)
		}
	}()
}

func (r *Router) runLoader(ctx context.Context, p Page) (html template.HTML, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[VIEW] Page loader panicked", "page", p, "panic", rec)
			err = fmt.Errorf("load %s: panic: %v", p, rec)
		}
	}()
	return r.loaders[p](ctx)
}

func (r *Router) loadDashboard(ctx context.Context) (template.HTML, error) {
	d, err := r.api.Dashboard(ctx)
	if err != nil {
		return "", err
	}
	return r.render.render("dashboard", d)
}

func (r *Router) loadLifelog(ctx context.Context) (template.HTML, error) {
	s, err := r.api.LifelogSummary(ctx, "")
	if err != nil {
		return "", err
	}
	return r.render.render("lifelog", s)
}

func (r *Router) loadBrowser(ctx context.Context) (template.HTML, error) {
	items, err := r.api.BrowserRecent(ctx, viewerapi.Page{Limit: listLimit})
	if err != nil {
		return "", err
	}
	return r.render.render("browser", items)
}

func (r *Router) loadNews(ctx context.Context) (template.HTML, error) {
	items, err := r.api.News(ctx, viewerapi.Page{Limit: listLimit})
	if err != nil {
		return "", err
	}
	return r.render.render("news", items)
}

func (r *Router) loadReports(ctx context.Context) (template.HTML, error) {
	items, err := r.api.Reports(ctx, viewerapi.Page{Limit: listLimit})
	if err != nil {
		return "", err
	}
	return r.render.render("reports", items)
}

func (r *Router) loadSettings(context.Context) (template.HTML, error) {
	return r.form.html(r.form.Load(), "", "")
}

func staticTheme(t settings.Theme) string {
	if t == settings.ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}
