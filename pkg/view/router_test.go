package view

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lifelog-system/desktop-viewer/pkg/ipc"
	"github.com/lifelog-system/desktop-viewer/pkg/settings"
	"github.com/lifelog-system/desktop-viewer/pkg/viewerapi"
)

type notification struct {
	title string
	body  string
}

type fakeBridge struct {
	saveErr error
	current settings.Settings
	saved   []settings.Settings
	notes   []notification
	mu      sync.Mutex
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{current: settings.Defaults()}
}

func (b *fakeBridge) GetSettings() settings.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *fakeBridge) SaveSettings(_ context.Context, s settings.Settings) (ipc.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return ipc.Failed(b.saveErr), b.saveErr
	}
	b.saved = append(b.saved, s)
	b.current = s
	return ipc.OK(), nil
}

func (b *fakeBridge) ShowNotification(title, body string) ipc.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notes = append(b.notes, notification{title, body})
	return ipc.OK()
}

func (b *fakeBridge) notifications() []notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]notification(nil), b.notes...)
}

type recordingObserver struct {
	started  []Page
	finished []error
	mu       sync.Mutex
}

func (o *recordingObserver) LoadStarted(p Page) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, p)
}

func (o *recordingObserver) LoadFinished(_ Page, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, err)
}

// blockingBrowserAPI ignores cancellation so only the generation check protects the document.
type blockingBrowserAPI struct {
	*viewerapi.Client
	started chan struct{}
	release chan struct{}
}

func (a *blockingBrowserAPI) BrowserRecent(context.Context, viewerapi.Page) ([]viewerapi.BrowserHistoryItem, error) {
	a.started <- struct{}{}
	<-a.release
	return []viewerapi.BrowserHistoryItem{{Title: "LATE RESULT", URL: "https://late.example"}}, nil
}

// slowFirstDashboardAPI holds its first Dashboard call until released and answers
// later calls at once.
type slowFirstDashboardAPI struct {
	*viewerapi.Client
	firstErr error
	started  chan struct{}
	release  chan struct{}
	calls    atomic.Int32
}

func (a *slowFirstDashboardAPI) Dashboard(context.Context) (*viewerapi.Dashboard, error) {
	if a.calls.Add(1) == 1 {
		a.started <- struct{}{}
		<-a.release
		if a.firstErr != nil {
			return nil, a.firstErr
		}
		return &viewerapi.Dashboard{Lifelog: &viewerapi.LifelogStats{ActiveDuration: 60}}, nil
	}
	return &viewerapi.Dashboard{Lifelog: &viewerapi.LifelogStats{ActiveDuration: 7200}}, nil
}

func dashboardServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/dashboard":
			_, _ = w.Write([]byte(`{"lifelog":{"active_duration":3661}}`))
		case "/api/lifelog/summary":
			_, _ = w.Write([]byte(`{"active_duration":7200,"idle_duration":600,"app_count":4,"top_apps":[{"app_name":"Editor","duration":5400}]}`))
		case "/api/info/news":
			http.Error(w, "down", http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestRouter(t *testing.T, api API, bridge Bridge, opts ...Option) *Router {
	t.Helper()
	r, err := NewRouter(context.Background(), NewDocument(), api, bridge, opts...)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return r
}

func TestDashboardRendersDuration(t *testing.T) {
	server := dashboardServer(t)
	bridge := newFakeBridge()
	r := newTestRouter(t, viewerapi.New(server.URL), bridge)

	r.Refresh()
	r.Wait()

	html := string(r.Document().Content(PageDashboard))
	if !strings.Contains(html, `id="activeTime">1h 1m<`) {
		t.Errorf("dashboard content missing active time 1h 1m:\n%s", html)
	}
	if !strings.Contains(html, `id="visitCount">0<`) {
		t.Errorf("missing browser section should render 0 visits:\n%s", html)
	}
	if r.Document().LastUpdated().IsZero() {
		t.Error("LastUpdated not set after successful load")
	}
	if n := bridge.notifications(); len(n) != 0 {
		t.Errorf("unexpected notifications %v", n)
	}
}

func TestNavigateToSetsTitleAndLoads(t *testing.T) {
	server := dashboardServer(t)
	bridge := newFakeBridge()
	r := newTestRouter(t, viewerapi.New(server.URL), bridge)

	if err := r.NavigateTo(PageLifelog); err != nil {
		t.Fatalf("NavigateTo() error = %v", err)
	}
	snap := r.Document().Snapshot()
	if snap.Active != PageLifelog || snap.Title != "Lifelog" {
		t.Errorf("snapshot active = %q title = %q", snap.Active, snap.Title)
	}
	var activeNav []Page
	for _, item := range snap.Nav {
		if item.Active {
			activeNav = append(activeNav, item.Page)
		}
	}
	if len(activeNav) != 1 || activeNav[0] != PageLifelog {
		t.Errorf("active nav items = %v", activeNav)
	}

	r.Wait()
	html := string(r.Document().Content(PageLifelog))
	for _, want := range []string{"2h 0m", "10m", "Editor: 1h 30m"} {
		if !strings.Contains(html, want) {
			t.Errorf("lifelog content missing %q:\n%s", want, html)
		}
	}
}

func TestNavigateToUnknownPage(t *testing.T) {
	bridge := newFakeBridge()
	r := newTestRouter(t, viewerapi.New("http://unused.invalid"), bridge)
	before := r.Generation()

	if err := r.NavigateTo(Page("admin")); !errors.Is(err, ErrUnknownPage) {
		t.Errorf("NavigateTo(admin) error = %v, want ErrUnknownPage", err)
	}
	if r.Active() != PageDashboard {
		t.Errorf("Active() = %q, want dashboard unchanged", r.Active())
	}
	if r.Generation() != before {
		t.Error("generation advanced for rejected navigation")
	}
}

func TestLoadErrorNotifies(t *testing.T) {
	server := dashboardServer(t)
	bridge := newFakeBridge()
	obs := &recordingObserver{}
	r := newTestRouter(t, viewerapi.New(server.URL), bridge, WithObserver(obs))

	if err := r.NavigateTo(PageNews); err != nil {
		t.Fatal(err)
	}
	r.Wait()

	notes := bridge.notifications()
	if len(notes) != 1 || notes[0].title != "Error" || notes[0].body != "Failed to load news" {
		t.Errorf("notifications = %v", notes)
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	var netErr *viewerapi.NetworkError
	if len(obs.finished) != 1 || !errors.As(obs.finished[0], &netErr) || netErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("observer finished = %v", obs.finished)
	}

	// A failed load leaves the page usable for the next refresh.
	if r.Active() != PageNews {
		t.Errorf("Active() = %q after failure", r.Active())
	}
}

func TestLateBrowserFetchDoesNotWriteDashboard(t *testing.T) {
	server := dashboardServer(t)
	bridge := newFakeBridge()
	api := &blockingBrowserAPI{
		Client:  viewerapi.New(server.URL),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	r := newTestRouter(t, api, bridge)

	if err := r.NavigateTo(PageDashboard); err != nil {
		t.Fatal(err)
	}
	if err := r.NavigateTo(PageBrowser); err != nil {
		t.Fatal(err)
	}
	select {
	case <-api.started:
	case <-time.After(5 * time.Second):
		t.Fatal("browser fetch never started")
	}
	if err := r.NavigateTo(PageDashboard); err != nil {
		t.Fatal(err)
	}

	close(api.release)
	r.Wait()

	if r.Active() != PageDashboard {
		t.Fatalf("Active() = %q, want dashboard", r.Active())
	}
	if html := string(r.Document().Content(PageDashboard)); strings.Contains(html, "LATE RESULT") || !strings.Contains(html, "1h 1m") {
		t.Errorf("dashboard content corrupted by late fetch:\n%s", html)
	}
	if html := string(r.Document().Content(PageBrowser)); strings.Contains(html, "LATE RESULT") {
		t.Error("stale browser result was committed")
	}
	if snap := r.Document().Snapshot(); strings.Contains(string(snap.Content), "LATE RESULT") {
		t.Error("visible content shows the late browser result")
	}
	if n := bridge.notifications(); len(n) != 0 {
		t.Errorf("unexpected notifications %v", n)
	}
}

func TestOlderRefreshDoesNotOverwriteNewer(t *testing.T) {
	tests := []struct {
		name     string
		firstErr error
	}{
		{name: "older success"},
		{name: "older failure", firstErr: errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := dashboardServer(t)
			bridge := newFakeBridge()
			obs := &recordingObserver{}
			api := &slowFirstDashboardAPI{
				Client:   viewerapi.New(server.URL),
				firstErr: tt.firstErr,
				started:  make(chan struct{}, 1),
				release:  make(chan struct{}),
			}
			r := newTestRouter(t, api, bridge, WithObserver(obs))

			r.Refresh()
			select {
			case <-api.started:
			case <-time.After(5 * time.Second):
				t.Fatal("first refresh never started")
			}
			r.Refresh()

			deadline := time.Now().Add(5 * time.Second)
			for !strings.Contains(string(r.Document().Content(PageDashboard)), `id="activeTime">2h 0m<`) {
				if time.Now().After(deadline) {
					t.Fatal("second refresh never committed")
				}
				time.Sleep(5 * time.Millisecond)
			}

			close(api.release)
			r.Wait()

			html := string(r.Document().Content(PageDashboard))
			if !strings.Contains(html, `id="activeTime">2h 0m<`) || strings.Contains(html, `id="activeTime">1m<`) {
				t.Errorf("older refresh overwrote the newer one:\n%s", html)
			}
			if n := bridge.notifications(); len(n) != 0 {
				t.Errorf("notifications = %v, want none", n)
			}
			obs.mu.Lock()
			defer obs.mu.Unlock()
			if len(obs.finished) != 1 || obs.finished[0] != nil {
				t.Errorf("observer finished = %v, want one success", obs.finished)
			}
		})
	}
}

func TestNavigationCancelsPreviousFetch(t *testing.T) {
	started := make(chan struct{})
	canceled := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/browser/recent" {
			close(started)
			<-r.Context().Done()
			close(canceled)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	bridge := newFakeBridge()
	r := newTestRouter(t, viewerapi.New(server.URL), bridge)
	if err := r.NavigateTo(PageBrowser); err != nil {
		t.Fatal(err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("browser request never reached the server")
	}
	if err := r.NavigateTo(PageDashboard); err != nil {
		t.Fatal(err)
	}

	select {
	case <-canceled:
	case <-time.After(5 * time.Second):
		t.Fatal("browser request was not canceled by navigation")
	}
	r.Wait()
	if n := bridge.notifications(); len(n) != 0 {
		t.Errorf("canceled stale load produced notifications %v", n)
	}
}

func TestSignalsDriveRouter(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	signals := ipc.NewSignals()
	r := newTestRouter(t, viewerapi.New(server.URL), newFakeBridge())
	dispose := r.Subscribe(signals)

	signals.AutoRefresh.Publish(struct{}{})
	signals.ForceRefresh.Publish(struct{}{})
	signals.ForceRefresh.Publish(struct{}{})
	r.Wait()

	mu.Lock()
	if hits["/api/dashboard"] != 3 {
		t.Errorf("dashboard fetched %d times, want 3 (no debouncing)", hits["/api/dashboard"])
	}
	mu.Unlock()

	signals.NavigateTo.Publish("settings")
	r.Wait()
	if r.Active() != PageSettings {
		t.Errorf("Active() = %q after navigate-to signal", r.Active())
	}
	if html := string(r.Document().Content(PageSettings)); !strings.Contains(html, `value="http://localhost:8000"`) {
		t.Errorf("settings form not prefilled:\n%s", html)
	}

	signals.NavigateTo.Publish("bogus")
	if r.Active() != PageSettings {
		t.Errorf("unknown navigate-to changed page to %q", r.Active())
	}

	signals.ThemeChanged.Publish("dark")
	if r.Document().Theme() != ThemeDark {
		t.Errorf("Theme() = %q after theme-changed", r.Document().Theme())
	}

	dispose()
	signals.ThemeChanged.Publish("light")
	if r.Document().Theme() != ThemeDark {
		t.Error("router still subscribed after dispose")
	}
}

func TestThemeResolver(t *testing.T) {
	r := newTestRouter(t, viewerapi.New("http://unused.invalid"), newFakeBridge(),
		WithThemeResolver(func(settings.Theme) string { return ThemeDark }))
	r.ApplyTheme(settings.ThemeSystem)
	if r.Document().Theme() != ThemeDark {
		t.Errorf("Theme() = %q, want resolver result", r.Document().Theme())
	}
	if got := r.Document().ToggleTheme(); got != ThemeLight {
		t.Errorf("ToggleTheme() = %q, want light", got)
	}
}

func TestDocumentChangeEvents(t *testing.T) {
	doc := NewDocument()
	var versions []uint64
	dispose := doc.OnChange(func(s Snapshot) { versions = append(versions, s.Version) })
	defer dispose()

	doc.ShowPage(PageReports)
	doc.SetContent(PageReports, "<p>x</p>")
	doc.SetLastUpdated(time.Date(2024, 1, 1, 8, 30, 0, 0, time.Local))

	if len(versions) != 3 || versions[2] != 3 {
		t.Errorf("versions = %v", versions)
	}
	snap := doc.Snapshot()
	if snap.Content != "<p>x</p>" || snap.LastUpdated != "08:30" || snap.Title != "Reports" {
		t.Errorf("snapshot = %+v", snap)
	}
}
