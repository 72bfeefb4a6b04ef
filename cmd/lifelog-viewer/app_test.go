package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lifelog-system/desktop-viewer/pkg/lifecycle"
	"github.com/lifelog-system/desktop-viewer/pkg/settings"
	"github.com/lifelog-system/desktop-viewer/pkg/view"
	"github.com/lifelog-system/desktop-viewer/pkg/webui"
)

type recordingNotifier struct {
	notes []string
	mu    sync.Mutex
}

func (n *recordingNotifier) Notify(title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, title+": "+body)
	return nil
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, note := range n.notes {
		title, _, _ := strings.Cut(note, ":")
		out = append(out, title)
	}
	return out
}

type openCounter struct {
	urls []string
	mu   sync.Mutex
}

func (o *openCounter) open(_ context.Context, rawURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, rawURL)
	return nil
}

func (o *openCounter) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.urls)
}

type testApp struct {
	*App
	tray     *MockSystray
	notifier *recordingNotifier
	opened   *openCounter
	hits     chan string
}

func newTestApp(t *testing.T, quitOnClose bool) *testApp {
	t.Helper()
	hits := make(chan string, 64)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case hits <- r.URL.Path:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/browser/recent", "/api/info/news", "/api/info/reports":
			io.WriteString(w, "[]") //nolint:errcheck // test server
		default:
			io.WriteString(w, `{"lifelog":{"active_duration":3661,"app_count":4}}`) //nolint:errcheck // test server
		}
	}))
	t.Cleanup(api.Close)

	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	s := settings.Defaults()
	s.APIEndpoint = api.URL
	s.Theme = settings.ThemeLight
	if err := store.Save(s); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	tray := &MockSystray{}
	notifier := &recordingNotifier{}
	opened := &openCounter{}
	app, err := newApp(ctx, cancel, store, tray, notifier,
		runOptions{addr: "127.0.0.1:0", quitOnClose: quitOnClose},
		webui.WithGrace(20*time.Millisecond),
		webui.WithOpeners(opened.open, opened.open))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(app.shutdown)
	return &testApp{App: app, tray: tray, notifier: notifier, opened: opened, hits: hits}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTrayMenuLayout(t *testing.T) {
	a := newTestApp(t, false)
	a.setupTray()

	want := []string{menuOpenDashboard, menuRefresh, menuSettings, "---", menuQuit}
	if !reflect.DeepEqual(a.tray.menuItems, want) {
		t.Errorf("menu = %v, want %v", a.tray.menuItems, want)
	}
	if a.tray.tooltip != trayTitle {
		t.Errorf("tooltip = %q, want %q", a.tray.tooltip, trayTitle)
	}
	if len(a.tray.icon) == 0 {
		t.Error("no tray icon set")
	}
	if a.tray.onClick == nil || a.tray.onRClick == nil || a.tray.onDClick == nil {
		t.Error("click handlers not installed")
	}
}

func TestTrayOpenDashboardShowsWindow(t *testing.T) {
	a := newTestApp(t, false)
	a.setupTray()

	a.tray.item(menuOpenDashboard).click()
	if got := a.window.State(); got != lifecycle.StateVisible {
		t.Errorf("state = %v, want visible", got)
	}
	if a.opened.count() != 1 {
		t.Errorf("browser opened %d times, want 1", a.opened.count())
	}
}

func TestTrayRefreshNowReloadsAndNotifies(t *testing.T) {
	a := newTestApp(t, false)
	a.setupTray()

	a.tray.item(menuRefresh).click()
	a.router.Wait()

	select {
	case path := <-a.hits:
		if path != "/api/dashboard" {
			t.Errorf("refresh fetched %s, want /api/dashboard", path)
		}
	default:
		t.Fatal("refresh did not reach the service")
	}
	if got := a.notifier.titles(); len(got) != 1 || got[0] != "Updating" {
		t.Errorf("notifications = %v, want [Updating]", got)
	}
	if !strings.Contains(string(a.router.Document().Content(view.PageDashboard)), "1h 1m") {
		t.Error("dashboard not rendered after refresh")
	}
}

func TestTraySettingsOpensSettingsPage(t *testing.T) {
	a := newTestApp(t, false)
	a.setupTray()

	a.tray.item(menuSettings).click()
	if got := a.router.Active(); got != view.PageSettings {
		t.Errorf("active page = %v, want settings", got)
	}
	if got := a.window.State(); got != lifecycle.StateVisible {
		t.Errorf("state = %v, want visible", got)
	}
}

func TestTrayQuit(t *testing.T) {
	a := newTestApp(t, false)
	a.setupTray()

	a.tray.item(menuQuit).click()
	if !a.window.Quitting() {
		t.Error("Quitting() = false after Quit")
	}
	if a.tray.quits != 1 {
		t.Errorf("systray quit %d times, want 1", a.tray.quits)
	}
	if err := a.window.OpenDashboard(); !errors.Is(err, lifecycle.ErrQuitting) {
		t.Errorf("OpenDashboard() after quit = %v, want ErrQuitting", err)
	}
}

func TestTrayDoubleClickToggles(t *testing.T) {
	a := newTestApp(t, false)
	a.setupTray()

	a.tray.onDClick(nil)
	if got := a.window.State(); got != lifecycle.StateVisible {
		t.Fatalf("state after first double click = %v", got)
	}
	a.tray.onDClick(nil)
	if got := a.window.State(); got != lifecycle.StateHidden {
		t.Errorf("state after second double click = %v", got)
	}
}

func TestWindowClosedPolicy(t *testing.T) {
	tests := []struct {
		name        string
		quitOnClose bool
		wantState   lifecycle.State
		wantQuits   int
	}{
		{name: "stay in tray", quitOnClose: false, wantState: lifecycle.StateHidden, wantQuits: 0},
		{name: "quit on close", quitOnClose: true, wantState: lifecycle.StateNone, wantQuits: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t, tt.quitOnClose)
			if err := a.window.OpenDashboard(); err != nil {
				t.Fatal(err)
			}

			a.handleWindowClosed()
			if got := a.window.State(); got != tt.wantState {
				t.Errorf("state = %v, want %v", got, tt.wantState)
			}
			if a.tray.quits != tt.wantQuits {
				t.Errorf("quits = %d, want %d", a.tray.quits, tt.wantQuits)
			}
		})
	}
}

func TestWindowRecoverableAfterClose(t *testing.T) {
	a := newTestApp(t, false)
	if err := a.window.OpenDashboard(); err != nil {
		t.Fatal(err)
	}
	a.handleWindowClosed()

	a.setupTray()
	a.tray.item(menuOpenDashboard).click()
	if got := a.window.State(); got != lifecycle.StateVisible {
		t.Errorf("state = %v, want visible after reopening from the tray", got)
	}
}

func TestStartLoadsAndShowsWindow(t *testing.T) {
	a := newTestApp(t, false)
	a.setupTray()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		t.Fatalf("start() error = %v", err)
	}
	a.router.Wait()

	if !a.poller.Running() {
		t.Error("refresh timer not running")
	}
	if got := a.poller.Interval(); got != 5*time.Minute {
		t.Errorf("interval = %v", got)
	}
	if got := a.window.State(); got != lifecycle.StateVisible {
		t.Errorf("state = %v, want visible", got)
	}
	waitFor(t, "tooltip to show the last update", func() bool {
		a.tray.mu.Lock()
		defer a.tray.mu.Unlock()
		return strings.HasPrefix(a.tray.tooltip, trayTitle+" - Last updated ")
	})
}

func TestSavedEndpointFollowsClient(t *testing.T) {
	a := newTestApp(t, false)

	next := a.store.Get()
	next.APIEndpoint = "http://127.0.0.1:9"
	if _, err := a.shell.SaveSettings(context.Background(), next); err != nil {
		t.Fatal(err)
	}
	if got := a.client.BaseURL(); got != "http://127.0.0.1:9" {
		t.Errorf("client base URL = %q after save", got)
	}
}
