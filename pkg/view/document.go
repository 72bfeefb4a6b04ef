package view

import (
	"html/template"
	"sync"
	"time"

	"github.com/lifelog-system/desktop-viewer/pkg/ipc"
)

// Theme values applied to the document. "system" is resolved before it gets here.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// NavItem is one entry of the navigation bar.
type NavItem struct {
	Page   Page   `json:"page"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// Snapshot is what the window needs to draw itself.
type Snapshot struct {
	Active      Page          `json:"active"`
	Title       string        `json:"title"`
	Theme       string        `json:"theme"`
	LastUpdated string        `json:"lastUpdated"`
	Content     template.HTML `json:"content"`
	Nav         []NavItem     `json:"nav"`
	Version     uint64        `json:"version"`
}

// Document holds the rendered state of the window: the active page, its title,
// the HTML of every page, the theme and the last refresh time.
type Document struct {
	content     map[Page]template.HTML
	changes     *ipc.Topic[Snapshot]
	lastUpdated time.Time
	active      Page
	title       string
	theme       string
	version     uint64
	mu          sync.RWMutex
}

// NewDocument creates a document showing the dashboard in the light theme.
func NewDocument() *Document {
	return &Document{
		content: make(map[Page]template.HTML),
		changes: ipc.NewTopic[Snapshot]("document"),
		active:  PageDashboard,
		title:   PageDashboard.Title(),
		theme:   ThemeLight,
	}
}

// OnChange registers fn to receive a snapshot after every mutation.
func (d *Document) OnChange(fn func(Snapshot)) (dispose func()) {
	return d.changes.Subscribe(fn)
}

// Snapshot returns the current state.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

// Active returns the visible page.
func (d *Document) Active() Page {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// Content returns the rendered HTML of a page.
func (d *Document) Content(p Page) template.HTML {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.content[p]
}

// Theme returns the applied theme.
func (d *Document) Theme() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.theme
}

// LastUpdated returns the time of the last committed refresh.
func (d *Document) LastUpdated() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastUpdated
}

// ShowPage marks p active in the navigation, makes its content visible and sets the title.
func (d *Document) ShowPage(p Page) {
	d.update(func() {
		d.active = p
		d.title = p.Title()
	})
}

// SetContent replaces the HTML of a page.
func (d *Document) SetContent(p Page, html template.HTML) {
	d.update(func() {
		d.content[p] = html
	})
}

// Commit stores the result of a page load and stamps the refresh time.
func (d *Document) Commit(p Page, html template.HTML, at time.Time) {
	d.update(func() {
		d.content[p] = html
		d.lastUpdated = at
	})
}

// SetTheme applies "light" or "dark". Other values are treated as light.
func (d *Document) SetTheme(theme string) {
	if theme != ThemeDark {
		theme = ThemeLight
	}
	d.update(func() {
		d.theme = theme
	})
}

// ToggleTheme flips between light and dark without persisting anything.
func (d *Document) ToggleTheme() string {
	var next string
	d.update(func() {
		next = ThemeDark
		if d.theme == ThemeDark {
			next = ThemeLight
		}
		d.theme = next
	})
	return next
}

// SetLastUpdated records the time of a refresh.
func (d *Document) SetLastUpdated(t time.Time) {
	d.update(func() {
		d.lastUpdated = t
	})
}

func (d *Document) update(mutate func()) {
	d.mu.Lock()
	mutate()
	d.version++
	snap := d.snapshotLocked()
	d.mu.Unlock()

	d.changes.Publish(snap)
}

func (d *Document) snapshotLocked() Snapshot {
	nav := make([]NavItem, 0, len(Pages))
	for _, p := range Pages {
		nav = append(nav, NavItem{Page: p, Title: p.Title(), Active: p == d.active})
	}
	last := "--"
	if !d.lastUpdated.IsZero() {
		last = FormatTime(d.lastUpdated)
	}
	return Snapshot{
		Active:      d.active,
		Title:       d.title,
		Theme:       d.theme,
		LastUpdated: last,
		Content:     d.content[d.active],
		Nav:         nav,
		Version:     d.version,
	}
}
