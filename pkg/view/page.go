// Package view renders the viewer pages and owns navigation between them.
package view

import (
	"errors"
	"fmt"
	"strings"
)

// Page identifies one of the fixed views of the window.
type Page string

// The pages, in navigation order.
const (
	PageDashboard Page = "dashboard"
	PageLifelog   Page = "lifelog"
	PageBrowser   Page = "browser"
	PageNews      Page = "news"
	PageReports   Page = "reports"
	PageSettings  Page = "settings"
)

// Pages lists every page in navigation order.
var Pages = []Page{PageDashboard, PageLifelog, PageBrowser, PageNews, PageReports, PageSettings}

var titles = map[Page]string{
	PageDashboard: "Dashboard",
	PageLifelog:   "Lifelog",
	PageBrowser:   "Browser History",
	PageNews:      "News",
	PageReports:   "Reports",
	PageSettings:  "Settings",
}

// ErrUnknownPage is returned when navigating to a page that does not exist.
var ErrUnknownPage = errors.New("unknown page")

// Title returns the heading shown for the page.
func (p Page) Title() string {
	if t, ok := titles[p]; ok {
		return t
	}
	return string(p)
}

// Valid reports whether p is one of Pages.
func (p Page) Valid() bool {
	_, ok := titles[p]
	return ok
}

// ParsePage converts a page name into a Page.
func ParsePage(name string) (Page, error) {
	p := Page(strings.ToLower(strings.TrimSpace(name)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPage, name)
	}
	return p, nil
}
