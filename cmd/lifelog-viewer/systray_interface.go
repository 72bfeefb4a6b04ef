package main

import (
	"sync"

	"github.com/energye/systray"
)

// SystrayInterface abstracts systray operations for testing.
type SystrayInterface interface {
	ResetMenu()
	AddMenuItem(title, tooltip string) MenuItem
	AddSeparator()
	SetTitle(title string)
	SetTooltip(tooltip string)
	SetIcon(iconBytes []byte)
	SetOnClick(fn func(menu systray.IMenu))
	SetOnDClick(fn func(menu systray.IMenu))
	SetOnRClick(fn func(menu systray.IMenu))
	Quit()
}

// RealSystray implements SystrayInterface using the actual systray library.
type RealSystray struct{}

func (*RealSystray) ResetMenu() {
	systray.ResetMenu()
}

func (*RealSystray) AddMenuItem(title, tooltip string) MenuItem {
	item := systray.AddMenuItem(title, tooltip)
	return &RealMenuItem{MenuItem: item}
}

func (*RealSystray) AddSeparator() {
	systray.AddSeparator()
}

func (*RealSystray) SetTitle(title string) {
	systray.SetTitle(title)
}

func (*RealSystray) SetTooltip(tooltip string) {
	systray.SetTooltip(tooltip)
}

func (*RealSystray) SetIcon(iconBytes []byte) {
	systray.SetIcon(iconBytes)
}

func (*RealSystray) SetOnClick(fn func(menu systray.IMenu)) {
	systray.SetOnClick(fn)
}

func (*RealSystray) SetOnDClick(fn func(menu systray.IMenu)) {
	systray.SetOnDClick(fn)
}

func (*RealSystray) SetOnRClick(fn func(menu systray.IMenu)) {
	systray.SetOnRClick(fn)
}

func (*RealSystray) Quit() {
	systray.Quit()
}

// MockSystray implements SystrayInterface for testing.
type MockSystray struct {
	onClick   func(menu systray.IMenu)
	onDClick  func(menu systray.IMenu)
	onRClick  func(menu systray.IMenu)
	title     string
	tooltip   string
	icon      []byte
	menuItems []string
	items     []*MockMenuItem
	quits     int
	mu        sync.Mutex
}

func (m *MockSystray) ResetMenu() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menuItems = nil
	m.items = nil
}

func (m *MockSystray) AddMenuItem(title, tooltip string) MenuItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menuItems = append(m.menuItems, title)
	item := &MockMenuItem{
		title:   title,
		tooltip: tooltip,
	}
	m.items = append(m.items, item)
	return item
}

func (m *MockSystray) AddSeparator() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menuItems = append(m.menuItems, "---")
}

func (m *MockSystray) SetTitle(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.title = title
}

func (m *MockSystray) SetTooltip(tooltip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tooltip = tooltip
}

func (m *MockSystray) SetIcon(iconBytes []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.icon = iconBytes
}

func (m *MockSystray) SetOnClick(fn func(menu systray.IMenu)) {
	m.onClick = fn
}

func (m *MockSystray) SetOnDClick(fn func(menu systray.IMenu)) {
	m.onDClick = fn
}

func (m *MockSystray) SetOnRClick(fn func(menu systray.IMenu)) {
	m.onRClick = fn
}

func (m *MockSystray) Quit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quits++
}

// item returns the menu item with the given title, or nil.
func (m *MockSystray) item(title string) *MockMenuItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.title == title {
			return it
		}
	}
	return nil
}
