package main

import "github.com/energye/systray"

// MenuItem is an interface for menu items that can be implemented by both
// real systray menu items and mock menu items for testing.
type MenuItem interface {
	Disable()
	Enable()
	SetTitle(string)
	SetTooltip(string)
	Click(func())
}

// RealMenuItem wraps a real systray.MenuItem to implement our MenuItem interface.
type RealMenuItem struct {
	*systray.MenuItem
}

// Ensure RealMenuItem implements MenuItem interface.
var _ MenuItem = (*RealMenuItem)(nil)

// Click sets the click handler.
func (r *RealMenuItem) Click(handler func()) {
	r.MenuItem.Click(handler)
}

// MockMenuItem implements MenuItem for testing without calling systray functions.
type MockMenuItem struct {
	title        string
	tooltip      string
	disabled     bool
	clickHandler func()
}

// Ensure MockMenuItem implements MenuItem interface.
var _ MenuItem = (*MockMenuItem)(nil)

// Disable marks the item as disabled.
func (m *MockMenuItem) Disable() {
	m.disabled = true
}

// Enable marks the item as enabled.
func (m *MockMenuItem) Enable() {
	m.disabled = false
}

// SetTitle sets the title.
func (m *MockMenuItem) SetTitle(title string) {
	m.title = title
}

// SetTooltip sets the tooltip.
func (m *MockMenuItem) SetTooltip(tooltip string) {
	m.tooltip = tooltip
}

// Click sets the click handler.
func (m *MockMenuItem) Click(handler func()) {
	m.clickHandler = handler
}

// click invokes the registered handler, as the tray would.
func (m *MockMenuItem) click() {
	if m.clickHandler != nil {
		m.clickHandler()
	}
}
