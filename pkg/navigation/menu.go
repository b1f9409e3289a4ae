// Package navigation holds the page navigation state of the hydration site:
// the mobile menu, scroll targets, the active-section spy, benefit card flips,
// button ripples and reveal-on-scroll tracking. Rendering is a projection of
// this state; nothing here touches a document.
package navigation

import (
	"fmt"
	"sync"
)

// MenuState is the open/closed state of the mobile navigation menu.
type MenuState int

// Menu states.
const (
	MenuClosed MenuState = iota
	MenuOpen
)

func (s MenuState) String() string {
	switch s {
	case MenuClosed:
		return "closed"
	case MenuOpen:
		return "open"
	default:
		return fmt.Sprintf("MenuState(%d)", int(s))
	}
}

// MenuEvent is a discrete user action that can change the menu state.
type MenuEvent int

// Menu events.
const (
	EventToggle MenuEvent = iota
	EventLinkSelected
	EventEscape
)

func (e MenuEvent) String() string {
	switch e {
	case EventToggle:
		return "toggle"
	case EventLinkSelected:
		return "link_selected"
	case EventEscape:
		return "escape"
	default:
		return fmt.Sprintf("MenuEvent(%d)", int(e))
	}
}

// Transition returns the state that follows s after e.
func Transition(s MenuState, e MenuEvent) MenuState {
	switch e {
	case EventToggle:
		if s == MenuOpen {
			return MenuClosed
		}
		return MenuOpen
	case EventLinkSelected, EventEscape:
		return MenuClosed
	default:
		return s
	}
}

// IconBar is the transform applied to one bar of the hamburger icon.
type IconBar struct {
	Transform string `json:"transform"`
	Opacity   string `json:"opacity"`
}

// MenuView is the rendering projection of a MenuState.
type MenuView struct {
	State   string     `json:"state"`
	Classes []string   `json:"classes"`
	Icon    [3]IconBar `json:"icon"`
}

var (
	closedIcon = [3]IconBar{
		{Transform: "none", Opacity: "1"},
		{Transform: "none", Opacity: "1"},
		{Transform: "none", Opacity: "1"},
	}
	openIcon = [3]IconBar{
		{Transform: "rotate(45deg) translate(5px, 5px)", Opacity: "1"},
		{Transform: "none", Opacity: "0"},
		{Transform: "rotate(-45deg) translate(7px, -6px)", Opacity: "1"},
	}
)

// View projects s onto the menu's CSS classes and icon transforms.
func View(s MenuState) MenuView {
	if s == MenuOpen {
		return MenuView{State: s.String(), Classes: []string{"nav__menu", "active"}, Icon: openIcon}
	}
	return MenuView{State: s.String(), Classes: []string{"nav__menu"}, Icon: closedIcon}
}

// Menu owns a MenuState and applies events to it.
type Menu struct {
	mu       sync.Mutex
	state    MenuState
	onChange func(from, to MenuState, e MenuEvent)
}

// NewMenu returns a closed menu.
func NewMenu() *Menu {
	return &Menu{state: MenuClosed}
}

// OnChange registers fn to be called after every state change.
func (m *Menu) OnChange(fn func(from, to MenuState, e MenuEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Handle applies e and returns the resulting state.
func (m *Menu) Handle(e MenuEvent) MenuState {
	m.mu.Lock()
	from := m.state
	to := Transition(from, e)
	m.state = to
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil && from != to {
		fn(from, to, e)
	}
	return to
}

// Toggle flips the menu.
func (m *Menu) Toggle() MenuState { return m.Handle(EventToggle) }

// SelectLink closes the menu after a navigation link is followed.
func (m *Menu) SelectLink() MenuState { return m.Handle(EventLinkSelected) }

// Escape closes the menu.
func (m *Menu) Escape() MenuState { return m.Handle(EventEscape) }

// State returns the current state.
func (m *Menu) State() MenuState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// View returns the projection of the current state.
func (m *Menu) View() MenuView {
	return View(m.State())
}
