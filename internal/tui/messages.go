package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
)

// Screen is the page currently shown.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenProjects
	ScreenDetail
	ScreenSettings
	ScreenBilling
	ScreenNotFound
)

// String returns the display name for a screen
func (s Screen) String() string {
	switch s {
	case ScreenLogin:
		return "Login"
	case ScreenProjects:
		return "Projects"
	case ScreenDetail:
		return "Project"
	case ScreenSettings:
		return "Settings"
	case ScreenBilling:
		return "Billing"
	case ScreenNotFound:
		return "Not Found"
	default:
		return "Unknown"
	}
}

// Messages for inter-component communication

// sessionRestoredMsg carries the result of asking the server who is logged in.
type sessionRestoredMsg struct {
	Err error
}

type loginResultMsg struct {
	User types.UserResponse
	Err  error
}

type logoutMsg struct {
	Err error
}

// NavigateMsg requests a route change. The route guard may redirect it.
type NavigateMsg struct {
	Path string
}

// changedMsg reports that the controller behind sig has new state.
type changedMsg struct {
	sig *signal
}

type projectEventMsg struct {
	Event  types.ProjectEvent
	source <-chan types.ProjectEvent
}

type billingLoadedMsg struct {
	Records []models.BillingRecord
	Err     error
}

type paymentRemovedMsg struct {
	ID  string
	Err error
}

type billingSubmittedMsg struct {
	Err error
}

// ErrorMsg contains an error to display
type ErrorMsg struct {
	Err error
}

// StatusMsg contains a status message to display
type StatusMsg struct {
	Message string
}

func navigate(path string) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Path: path} }
}

// signal wakes the UI when a controller reports new state. Repeated notifications
// before the UI reads collapse into one.
type signal struct {
	ch   chan struct{}
	done chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{}, 1), done: make(chan struct{})}
}

func (s *signal) notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *signal) stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *signal) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.ch:
			return changedMsg{sig: s}
		case <-s.done:
			return nil
		}
	}
}

func waitForEvent(events <-chan types.ProjectEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return projectEventMsg{Event: ev, source: events}
	}
}
