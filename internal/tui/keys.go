package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the application
type KeyMap struct {
	// Navigation
	Up    key.Binding
	Down  key.Binding
	Open  key.Binding
	Back  key.Binding
	Left  key.Binding
	Right key.Binding

	// Projects
	Search       key.Binding
	CycleStatus  key.Binding
	Refresh      key.Binding
	SetActive    key.Binding
	SetPaused    key.Binding
	SetArchived  key.Binding
	ProjectsPage key.Binding
	SettingsPage key.Binding

	// Forms
	NextField  key.Binding
	PrevField  key.Binding
	Submit     key.Binding
	NextStep   key.Binding
	PrevStep   key.Binding
	AddPayment key.Binding
	ToggleDef  key.Binding
	Remove     key.Binding
	RemoveCard key.Binding
	NextCard   key.Binding
	NewBilling key.Binding

	// General
	Logout key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev page"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next page"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "status filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		SetActive: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "active"),
		),
		SetPaused: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "paused"),
		),
		SetArchived: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "archived"),
		),
		ProjectsPage: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "projects"),
		),
		SettingsPage: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "settings"),
		),

		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("S-tab", "prev field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		NextStep: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "next step"),
		),
		PrevStep: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "previous step"),
		),
		AddPayment: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("C-a", "add card"),
		),
		ToggleDef: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "toggle default"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "remove card"),
		),
		RemoveCard: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "remove card"),
		),
		NextCard: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "next card"),
		),
		NewBilling: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new billing"),
		),

		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "logout"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns short help bindings (for status bar)
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Logout, k.Quit}
}

// FullHelp returns full help bindings (for help view)
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Back},
		{k.Search, k.CycleStatus, k.Left, k.Right, k.Refresh},
		{k.SetActive, k.SetPaused, k.SetArchived},
		{k.NextField, k.PrevField, k.NextStep, k.PrevStep},
		{k.AddPayment, k.ToggleDef, k.NextCard, k.RemoveCard},
		{k.Remove, k.NewBilling},
		{k.ProjectsPage, k.SettingsPage, k.Logout, k.Help, k.Quit},
	}
}
