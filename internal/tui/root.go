// Package tui is the terminal front end of the workspace.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/monocle-dev/workspace/internal/auth"
	"github.com/monocle-dev/workspace/internal/client"
	"go.uber.org/zap"
)

const (
	requestTimeout = 15 * time.Second

	billingPath     = auth.SettingsPath + "/billing"
	msgBillingSaved = "Billing settings saved successfully"
)

// Model is the root bubbletea model. It owns the session and routes between screens.
type Model struct {
	client  *client.Client
	session *client.Session
	log     *zap.SugaredLogger

	keys   KeyMap
	help   help.Model
	styles Styles

	ready  bool
	screen Screen
	path   string

	login    loginView
	projects projectsView
	detail   detailView
	settings settingsView
	billing  billingView

	width  int
	height int

	statusMsg   string
	errorMsg    string
	helpVisible bool
}

func New(c *client.Client, log *zap.SugaredLogger) Model {
	styles := DefaultStyles()
	session := client.NewSession(c)
	return Model{
		client:  c,
		session: session,
		log:     log,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		styles:  styles,
		path:    "/",
		login:   newLoginView(session, styles),
	}
}

func (m Model) Init() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return sessionRestoredMsg{Err: session.Init(ctx)}
	}
}

// Screen returns the screen currently shown.
func (m Model) Screen() Screen { return m.screen }

// Path returns the route the current screen was opened for.
func (m Model) Path() string { return m.path }

func (m Model) inputMode() bool {
	switch m.screen {
	case ScreenLogin:
		return true
	case ScreenProjects:
		return m.projects.inputMode()
	case ScreenDetail:
		return m.detail.inputMode()
	case ScreenSettings:
		return m.settings.inputMode()
	case ScreenBilling:
		return m.billing.inputMode()
	}
	return false
}

// closeScreen stops the background work of the screen being left.
func (m Model) closeScreen() {
	if !m.ready {
		return
	}
	switch m.screen {
	case ScreenProjects:
		m.projects.Close()
	case ScreenDetail:
		m.detail.Close()
	}
}

// Close releases the current screen. Run calls it once the program exits.
func (m Model) Close() {
	m.closeScreen()
}

func (m Model) navigate(path string) (Model, tea.Cmd) {
	if to := m.session.Guard(path); to != "" {
		m.log.Debugw("route redirected", "from", path, "to", to)
		path = to
	}

	m.closeScreen()
	m.ready = true
	m.path = path
	m.errorMsg = ""

	switch {
	case path == auth.LoginPath:
		m.screen = ScreenLogin
		m.login = newLoginView(m.session, m.styles)
		return m, textinput.Blink

	case path == auth.ProjectsPath:
		m.screen = ScreenProjects
		m.projects = newProjectsView(m.client, m.styles)
		return m, m.projects.Init()

	case strings.HasPrefix(path, auth.ProjectsPath+"/"):
		id := strings.TrimPrefix(path, auth.ProjectsPath+"/")
		if id == "" || strings.Contains(id, "/") {
			break
		}
		m.screen = ScreenDetail
		m.detail = newDetailView(m.client, m.client, id, m.styles)
		cmd := m.detail.Init()
		return m, cmd

	case path == auth.SettingsPath:
		m.screen = ScreenSettings
		m.settings = newSettingsView(m.client, m.styles)
		return m, m.settings.Init()

	case path == billingPath:
		m.screen = ScreenBilling
		m.billing = newBillingView(m.client.BillingSaver(), m.styles)
		return m, m.billing.Init()
	}

	m.screen = ScreenNotFound
	return m, nil
}

func (m Model) logout() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return logoutMsg{Err: session.Teardown(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case sessionRestoredMsg:
		if msg.Err != nil {
			m.log.Warnw("restore session", "error", msg.Err)
		}
		var cmd tea.Cmd
		m, cmd = m.navigate(m.path)
		if msg.Err != nil {
			m.errorMsg = "Could not reach the server: " + userMessage(msg.Err, msg.Err.Error())
		}
		return m, cmd

	case loginResultMsg:
		if msg.Err != nil {
			m.login = m.login.loginFailed(msg.Err)
			return m, nil
		}
		m.log.Infow("logged in", "user_id", msg.User.ID)
		m.statusMsg = "Welcome, " + msg.User.Name
		return m.navigate(auth.ProjectsPath)

	case logoutMsg:
		if msg.Err != nil {
			m.log.Warnw("logout", "error", msg.Err)
		}
		m.statusMsg = "Logged out"
		return m.navigate(auth.LoginPath)

	case NavigateMsg:
		m.statusMsg = ""
		return m.navigate(msg.Path)

	case ErrorMsg:
		m.errorMsg = msg.Err.Error()
		return m, nil

	case StatusMsg:
		m.statusMsg = msg.Message
		return m, nil

	case billingSubmittedMsg:
		if m.screen != ScreenBilling {
			return m, nil
		}
		m.billing, _ = m.billing.Update(msg, m.keys)
		if msg.Err != nil {
			m.log.Warnw("save billing", "error", msg.Err)
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.navigate(auth.SettingsPath)
		m.statusMsg = msgBillingSaved
		return m, cmd

	case tea.KeyMsg:
		switch {
		case msg.String() == "ctrl+c":
			return m, tea.Quit
		case key.Matches(msg, m.keys.Logout) && m.session.Authenticated():
			return m, m.logout()
		}
		if !m.inputMode() {
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.Help):
				m.helpVisible = !m.helpVisible
				m.help.ShowAll = m.helpVisible
				return m, nil
			case key.Matches(msg, m.keys.ProjectsPage) && m.session.Authenticated():
				return m.navigate(auth.ProjectsPath)
			case key.Matches(msg, m.keys.SettingsPage) && m.session.Authenticated():
				return m.navigate(auth.SettingsPath)
			}
		}
		m.errorMsg = ""
	}

	return m.delegate(msg)
}

func (m Model) delegate(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case ScreenLogin:
		m.login, cmd = m.login.Update(msg, m.keys)
	case ScreenProjects:
		m.projects, cmd = m.projects.Update(msg, m.keys)
	case ScreenDetail:
		m.detail, cmd = m.detail.Update(msg, m.keys)
	case ScreenSettings:
		m.settings, cmd = m.settings.Update(msg, m.keys)
	case ScreenBilling:
		m.billing, cmd = m.billing.Update(msg, m.keys)
	case ScreenNotFound:
		if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
			cmd = navigate("/")
		}
	}
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return m.styles.Muted.Render("Connecting...")
	}

	var body string
	switch m.screen {
	case ScreenLogin:
		body = m.login.View()
	case ScreenProjects:
		body = m.projects.View()
	case ScreenDetail:
		body = m.detail.View()
	case ScreenSettings:
		body = m.settings.View()
	case ScreenBilling:
		body = m.billing.View()
	default:
		body = m.styles.Title.Render("Page not found") + "\n" +
			m.styles.Muted.Render(fmt.Sprintf("Nothing lives at %s. Press esc to go home.", m.path))
	}

	sections := []string{m.renderHeader(), body}
	if m.errorMsg != "" {
		sections = append(sections, m.styles.Error.Render(m.errorMsg))
	} else if m.statusMsg != "" {
		sections = append(sections, m.styles.Success.Render(m.statusMsg))
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" Workspace ")
	crumb := m.styles.Subtitle.Render(" " + m.screen.String())
	user := ""
	if u, ok := m.session.User(); ok {
		user = m.styles.Muted.Render(u.Email)
	}

	left := title + crumb
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(user)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + user + "\n"
}

// Run starts the terminal UI against the API at c and blocks until the user quits.
func Run(c *client.Client, log *zap.SugaredLogger) error {
	p := tea.NewProgram(New(c, log), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		m.Close()
	}
	if err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
