package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-playground/validator/v10"
	"github.com/monocle-dev/workspace/internal/client"
)

const (
	MsgEmailRequired   = "Email is required"
	MsgEmailInvalid    = "Enter a valid email"
	MsgPasswordTooWeak = "Password must be at least 6 characters"
	MsgLoginFailed     = "Login failed"
)

var loginValidate = validator.New()

// validateLogin mirrors the server's binding rules so obvious mistakes never leave
// the terminal.
func validateLogin(email, password string) map[string]string {
	errs := map[string]string{}

	email = strings.TrimSpace(email)
	switch {
	case email == "":
		errs["email"] = MsgEmailRequired
	case loginValidate.Var(email, "email") != nil:
		errs["email"] = MsgEmailInvalid
	}

	if len(password) < 6 {
		errs["password"] = MsgPasswordTooWeak
	}
	return errs
}

// userMessage picks the message to show for a failed request.
func userMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return fallback
}

type loginView struct {
	session *client.Session
	styles  Styles

	inputs     []textinput.Model
	focus      int
	errors     map[string]string
	serverErr  string
	submitting bool
}

func newLoginView(session *client.Session, styles Styles) loginView {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email     "
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "at least 6 characters"
	password.Prompt = "Password  "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return loginView{
		session: session,
		styles:  styles,
		inputs:  []textinput.Model{email, password},
		errors:  map[string]string{},
	}
}

func (v loginView) setFocus(i int) loginView {
	v.focus = (i + len(v.inputs)) % len(v.inputs)
	for j := range v.inputs {
		if j == v.focus {
			v.inputs[j].Focus()
		} else {
			v.inputs[j].Blur()
		}
	}
	return v
}

func (v loginView) submit() (loginView, tea.Cmd) {
	email := strings.TrimSpace(v.inputs[0].Value())
	password := v.inputs[1].Value()

	v.serverErr = ""
	v.errors = validateLogin(email, password)
	if len(v.errors) > 0 || v.submitting {
		return v, nil
	}

	v.submitting = true
	session := v.session
	return v, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		user, err := session.Login(ctx, email, password)
		return loginResultMsg{User: user, Err: err}
	}
}

func (v loginView) loginFailed(err error) loginView {
	v.submitting = false
	v.serverErr = userMessage(err, MsgLoginFailed)
	return v
}

func (v loginView) Update(msg tea.Msg, keys KeyMap) (loginView, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Submit):
			if v.focus < len(v.inputs)-1 {
				return v.setFocus(v.focus + 1), nil
			}
			return v.submit()
		case msg.String() == "tab" || msg.String() == "down":
			return v.setFocus(v.focus + 1), nil
		case msg.String() == "shift+tab" || msg.String() == "up":
			return v.setFocus(v.focus - 1), nil
		}
	}

	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	return v, cmd
}

func (v loginView) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Sign in to Workspace Manager"))
	b.WriteString("\n")

	if v.serverErr != "" {
		b.WriteString(v.styles.Error.Render(v.serverErr))
		b.WriteString("\n\n")
	}

	for i, name := range []string{"email", "password"} {
		b.WriteString(v.inputs[i].View())
		b.WriteString("\n")
		if msg := v.errors[name]; msg != "" {
			b.WriteString(v.styles.Error.Render("  " + msg))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if v.submitting {
		b.WriteString(v.styles.Muted.Render("Signing in..."))
	} else {
		b.WriteString(v.styles.Muted.Render("enter to continue, tab to switch fields"))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
