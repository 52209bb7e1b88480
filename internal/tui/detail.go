package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/monocle-dev/workspace/internal/format"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/projects"
	"github.com/monocle-dev/workspace/internal/types"
)

// Watcher streams refresh events for a project.
type Watcher interface {
	WatchProject(ctx context.Context, id string) (<-chan types.ProjectEvent, error)
}

type detailView struct {
	ctrl    *projects.DetailController
	sig     *signal
	styles  Styles
	watcher Watcher
	cancel  context.CancelFunc

	state  projects.DetailState
	events <-chan types.ProjectEvent
	live   bool
}

func newDetailView(fetcher projects.Fetcher, watcher Watcher, id string, styles Styles) detailView {
	sig := newSignal()
	ctrl := projects.NewDetailController(fetcher, id, projects.OnDetailChange(func(projects.DetailState) {
		sig.notify()
	}))

	return detailView{
		ctrl:    ctrl,
		sig:     sig,
		styles:  styles,
		watcher: watcher,
		state:   ctrl.State(),
	}
}

// Init loads the project and subscribes to live refreshes. A failed subscription only
// means the screen will not update on its own.
func (v *detailView) Init() tea.Cmd {
	v.ctrl.Load()

	cmds := []tea.Cmd{v.sig.wait()}
	if v.watcher != nil {
		ctx, cancel := context.WithCancel(context.Background())
		v.cancel = cancel
		if events, err := v.watcher.WatchProject(ctx, v.ctrl.ID()); err == nil {
			v.events = events
			v.live = true
			cmds = append(cmds, waitForEvent(events))
		}
	}
	return tea.Batch(cmds...)
}

func (v detailView) Close() {
	if v.cancel != nil {
		v.cancel()
	}
	v.sig.stop()
	v.ctrl.Close()
}

func (v detailView) inputMode() bool { return false }

func (v detailView) changeStatus(status models.ProjectStatus) (detailView, tea.Cmd) {
	if err := v.ctrl.ChangeStatus(status); err != nil && !errors.Is(err, projects.ErrNotLoaded) {
		return v, func() tea.Msg { return ErrorMsg{Err: err} }
	}
	v.state = v.ctrl.State()
	return v, nil
}

func (v detailView) Update(msg tea.Msg, keys KeyMap) (detailView, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		if msg.sig != v.sig {
			return v, nil
		}
		v.state = v.ctrl.State()
		return v, v.sig.wait()

	case projectEventMsg:
		if msg.source != v.events {
			return v, nil
		}
		if msg.Event.Type == types.EventRefresh && !v.state.Updating {
			v.ctrl.Load()
		}
		return v, waitForEvent(v.events)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Back):
			return v, navigate("/projects")
		case key.Matches(msg, keys.Refresh):
			v.ctrl.Load()
			v.state = v.ctrl.State()
		case key.Matches(msg, keys.SetActive):
			return v.changeStatus(models.StatusActive)
		case key.Matches(msg, keys.SetPaused):
			return v.changeStatus(models.StatusPaused)
		case key.Matches(msg, keys.SetArchived):
			return v.changeStatus(models.StatusArchived)
		}
	}
	return v, nil
}

func (v detailView) View() string {
	s := v.state
	st := v.styles

	switch {
	case s.Project == nil && s.Loading:
		return st.Muted.Render("Loading project...")
	case s.NotFound:
		return st.Error.Render("Project not found") + "\n\n" + st.Muted.Render("esc to go back to projects")
	case s.Project == nil && s.Err != nil:
		return st.Error.Render("Failed to load project: " + userMessage(s.Err, s.Err.Error()))
	case s.Project == nil:
		return ""
	}

	p := s.Project
	var b strings.Builder

	b.WriteString(st.Title.Render(p.Name))
	b.WriteString("\n")
	if p.Description != "" {
		b.WriteString(st.Subtitle.Render(p.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	field := func(label, value string) string {
		return st.Label.Render(label) + st.Value.Render(value) + "\n"
	}

	var info strings.Builder
	info.WriteString(st.Title.Render("Project Information"))
	info.WriteString("\n")
	info.WriteString(field("Owner", p.Owner))
	status := st.StatusBadge(p.Status)
	if s.Updating {
		status += st.Muted.Render("  saving...")
	}
	info.WriteString(field("Status", status))
	info.WriteString(field("Created", format.Date(p.CreatedAt)))
	info.WriteString(field("Last Updated", format.DateTime(p.UpdatedAt)))
	if s.UpdateErr != nil {
		info.WriteString(st.Error.Render("Failed to update status: " + userMessage(s.UpdateErr, s.UpdateErr.Error())))
		info.WriteString("\n")
	}

	var activity strings.Builder
	activity.WriteString(st.Title.Render("Activity Log"))
	activity.WriteString("\n")
	if len(s.Activities) == 0 {
		activity.WriteString(st.Muted.Render("No activities yet"))
	}
	for _, a := range s.Activities {
		activity.WriteString(fmt.Sprintf("%s  %s\n", st.Value.Render(a.Description), st.Muted.Render(a.User+" · "+format.DateTime(a.Timestamp))))
	}

	var members strings.Builder
	members.WriteString(st.Title.Render("Team Members"))
	members.WriteString("\n")
	if len(s.Members) == 0 {
		members.WriteString(st.Muted.Render("No members yet"))
	}
	for _, m := range s.Members {
		members.WriteString(fmt.Sprintf("%s  %s\n", m.Name, st.Muted.Render(m.Role+" · "+m.Email)))
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		st.Panel.Render(strings.TrimRight(info.String(), "\n")),
		st.Panel.Render(strings.TrimRight(activity.String(), "\n")),
	)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", st.Panel.Render(strings.TrimRight(members.String(), "\n"))))

	if v.live {
		b.WriteString("\n")
		b.WriteString(st.Muted.Render("live updates on"))
	}
	return b.String()
}
