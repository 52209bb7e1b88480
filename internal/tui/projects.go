package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/monocle-dev/workspace/internal/format"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/projects"
	"github.com/monocle-dev/workspace/internal/types"
)

// statusFilters is the order the status filter cycles through.
var statusFilters = []string{
	types.StatusFilterAll,
	string(models.StatusActive),
	string(models.StatusPaused),
	string(models.StatusArchived),
}

type projectsView struct {
	ctrl   *projects.ListController
	sig    *signal
	styles Styles

	state     projects.ListState
	search    textinput.Model
	searching bool
	cursor    int
}

func newProjectsView(lister projects.Lister, styles Styles) projectsView {
	sig := newSignal()

	search := textinput.New()
	search.Placeholder = "Search projects..."
	search.Prompt = "/ "
	search.CharLimit = 100

	ctrl := projects.NewListController(lister, projects.OnListChange(func(projects.ListState) {
		sig.notify()
	}))

	return projectsView{
		ctrl:   ctrl,
		sig:    sig,
		styles: styles,
		state:  ctrl.State(),
		search: search,
	}
}

func (v projectsView) Init() tea.Cmd {
	v.ctrl.Start()
	return v.sig.wait()
}

func (v projectsView) Close() {
	v.sig.stop()
	v.ctrl.Close()
}

func (v projectsView) inputMode() bool { return v.searching }

func (v projectsView) selected() (models.Project, bool) {
	if v.cursor < 0 || v.cursor >= len(v.state.Projects) {
		return models.Project{}, false
	}
	return v.state.Projects[v.cursor], true
}

// refreshed pulls the controller snapshot and keeps the cursor in range.
func (v projectsView) refreshed() projectsView {
	v.state = v.ctrl.State()
	if v.cursor >= len(v.state.Projects) {
		v.cursor = len(v.state.Projects) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	return v
}

func nextStatusFilter(current string) string {
	for i, s := range statusFilters {
		if s == current {
			return statusFilters[(i+1)%len(statusFilters)]
		}
	}
	return types.StatusFilterAll
}

func (v projectsView) Update(msg tea.Msg, keys KeyMap) (projectsView, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		if msg.sig != v.sig {
			return v, nil
		}
		return v.refreshed(), v.sig.wait()

	case tea.KeyMsg:
		if v.searching {
			switch msg.String() {
			case "enter", "esc":
				v.searching = false
				v.search.Blur()
				return v, nil
			}
			var cmd tea.Cmd
			v.search, cmd = v.search.Update(msg)
			v.ctrl.SetSearch(v.search.Value())
			return v.refreshed(), cmd
		}

		switch {
		case key.Matches(msg, keys.Search):
			v.searching = true
			return v, v.search.Focus()
		case key.Matches(msg, keys.CycleStatus):
			v.ctrl.SetStatus(nextStatusFilter(v.state.Status))
			return v.refreshed(), nil
		case key.Matches(msg, keys.Right):
			v.ctrl.NextPage()
			return v.refreshed(), nil
		case key.Matches(msg, keys.Left):
			v.ctrl.PrevPage()
			return v.refreshed(), nil
		case key.Matches(msg, keys.Refresh):
			v.ctrl.Refresh()
			return v.refreshed(), nil
		case key.Matches(msg, keys.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, keys.Down):
			if v.cursor < len(v.state.Projects)-1 {
				v.cursor++
			}
		case key.Matches(msg, keys.Open):
			if p, ok := v.selected(); ok {
				return v, navigate("/projects/" + p.ID)
			}
		}
	}
	return v, nil
}

func (v projectsView) View() string {
	var b strings.Builder
	s := v.state

	b.WriteString(v.styles.Title.Render("Projects"))
	b.WriteString("\n")
	b.WriteString(v.styles.Subtitle.Render("Manage your workspace projects"))
	b.WriteString("\n\n")

	if v.searching {
		b.WriteString(v.search.View())
	} else {
		search := s.SearchInput
		if search == "" {
			search = v.styles.Muted.Render("none")
		}
		b.WriteString("Search: " + search)
	}
	filter := s.Status
	if filter == types.StatusFilterAll {
		filter = "All Status"
	}
	b.WriteString("   Status: " + filter)
	b.WriteString("\n\n")

	switch {
	case s.Loading && len(s.Projects) == 0:
		b.WriteString(v.styles.Muted.Render("Loading projects..."))
	case s.Err != nil:
		b.WriteString(v.styles.Error.Render("Failed to load projects: " + userMessage(s.Err, s.Err.Error())))
	case len(s.Projects) == 0:
		b.WriteString(v.styles.Muted.Render("No projects found"))
	default:
		b.WriteString(v.renderTable())
	}

	if s.ShowPagination() {
		b.WriteString("\n\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("Page %d of %d (%d projects)", s.Page, s.TotalPages, s.Total)))
	}
	if s.Loading && len(s.Projects) > 0 {
		b.WriteString(v.styles.Muted.Render("  refreshing..."))
	}

	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (v projectsView) renderTable() string {
	row := func(name, status, owner, updated string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(34).Render(name),
			lipgloss.NewStyle().Width(14).Render(status),
			lipgloss.NewStyle().Width(20).Render(owner),
			updated,
		)
	}

	lines := []string{v.styles.Muted.Render(row("Name", "Status", "Owner", "Updated"))}
	for i, p := range v.state.Projects {
		name := format.Truncate(p.Name, 30)
		if i == v.cursor {
			name = v.styles.Selected.Render("> " + name)
		} else {
			name = "  " + name
		}
		lines = append(lines, row(name, v.styles.StatusBadge(p.Status), format.Truncate(p.Owner, 18), format.Date(p.UpdatedAt)))
	}
	return strings.Join(lines, "\n")
}
