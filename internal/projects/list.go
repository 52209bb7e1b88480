// Package projects holds the client side controllers of the projects screens: the
// filtered, paginated list and the detail view with its optimistic status change.
package projects

import (
	"context"
	"sync"
	"time"

	"github.com/monocle-dev/workspace/internal/debounce"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
)

// SearchDelay is how long the search input has to stay unchanged before it is applied.
const SearchDelay = 500 * time.Millisecond

// Lister fetches one page of projects.
type Lister interface {
	ListProjects(ctx context.Context, q types.ProjectQuery) (types.ProjectListResponse, error)
}

// ListState is a snapshot of the list screen.
type ListState struct {
	Projects    []models.Project
	SearchInput string
	Search      string
	Status      string
	Page        int
	TotalPages  int
	Total       int
	Loading     bool
	Err         error
}

// ShowPagination is false when everything fits on one page.
func (s ListState) ShowPagination() bool { return s.TotalPages > 1 }

func (s ListState) CanPrev() bool { return s.Page > 1 }

func (s ListState) CanNext() bool { return s.Page < s.TotalPages }

type ListOption func(*ListController)

// WithPageReset controls whether a search or status change jumps back to page 1.
// It is on by default.
func WithPageReset(reset bool) ListOption {
	return func(c *ListController) {
		c.resetPage = reset
	}
}

func WithSearchDelay(d time.Duration) ListOption {
	return func(c *ListController) {
		c.searchDelay = d
	}
}

// WithAfterFunc replaces the search debounce timer source.
func WithAfterFunc(fn debounce.AfterFunc) ListOption {
	return func(c *ListController) {
		c.afterFunc = fn
	}
}

// OnListChange registers an observer called after every state change.
func OnListChange(fn func(ListState)) ListOption {
	return func(c *ListController) {
		c.onChange = fn
	}
}

func WithRequestTimeout(d time.Duration) ListOption {
	return func(c *ListController) {
		c.timeout = d
	}
}

// ListController drives the projects list. Every change of the settled search, the
// status filter or the page issues exactly one fetch; only the newest response is applied.
type ListController struct {
	mu     sync.Mutex
	lister Lister
	search *debounce.Debouncer[string]

	searchDelay time.Duration
	afterFunc   debounce.AfterFunc
	resetPage   bool
	timeout     time.Duration
	onChange    func(ListState)

	state  ListState
	gen    uint64
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewListController(lister Lister, opts ...ListOption) *ListController {
	ctx, cancel := context.WithCancel(context.Background())
	c := &ListController{
		lister:      lister,
		searchDelay: SearchDelay,
		resetPage:   true,
		timeout:     30 * time.Second,
		state: ListState{
			Status: types.StatusFilterAll,
			Page:   types.DefaultPage,
		},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	debounceOpts := []debounce.Option[string]{debounce.OnSettle(c.searchSettled)}
	if c.afterFunc != nil {
		debounceOpts = append(debounceOpts, debounce.WithAfterFunc[string](c.afterFunc))
	}
	c.search = debounce.New("", c.searchDelay, debounceOpts...)
	return c
}

// Start issues the initial fetch.
func (c *ListController) Start() {
	c.Refresh()
}

// State returns a snapshot of the current state.
func (c *ListController) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SetSearch feeds raw search text. The fetch happens once the text has settled.
func (c *ListController) SetSearch(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.SearchInput = text
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.search.Set(text)
	c.notify(snap)
}

// searchSettled applies a settled search. A value the debouncer has already moved past is
// dropped.
func (c *ListController) searchSettled(search string) {
	c.mu.Lock()
	if c.closed || search == c.state.Search || search != c.search.Value() {
		c.mu.Unlock()
		return
	}
	c.state.Search = search
	if c.resetPage {
		c.state.Page = types.DefaultPage
	}
	snap := c.fetchLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SetStatus applies a status filter immediately. Empty means "all".
func (c *ListController) SetStatus(status string) {
	if status == "" {
		status = types.StatusFilterAll
	}

	c.mu.Lock()
	if c.closed || status == c.state.Status {
		c.mu.Unlock()
		return
	}
	c.state.Status = status
	if c.resetPage {
		c.state.Page = types.DefaultPage
	}
	snap := c.fetchLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SetPage jumps to a 1-based page.
func (c *ListController) SetPage(page int) {
	if page < 1 {
		page = types.DefaultPage
	}

	c.mu.Lock()
	if c.closed || page == c.state.Page {
		c.mu.Unlock()
		return
	}
	c.state.Page = page
	snap := c.fetchLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// NextPage advances when a next page exists.
func (c *ListController) NextPage() bool {
	s := c.State()
	if !s.CanNext() {
		return false
	}
	c.SetPage(s.Page + 1)
	return true
}

func (c *ListController) PrevPage() bool {
	s := c.State()
	if !s.CanPrev() {
		return false
	}
	c.SetPage(s.Page - 1)
	return true
}

// Refresh re-issues the fetch for the current search, status and page.
func (c *ListController) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	snap := c.fetchLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Wait blocks until in-flight fetches have returned.
func (c *ListController) Wait() {
	c.wg.Wait()
}

// Close stops the search debounce and drops any response still in flight.
func (c *ListController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	c.mu.Unlock()

	c.search.Stop()
	c.cancel()
}

func (c *ListController) query() types.ProjectQuery {
	return types.ProjectQuery{
		Page:   c.state.Page,
		Limit:  types.DefaultPageLimit,
		Status: c.state.Status,
		Search: c.state.Search,
	}
}

func (c *ListController) fetchLocked() ListState {
	c.gen++
	gen := c.gen
	q := c.query()
	c.state.Loading = true

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		defer cancel()

		resp, err := c.lister.ListProjects(ctx, q)
		c.apply(gen, resp, err)
	}()

	return c.snapshotLocked()
}

func (c *ListController) apply(gen uint64, resp types.ProjectListResponse, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	c.state.Loading = false
	c.state.Err = err
	if err == nil {
		c.state.Projects = resp.Data
		c.state.TotalPages = resp.Pagination.TotalPages
		c.state.Total = resp.Pagination.Total
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *ListController) snapshotLocked() ListState {
	s := c.state
	if s.Projects != nil {
		s.Projects = append([]models.Project(nil), s.Projects...)
	}
	return s
}

func (c *ListController) notify(s ListState) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
