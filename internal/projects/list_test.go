package projects

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/monocle-dev/workspace/internal/debounce"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock fires every pending timer on Flush, regardless of delay.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Flush() {
	c.mu.Lock()
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()

	for _, t := range timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

type fakeLister struct {
	mu      sync.Mutex
	queries []types.ProjectQuery
	total   int
	err     error
}

func (f *fakeLister) ListProjects(_ context.Context, q types.ProjectQuery) (types.ProjectListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return types.ProjectListResponse{}, f.err
	}

	var data []models.Project
	for i := 0; i < q.Limit && (q.Page-1)*q.Limit+i < f.total; i++ {
		n := (q.Page-1)*q.Limit + i + 1
		data = append(data, models.Project{ID: fmt.Sprint(n), Name: fmt.Sprintf("Project %d", n)})
	}
	return types.ProjectListResponse{
		Data:       data,
		Pagination: types.NewPagination(q.Page, q.Limit, f.total),
	}, nil
}

func (f *fakeLister) Queries() []types.ProjectQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.ProjectQuery(nil), f.queries...)
}

func newTestList(t *testing.T, lister Lister, opts ...ListOption) (*ListController, *manualClock) {
	t.Helper()
	clock := &manualClock{}
	c := NewListController(lister, append([]ListOption{WithAfterFunc(clock.AfterFunc)}, opts...)...)
	t.Cleanup(c.Close)
	return c, clock
}

func TestInitialFetch(t *testing.T) {
	lister := &fakeLister{total: 25}
	c, _ := newTestList(t, lister)

	c.Start()
	c.Wait()

	require.Equal(t, []types.ProjectQuery{{Page: 1, Limit: 10, Status: "all"}}, lister.Queries())
	s := c.State()
	assert.Len(t, s.Projects, 10)
	assert.Equal(t, 3, s.TotalPages)
	assert.True(t, s.ShowPagination())
	assert.False(t, s.CanPrev())
	assert.True(t, s.CanNext())
	assert.False(t, s.Loading)
}

func TestSearchFetchesOnlyAfterSettling(t *testing.T) {
	lister := &fakeLister{total: 5}
	c, clock := newTestList(t, lister)

	c.SetSearch("a")
	c.SetSearch("al")
	c.SetSearch("alp")
	c.Wait()
	assert.Empty(t, lister.Queries())
	assert.Equal(t, "alp", c.State().SearchInput)

	clock.Flush()
	c.Wait()

	queries := lister.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "alp", queries[0].Search)
	assert.Equal(t, "alp", queries[0].Values().Get("search"))
}

func TestStatusChangeIsImmediateAndResetsPage(t *testing.T) {
	lister := &fakeLister{total: 25}
	c, _ := newTestList(t, lister)

	c.Start()
	c.Wait()
	c.SetPage(3)
	c.Wait()
	c.SetStatus(string(models.StatusPaused))
	c.Wait()

	queries := lister.Queries()
	require.Len(t, queries, 3)
	assert.Equal(t, 3, queries[1].Page)
	assert.Equal(t, types.ProjectQuery{Page: 1, Limit: 10, Status: "Paused"}, queries[2])
	assert.Equal(t, "Paused", queries[2].Values().Get("status"))
}

func TestLegacyPagePassthrough(t *testing.T) {
	lister := &fakeLister{total: 25}
	c, clock := newTestList(t, lister, WithPageReset(false))

	c.SetPage(2)
	c.Wait()
	c.SetSearch("x")
	clock.Flush()
	c.Wait()

	queries := lister.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, types.ProjectQuery{Page: 2, Limit: 10, Status: "all", Search: "x"}, queries[1])
}

func TestUnchangedInputsDoNotFetch(t *testing.T) {
	lister := &fakeLister{total: 5}
	c, clock := newTestList(t, lister)

	c.SetStatus("all")
	c.SetStatus("")
	c.SetPage(1)
	c.SetPage(0)
	c.SetSearch("")
	clock.Flush()
	c.Wait()
	assert.Empty(t, lister.Queries())

	c.Refresh()
	c.Wait()
	assert.Len(t, lister.Queries(), 1)
}

func TestRepeatedFetchReplacesList(t *testing.T) {
	lister := &fakeLister{total: 15}
	c, clock := newTestList(t, lister)

	c.SetSearch("Project")
	c.SetStatus(string(models.StatusActive))
	clock.Flush()
	c.Wait()
	c.SetPage(2)
	c.Wait()
	before := lister.Queries()

	c.Refresh()
	c.Wait()
	first := c.State()

	c.Refresh()
	c.Wait()
	second := c.State()

	queries := lister.Queries()[len(before):]
	require.Len(t, queries, 2, "each issue of the same inputs fetches")
	assert.Equal(t, queries[0], queries[1])
	assert.Equal(t, types.ProjectQuery{Page: 2, Limit: 10, Status: "Active", Search: "Project"}, queries[1])

	assert.Len(t, first.Projects, 5)
	assert.Len(t, second.Projects, len(first.Projects), "nothing accumulates")
	assert.Equal(t, first.Projects, second.Projects)
	assert.Equal(t, first.TotalPages, second.TotalPages)
}

func TestOutdatedSettledSearchIsIgnored(t *testing.T) {
	lister := &fakeLister{total: 5}
	c, clock := newTestList(t, lister)

	c.SetSearch("old")
	clock.Flush()
	c.Wait()
	c.SetSearch("new")
	clock.Flush()
	c.Wait()
	require.Len(t, lister.Queries(), 2)

	c.searchSettled("old")
	c.Wait()

	assert.Len(t, lister.Queries(), 2)
	assert.Equal(t, "new", c.State().Search)
}

func TestAllStatusOmitsParameter(t *testing.T) {
	v := types.ProjectQuery{Page: 1, Limit: 10, Status: "all"}.Values()
	assert.False(t, v.Has("status"))
	assert.False(t, v.Has("search"))
}

func TestNextAndPrevRespectBounds(t *testing.T) {
	lister := &fakeLister{total: 15}
	c, _ := newTestList(t, lister)
	c.Start()
	c.Wait()

	assert.False(t, c.PrevPage())
	require.True(t, c.NextPage())
	c.Wait()
	assert.Equal(t, 2, c.State().Page)
	assert.False(t, c.State().CanNext())
	assert.False(t, c.NextPage())
}

func TestSinglePageHidesPagination(t *testing.T) {
	lister := &fakeLister{total: 4}
	c, _ := newTestList(t, lister)
	c.Start()
	c.Wait()
	assert.False(t, c.State().ShowPagination())
}

func TestFetchErrorIsKeptInState(t *testing.T) {
	lister := &fakeLister{err: errors.New("boom")}
	c, _ := newTestList(t, lister)
	c.Start()
	c.Wait()

	s := c.State()
	assert.EqualError(t, s.Err, "boom")
	assert.False(t, s.Loading)
}

// gatedLister blocks each call until its gate is released.
type gatedLister struct {
	mu    sync.Mutex
	gates []chan types.ProjectListResponse
	ready chan struct{}
}

func (g *gatedLister) ListProjects(_ context.Context, _ types.ProjectQuery) (types.ProjectListResponse, error) {
	gate := make(chan types.ProjectListResponse)
	g.mu.Lock()
	g.gates = append(g.gates, gate)
	g.mu.Unlock()
	g.ready <- struct{}{}
	return <-gate, nil
}

func (g *gatedLister) gate(i int) chan types.ProjectListResponse {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gates[i]
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	lister := &gatedLister{ready: make(chan struct{}, 2)}
	c, _ := newTestList(t, lister)

	c.Start()
	<-lister.ready
	c.SetStatus("Active")
	<-lister.ready

	lister.gate(1) <- types.ProjectListResponse{
		Data:       []models.Project{{ID: "new"}},
		Pagination: types.NewPagination(1, 10, 1),
	}
	lister.gate(0) <- types.ProjectListResponse{
		Data:       []models.Project{{ID: "old"}},
		Pagination: types.NewPagination(1, 10, 30),
	}
	c.Wait()

	s := c.State()
	require.Len(t, s.Projects, 1)
	assert.Equal(t, "new", s.Projects[0].ID)
	assert.Equal(t, 1, s.TotalPages)
}

func TestObserverSeesUpdates(t *testing.T) {
	var mu sync.Mutex
	var seen []ListState
	lister := &fakeLister{total: 3}
	c, _ := newTestList(t, lister, OnListChange(func(s ListState) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}))

	c.Start()
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	loaded := false
	for _, s := range seen {
		if !s.Loading && len(s.Projects) == 3 {
			loaded = true
		}
	}
	assert.True(t, loaded)
}

func TestClosedControllerIgnoresInput(t *testing.T) {
	lister := &fakeLister{total: 3}
	c, clock := newTestList(t, lister)
	c.SetSearch("abc")
	c.Close()
	clock.Flush()
	c.SetStatus("Paused")
	c.Wait()
	assert.Empty(t, lister.Queries())
}
