package projects

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
)

var (
	ErrNotLoaded     = errors.New("projects: project not loaded")
	ErrInvalidStatus = errors.New("projects: invalid status")
)

// Fetcher loads and updates a single project.
type Fetcher interface {
	GetProject(ctx context.Context, id string) (types.ProjectDetailResponse, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (types.ProjectUpdateResponse, error)
}

// DetailState is a snapshot of the detail screen.
type DetailState struct {
	Project    *models.Project
	Members    []models.Member
	Activities []models.Activity
	Loading    bool
	NotFound   bool
	Err        error

	// Updating is true while a status change is being persisted.
	Updating  bool
	UpdateErr error
}

type DetailOption func(*DetailController)

func OnDetailChange(fn func(DetailState)) DetailOption {
	return func(c *DetailController) {
		c.onChange = fn
	}
}

func WithDetailTimeout(d time.Duration) DetailOption {
	return func(c *DetailController) {
		c.timeout = d
	}
}

// DetailController loads one project and applies status changes optimistically.
type DetailController struct {
	mu       sync.Mutex
	fetcher  Fetcher
	id       string
	timeout  time.Duration
	onChange func(DetailState)

	state  DetailState
	gen    uint64
	closed bool

	// saved is the last status the server is known to hold. updateSeq numbers status
	// changes; pending counts the ones still in flight.
	saved     models.ProjectStatus
	updateSeq uint64
	pending   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDetailController(fetcher Fetcher, id string, opts ...DetailOption) *DetailController {
	ctx, cancel := context.WithCancel(context.Background())
	c := &DetailController{
		fetcher: fetcher,
		id:      id,
		timeout: 30 * time.Second,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *DetailController) ID() string { return c.id }

func (c *DetailController) State() DetailState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Load fetches project, members and activities. Only the newest load is applied.
func (c *DetailController) Load() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	c.state.Loading = true
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		defer cancel()

		resp, err := c.fetcher.GetProject(ctx, c.id)
		c.applyLoad(gen, resp, err)
	}()
}

func (c *DetailController) applyLoad(gen uint64, resp types.ProjectDetailResponse, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	c.state.Loading = false
	switch {
	case errors.Is(err, types.ErrNotFound):
		c.state.NotFound = true
		c.state.Err = nil
		c.state.Project = nil
		c.state.Members = nil
		c.state.Activities = nil
	case err != nil:
		c.state.Err = err
	default:
		project := resp.Project
		c.saved = project.Status
		if c.pending > 0 && c.state.Project != nil {
			project.Status = c.state.Project.Status
		}
		c.state.Project = &project
		c.state.Members = resp.Members
		c.state.Activities = resp.Activities
		c.state.NotFound = false
		c.state.Err = nil
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// ChangeStatus shows the new status at once and persists it in the background. When the
// newest change fails the last saved status is restored; once no change is pending a
// successful one reloads the full record.
func (c *DetailController) ChangeStatus(status models.ProjectStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	c.mu.Lock()
	if c.closed || c.state.Project == nil {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	if c.state.Project.Status == status {
		c.mu.Unlock()
		return nil
	}

	// loads already in flight would overwrite the optimistic status
	c.gen++
	c.state.Loading = false
	c.updateSeq++
	seq := c.updateSeq
	c.pending++

	project := *c.state.Project
	project.Status = status
	c.state.Project = &project
	c.state.Updating = true
	c.state.UpdateErr = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		defer cancel()

		_, err := c.fetcher.UpdateProject(ctx, c.id, models.ProjectPatch{Status: &status})
		c.applyUpdate(seq, status, err)
	}()
	return nil
}

func (c *DetailController) applyUpdate(seq uint64, status models.ProjectStatus, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending--
	c.state.Updating = c.pending > 0

	if err != nil {
		c.state.UpdateErr = err
		// an older failure leaves the newer optimistic status alone
		if seq == c.updateSeq && c.state.Project != nil {
			project := *c.state.Project
			project.Status = c.saved
			c.state.Project = &project
		}
	} else {
		c.saved = status
	}
	reload := err == nil && c.pending == 0
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	if reload {
		c.Load()
	}
}

func (c *DetailController) Wait() {
	c.wg.Wait()
}

func (c *DetailController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.cancel()
}

func (c *DetailController) snapshotLocked() DetailState {
	s := c.state
	if s.Project != nil {
		project := *s.Project
		s.Project = &project
	}
	s.Members = append([]models.Member(nil), s.Members...)
	s.Activities = append([]models.Activity(nil), s.Activities...)
	return s
}

func (c *DetailController) notify(s DetailState) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
