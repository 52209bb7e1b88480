package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobFunc is one maintenance task. The context is cancelled when the scheduler stops.
type JobFunc func(ctx context.Context) error

type job struct {
	name    string
	spec    string
	fn      JobFunc
	entryID cron.EntryID
	runs    int
	lastErr error
}

// Scheduler runs named maintenance jobs on cron specs.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.SugaredLogger
	jobs    map[string]*job
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// NewScheduler initializes a new Scheduler instance
func NewScheduler(log *zap.SugaredLogger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		log:    log,
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers fn under name. Re-adding a name replaces the previous job.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.jobs[name]; exists {
		s.cron.Remove(existing.entryID)
		delete(s.jobs, name)
	}

	j := &job{name: name, spec: spec, fn: fn}

	id, err := s.cron.AddFunc(spec, func() { s.execute(j) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}

	j.entryID = id
	s.jobs[name] = j

	s.log.Infow("scheduled job", "job", name, "spec", spec)
	return nil
}

// Remove stops scheduling the named job.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, exists := s.jobs[name]; exists {
		s.cron.Remove(j.entryID)
		delete(s.jobs, name)
	}
}

// RunNow executes the named job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	j, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.execute(j)
}

func (s *Scheduler) execute(j *job) error {
	start := time.Now()
	err := j.fn(s.ctx)

	s.mu.Lock()
	j.runs++
	j.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.log.Errorw("job failed", "job", j.name, "error", err)
		return err
	}

	s.log.Debugw("job finished", "job", j.name, "duration", time.Since(start))
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.cron.Start()
	s.running = true
	s.log.Infow("scheduler started", "jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Infow("scheduler stopped")
}

// GetStatus returns current scheduler status
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make(map[string]int, len(s.jobs))
	for name, j := range s.jobs {
		runs[name] = j.runs
	}

	return map[string]interface{}{
		"jobs":    len(s.jobs),
		"runs":    runs,
		"running": s.running,
	}
}
