package grading

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gradewise/gradewise/core"
)

// DefaultTickInterval is used when the configured interval is not positive.
const DefaultTickInterval = 500 * time.Millisecond

// ErrSchedulerStopped is returned when a job is scheduled after Stop.
var ErrSchedulerStopped = errors.New("grading scheduler stopped")

type SchedulerConfig struct {
	TickInterval time.Duration
	// MaxDuration fails jobs still grading after that long. Zero disables it.
	MaxDuration time.Duration
	// MaxTickFailures consecutive store errors stop the job timer. Zero means never.
	MaxTickFailures int
}

// Scheduler runs one timer goroutine per active job until the job is terminal.
type Scheduler struct {
	repo       Repository
	progressor Progressor
	conf       SchedulerConfig
	log        core.Logger

	mu      sync.Mutex
	timers  map[string]context.CancelFunc
	hooks   []func(Job)
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(repo Repository, progressor Progressor, conf SchedulerConfig, logger core.Logger) *Scheduler {
	if conf.TickInterval <= 0 {
		logger.Warn("invalid grading tick interval, using default", map[string]interface{}{
			"tickInterval": conf.TickInterval.String(),
			"default":      DefaultTickInterval.String(),
		})
		conf.TickInterval = DefaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		repo:       repo,
		progressor: progressor,
		conf:       conf,
		log:        logger,
		timers:     make(map[string]context.CancelFunc),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// OnTerminal registers fn to be called once with the snapshot of each job reaching a terminal state.
func (s *Scheduler) OnTerminal(fn func(Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Schedule starts the timer of job. Terminal or already scheduled jobs are ignored.
// It returns ErrSchedulerStopped once Stop has been called.
func (s *Scheduler) Schedule(job Job) error {
	if job.IsTerminal() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}
	if _, ok := s.timers[job.ID]; ok {
		return nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.timers[job.ID] = cancel
	s.wg.Add(1)
	go s.run(ctx, job.ID)
	return nil
}

// Active returns the number of running timers.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Resume schedules every job left grading in the store, e.g. after a restart.
func (s *Scheduler) Resume(ctx context.Context) (int, error) {
	jobs, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing active jobs")
	}
	for _, job := range jobs {
		if err := s.Schedule(job); err != nil {
			return 0, errors.Wrapf(err, "scheduling job %q", job.ID)
		}
	}
	return len(jobs), nil
}

// Cancel fails an active job and stops its timer. A terminal job is returned as is.
func (s *Scheduler) Cancel(ctx context.Context, id string) (Job, error) {
	job, err := s.repo.Update(ctx, id, func(j *Job) error {
		if j.IsTerminal() {
			return errAlreadyTerminal
		}
		j.Fail(ReasonCancelled, NowFunc())
		return nil
	})
	if err != nil {
		if errors.Cause(err) == errAlreadyTerminal {
			return s.repo.Get(ctx, id)
		}
		return Job{}, err
	}

	s.stopTimer(id)
	s.notify(job)
	return job, nil
}

// Stop cancels every timer and waits for them to return. Jobs keep their stored state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) stopTimer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.timers[id]; ok {
		cancel()
	}
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.timers[id]; ok {
		cancel()
		delete(s.timers, id)
	}
}

func (s *Scheduler) notify(job Job) {
	s.mu.Lock()
	hooks := make([]func(Job), len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(job.Clone())
	}
}

func (s *Scheduler) run(ctx context.Context, id string) {
	defer s.wg.Done()
	defer s.release(id)

	ticker := time.NewTicker(s.conf.TickInterval)
	defer ticker.Stop()

	var failures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job, err := s.tick(ctx, id)
		if err != nil {
			switch errors.Cause(err) {
			case errAlreadyTerminal:
				return
			case ErrNotFound:
				s.log.Warn("grading job vanished from the store", map[string]interface{}{"job": id})
				return
			}
			if ctx.Err() != nil {
				return
			}

			failures++
			s.log.Error("grading tick failed", err, map[string]interface{}{"job": id, "failures": failures})
			if s.conf.MaxTickFailures > 0 && failures >= s.conf.MaxTickFailures {
				s.log.Error("grading job timer stopped after repeated store errors", map[string]interface{}{"job": id})
				return
			}
			continue
		}

		failures = 0
		if job.IsTerminal() {
			s.log.Info("grading finished", map[string]interface{}{"job": id, "status": job.Status})
			s.notify(job)
			return
		}
	}
}

// tick advances the job by one step atomically.
func (s *Scheduler) tick(ctx context.Context, id string) (Job, error) {
	return s.repo.Update(ctx, id, func(j *Job) error {
		if j.IsTerminal() {
			return errAlreadyTerminal
		}

		now := NowFunc()
		if s.conf.MaxDuration > 0 && now.Sub(j.StartedAt) >= s.conf.MaxDuration {
			j.Fail(ReasonTimedOut, now)
			return nil
		}

		inc, err := s.progressor.Next(ctx, *j)
		if err != nil {
			j.Fail(err.Error(), now)
			return nil
		}
		j.Advance(inc, now)
		return nil
	})
}
