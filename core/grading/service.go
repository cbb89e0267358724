package grading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/paper"
)

const idPrefix = "grading_"

var (
	// errors
	ErrNotFound = errors.New("grading job not found")

	// errAlreadyTerminal is returned by mutators to leave a terminal job untouched
	errAlreadyTerminal = errors.New("grading job already terminal")

	// NowFunc is mocked in tests
	NowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	// Mutator changes a job in place. Returning an error aborts the update and leaves the record as it was.
	Mutator func(job *Job) error

	// Repository is the job store. Update must be atomic with respect to every other access to the same job
	// and should only serialize on that job.
	Repository interface {
		Create(ctx context.Context, job Job) (Job, error)
		// Get returns ErrNotFound when no job has this id.
		Get(ctx context.Context, id string) (Job, error)
		// Update applies mutate to the stored job and returns the new snapshot.
		Update(ctx context.Context, id string, mutate Mutator) (Job, error)
		// ListActive returns every job still in StatusGrading.
		ListActive(ctx context.Context) ([]Job, error)
		// DeleteTerminatedBefore removes terminal jobs completed before cutoff and returns how many were removed.
		DeleteTerminatedBefore(ctx context.Context, cutoff time.Time) (int, error)
		Count(ctx context.Context) (int, error)
	}

	Service struct {
		repo          Repository
		papers        paper.Repository
		scheduler     *Scheduler
		estimatedTime time.Duration
		log           core.Logger
	}
)

func NewService(
	repo Repository,
	papers paper.Repository,
	scheduler *Scheduler,
	estimatedTime time.Duration,
	logger core.Logger,
) *Service {
	return &Service{
		repo:          repo,
		papers:        papers,
		scheduler:     scheduler,
		estimatedTime: estimatedTime,
		log:           logger,
	}
}

// NewID allocates a fresh grading job identifier.
func NewID() string {
	return idPrefix + uuid.NewString()
}

// Start creates a grading job for an existing paper and schedules it. It returns without waiting for the job.
func (svc *Service) Start(ctx context.Context, paperID string) (StartResult, error) {
	if _, err := svc.papers.Get(ctx, paperID); err != nil {
		return StartResult{}, errors.Wrapf(err, "getting paper %q", paperID)
	}

	job, err := svc.repo.Create(ctx, Job{
		ID:        NewID(),
		PaperID:   paperID,
		Status:    StatusGrading,
		Progress:  0,
		StartedAt: NowFunc(),
	})
	if err != nil {
		return StartResult{}, errors.Wrap(err, "creating grading job")
	}

	if err := svc.scheduler.Schedule(job); err != nil {
		// never leave a job grading without a timer
		if _, ferr := svc.repo.Update(ctx, job.ID, func(j *Job) error {
			j.Fail(ReasonUnavailable, NowFunc())
			return nil
		}); ferr != nil {
			svc.log.Error("failing unscheduled grading job", ferr, map[string]interface{}{"job": job.ID})
		}
		return StartResult{}, errors.Wrapf(err, "scheduling grading job %q", job.ID)
	}
	svc.log.Info("grading started", map[string]interface{}{"job": job.ID, "paper": paperID})
	return StartResult{Job: job, EstimatedTime: svc.estimatedTime}, nil
}

// Get returns a snapshot of the job.
func (svc *Service) Get(ctx context.Context, id string) (Job, error) {
	job, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Job{}, errors.Wrapf(err, "getting grading job %q", id)
	}
	return job, nil
}

// Cancel fails an active job. A terminal job is returned unchanged.
func (svc *Service) Cancel(ctx context.Context, id string) (Job, error) {
	job, err := svc.scheduler.Cancel(ctx, id)
	if err != nil {
		return Job{}, errors.Wrapf(err, "cancelling grading job %q", id)
	}
	return job, nil
}

func (svc *Service) EstimatedTime() time.Duration {
	return svc.estimatedTime
}
