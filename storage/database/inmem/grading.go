package inmemdb

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gradewise/gradewise/core/grading"
)

var errJobExists = errors.New("grading job already exists")

type gradingRepository struct {
	db *gradingTable
}

func NewGradingRepository(db *DB) grading.Repository {
	return &gradingRepository{db: db.grading}
}

func (repo *gradingRepository) row(id string) (*jobRow, bool) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	r, ok := repo.db.table[id]
	return r, ok
}

func (repo *gradingRepository) Create(_ context.Context, job grading.Job) (grading.Job, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if job.ID == "" {
		job.ID = grading.NewID()
	}
	if _, ok := repo.db.table[job.ID]; ok {
		return grading.Job{}, errors.Wrap(errJobExists, job.ID)
	}
	repo.db.table[job.ID] = &jobRow{job: job.Clone()}
	return job.Clone(), nil
}

func (repo *gradingRepository) Get(_ context.Context, id string) (grading.Job, error) {
	r, ok := repo.row(id)
	if !ok {
		return grading.Job{}, grading.ErrNotFound
	}

	r.Lock()
	defer r.Unlock()
	if r.deleted {
		return grading.Job{}, grading.ErrNotFound
	}
	return r.job.Clone(), nil
}

func (repo *gradingRepository) Update(ctx context.Context, id string, mutate grading.Mutator) (grading.Job, error) {
	r, ok := repo.row(id)
	if !ok {
		return grading.Job{}, grading.ErrNotFound
	}

	r.Lock()
	defer r.Unlock()
	if r.deleted {
		return grading.Job{}, grading.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return grading.Job{}, err
	}

	// mutate a copy so a failing mutator leaves the row untouched
	job := r.job.Clone()
	if err := mutate(&job); err != nil {
		return grading.Job{}, err
	}
	r.job = job
	return job.Clone(), nil
}

func (repo *gradingRepository) ListActive(context.Context) ([]grading.Job, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	jobs := make([]grading.Job, 0)
	for _, r := range repo.db.table {
		r.Lock()
		if !r.deleted && !r.job.IsTerminal() {
			jobs = append(jobs, r.job.Clone())
		}
		r.Unlock()
	}
	return jobs, nil
}

func (repo *gradingRepository) DeleteTerminatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for id, r := range repo.db.table {
		r.Lock()
		if r.job.IsTerminal() && r.job.CompletedAt != nil && r.job.CompletedAt.Before(cutoff) {
			r.deleted = true
			delete(repo.db.table, id)
			n++
		}
		r.Unlock()
	}
	return n, nil
}

func (repo *gradingRepository) Count(context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.table), nil
}
