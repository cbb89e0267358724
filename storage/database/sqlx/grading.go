package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gradewise/gradewise/core/grading"
	"github.com/gradewise/gradewise/core/paper"
)

// postgres error codes
const foreignKeyViolation = "23503"

const jobColumns = `id, paper_id, status, progress, started_at, completed_at, error`

type jobRow struct {
	ID          string      `db:"id"`
	PaperID     string      `db:"paper_id"`
	Status      string      `db:"status"`
	Progress    int         `db:"progress"`
	StartedAt   time.Time   `db:"started_at"`
	CompletedAt null.Time   `db:"completed_at"`
	Error       null.String `db:"error"`
}

func newJobRow(job grading.Job) jobRow {
	return jobRow{
		ID:          job.ID,
		PaperID:     job.PaperID,
		Status:      job.Status,
		Progress:    job.Progress,
		StartedAt:   job.StartedAt,
		CompletedAt: null.TimeFromPtr(job.CompletedAt),
		Error:       null.NewString(job.Error, job.Error != ""),
	}
}

func (r jobRow) toJob() grading.Job {
	job := grading.Job{
		ID:        r.ID,
		PaperID:   r.PaperID,
		Status:    r.Status,
		Progress:  r.Progress,
		StartedAt: r.StartedAt.UTC(),
		Error:     r.Error.String,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time.UTC()
		job.CompletedAt = &t
	}
	return job
}

type gradingRepository struct {
	db *sqlx.DB
}

func NewGradingRepository(db *sqlx.DB) grading.Repository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) Create(ctx context.Context, job grading.Job) (grading.Job, error) {
	if job.ID == "" {
		job.ID = grading.NewID()
	}

	const q = `INSERT INTO grading_jobs (` + jobColumns + `)
		VALUES (:id, :paper_id, :status, :progress, :started_at, :completed_at, :error)`
	if _, err := repo.db.NamedExecContext(ctx, q, newJobRow(job)); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == foreignKeyViolation {
			return grading.Job{}, paper.ErrNotFound
		}
		return grading.Job{}, errors.Wrap(err, "inserting grading job")
	}
	return job.Clone(), nil
}

func (repo *gradingRepository) Get(ctx context.Context, id string) (grading.Job, error) {
	var row jobRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+jobColumns+` FROM grading_jobs WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return grading.Job{}, grading.ErrNotFound
		}
		return grading.Job{}, errors.Wrap(err, "selecting grading job")
	}
	return row.toJob(), nil
}

// Update locks the row with SELECT ... FOR UPDATE so concurrent writers of the same job queue up.
func (repo *gradingRepository) Update(ctx context.Context, id string, mutate grading.Mutator) (job grading.Job, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return grading.Job{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row jobRow
	const sel = `SELECT ` + jobColumns + ` FROM grading_jobs WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &row, sel, id); err != nil {
		if err == sql.ErrNoRows {
			return grading.Job{}, grading.ErrNotFound
		}
		return grading.Job{}, errors.Wrap(err, "selecting grading job")
	}

	job = row.toJob()
	if err = mutate(&job); err != nil {
		return grading.Job{}, err
	}

	const upd = `UPDATE grading_jobs
		SET status = :status, progress = :progress, completed_at = :completed_at, error = :error
		WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, upd, newJobRow(job)); err != nil {
		return grading.Job{}, errors.Wrap(err, "updating grading job")
	}
	if err = tx.Commit(); err != nil {
		return grading.Job{}, errors.Wrap(err, "committing grading job")
	}
	return job, nil
}

func (repo *gradingRepository) ListActive(ctx context.Context) ([]grading.Job, error) {
	var rows []jobRow
	const q = `SELECT ` + jobColumns + ` FROM grading_jobs WHERE status = $1 ORDER BY started_at`
	if err := repo.db.SelectContext(ctx, &rows, q, grading.StatusGrading); err != nil {
		return nil, errors.Wrap(err, "selecting active grading jobs")
	}

	jobs := make([]grading.Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.toJob())
	}
	return jobs, nil
}

func (repo *gradingRepository) DeleteTerminatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	const q = `DELETE FROM grading_jobs WHERE status <> $1 AND completed_at < $2`
	res, err := repo.db.ExecContext(ctx, q, grading.StatusGrading, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "deleting terminated grading jobs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted grading jobs")
	}
	return int(n), nil
}

func (repo *gradingRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM grading_jobs`); err != nil {
		return 0, errors.Wrap(err, "counting grading jobs")
	}
	return n, nil
}
