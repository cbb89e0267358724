//go:build integration

package sqlxrepos_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/grading"
	"github.com/gradewise/gradewise/core/paper"
	"github.com/gradewise/gradewise/storage/database"
	sqlxrepos "github.com/gradewise/gradewise/storage/database/sqlx"
	testutil "github.com/gradewise/gradewise/tests"
)

var db *sqlx.DB

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("connecting to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env:        []string{"POSTGRES_USER=gradewise", "POSTGRES_PASSWORD=gradewise", "POSTGRES_DB=gradewise"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("starting postgres: %v", err)
	}
	_ = resource.Expire(120)

	port, _ := strconv.Atoi(resource.GetPort("5432/tcp"))
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:     "postgres",
		Host:       "localhost",
		Port:       port,
		Name:       "gradewise",
		User:       "gradewise",
		Password:   "gradewise",
		DisableTLS: true,
	}}

	if err = pool.Retry(func() error {
		var e error
		db, e = database.OpenX(conf)
		return e
	}); err != nil {
		log.Fatalf("opening database: %v", err)
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		log.Fatalf("%+v", err)
	}

	code := m.Run()

	_ = db.Close()
	if err = pool.Purge(resource); err != nil {
		fmt.Printf("purging postgres: %v\n", err)
	}
	os.Exit(code)
}

func TestPaperRepository(t *testing.T) {
	repo := sqlxrepos.NewPaperRepository(db)
	ctx := context.Background()

	p := testutil.CreatePaper(t, repo, "T", "C")
	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.Parts, got.Parts)
	assert.Equal(t, float64(20), got.TotalMarks())

	_, err = repo.Get(ctx, "paper_missing")
	assert.Equal(t, paper.ErrNotFound, err)
}

func TestGradingRepository(t *testing.T) {
	papers := sqlxrepos.NewPaperRepository(db)
	repo := sqlxrepos.NewGradingRepository(db)
	ctx := context.Background()
	p := testutil.CreatePaper(t, papers, "T", "C")

	t.Run("unknown paper", func(t *testing.T) {
		_, err := repo.Create(ctx, grading.Job{PaperID: "paper_missing", Status: grading.StatusGrading, StartedAt: time.Now()})
		assert.Equal(t, paper.ErrNotFound, errors.Cause(err))
	})

	job := testutil.CreateJob(t, repo, p.ID, grading.StatusGrading, 0)

	t.Run("concurrent updates are serialized", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Update(ctx, job.ID, func(j *grading.Job) error {
					j.Progress++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 20, got.Progress)
	})

	t.Run("terminal transition is persisted", func(t *testing.T) {
		done, err := repo.Update(ctx, job.ID, func(j *grading.Job) error {
			j.Advance(100, time.Now())
			return nil
		})
		require.NoError(t, err)

		got, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, grading.StatusCompleted, got.Status)
		assert.Equal(t, 100, got.Progress)
		require.NotNil(t, got.CompletedAt)
		assert.WithinDuration(t, *done.CompletedAt, *got.CompletedAt, time.Millisecond)
	})

	t.Run("list and delete", func(t *testing.T) {
		active := testutil.CreateJob(t, repo, p.ID, grading.StatusGrading, 5)
		jobs, err := repo.ListActive(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(jobs))
		for _, j := range jobs {
			ids = append(ids, j.ID)
		}
		assert.Contains(t, ids, active.ID)
		assert.NotContains(t, ids, job.ID)

		n, err := repo.DeleteTerminatedBefore(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)

		_, err = repo.Get(ctx, job.ID)
		assert.Equal(t, grading.ErrNotFound, err)
	})
}
