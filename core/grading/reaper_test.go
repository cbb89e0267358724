package grading_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/grading"
	testutil "github.com/gradewise/gradewise/tests"
)

func TestReaper_Reap(t *testing.T) {
	repo := newJobRepo(t)
	now := time.Now().UTC()

	old := testutil.CreateJob(t, repo, "paper_1", grading.StatusCompleted, 100, now.Add(-48*time.Hour))
	oldFailed := testutil.CreateJob(t, repo, "paper_1", grading.StatusFailed, 20, now.Add(-25*time.Hour))
	recent := testutil.CreateJob(t, repo, "paper_1", grading.StatusCompleted, 100, now.Add(-time.Hour))
	active := testutil.CreateJob(t, repo, "paper_1", grading.StatusGrading, 10)

	r, err := grading.NewReaper(repo, 24*time.Hour, "@every 1h", core.NopLogger{})
	require.NoError(t, err)

	n, err := r.Reap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{old.ID, oldFailed.ID} {
		_, err = repo.Get(context.Background(), id)
		assert.Equal(t, grading.ErrNotFound, errors.Cause(err))
	}
	for _, id := range []string{recent.ID, active.ID} {
		_, err = repo.Get(context.Background(), id)
		assert.NoError(t, err)
	}
}

func TestReaper_StartStop(t *testing.T) {
	r, err := grading.NewReaper(newJobRepo(t), time.Hour, "@every 1h", core.NopLogger{})
	require.NoError(t, err)
	r.Start()
	r.Stop()
}

func TestNewReaper_BadSchedule(t *testing.T) {
	_, err := grading.NewReaper(newJobRepo(t), time.Hour, "every tuesday-ish", core.NopLogger{})
	assert.Error(t, err)
}
