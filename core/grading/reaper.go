package grading

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/gradewise/gradewise/core"
)

const reapTimeout = time.Minute

// Reaper evicts terminal jobs once they are older than the retention window.
type Reaper struct {
	repo      Repository
	retention time.Duration
	log       core.Logger
	cron      *cron.Cron
}

// NewReaper registers the eviction on a cron schedule ("@every 5m", "0 3 * * *"...). Call Start to run it.
func NewReaper(repo Repository, retention time.Duration, schedule string, logger core.Logger) (*Reaper, error) {
	r := &Reaper{
		repo:      repo,
		retention: retention,
		log:       logger,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}

	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
		defer cancel()
		if _, err := r.Reap(ctx); err != nil {
			r.log.Error("reaping grading jobs", err)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scheduling reaper %q", schedule)
	}
	return r, nil
}

// Reap deletes terminal jobs completed before now - retention.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	cutoff := NowFunc().Add(-r.retention)
	n, err := r.repo.DeleteTerminatedBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "deleting terminated jobs")
	}
	if n > 0 {
		r.log.Info("grading jobs reaped", map[string]interface{}{"count": n, "cutoff": cutoff})
	}
	return n, nil
}

func (r *Reaper) Start() {
	r.cron.Start()
}

// Stop stops the cron and waits for a running reap to finish.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}
