package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RecordSync/internal/domain"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(ctx context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(ctx context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipelineOnTrigger(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issue := issueOn(170, 3, day(2024, 1, 5))
	h.articles.add(issue, 1)
	lister := &fakeLister{pages: []domain.IssuePage{{Issues: []domain.Issue{issue}}}}
	notifier := &recordingNotifier{}

	driver := &manualDriver{}
	sched := NewScheduler(driver, newTestPipeline(h, lister, &memoryStore{}, notifier), nil, nil)

	require.NoError(t, sched.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Now())
	driver.job(time.Now())

	require.Len(t, notifier.summaries, 2)
	assert.Equal(t, 1, notifier.summaries[0].NewDownloads)
	assert.Equal(t, 0, notifier.summaries[1].NewDownloads, "second run finds the issue complete")

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriverIsNoop(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(nil, nil, nil, nil)
	assert.NoError(t, sched.Start(context.Background()))
	assert.NoError(t, sched.Stop(context.Background()))
}
