package job

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
)

func startExecutor(t *testing.T, runner Runner, workers int) (*Executor, *Store, *errlog.Aggregator) {
	t.Helper()
	store := NewStore()
	errs := errlog.New()
	e := NewExecutor(store, runner, errs, workers)
	e.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	})
	return e, store, errs
}

func waitTerminal(t *testing.T, s *Store, id string) Record {
	t.Helper()
	var r Record
	require.Eventually(t, func() bool {
		var err error
		r, err = s.Get(id)
		return err == nil && r.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return r
}

func TestExecutor_CompletesJob(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
		progress(5, "Analyzing brand website...")
		progress(20, "Analyzing brand website...")
		return &model.BriefResult{BriefURL: "https://coda.io/d/abc", BrandName: url}, nil
	})
	e, store, errs := startExecutor(t, runner, 2)

	id := store.Create()
	require.NoError(t, e.Submit(id, "acme.com"))

	r := waitTerminal(t, store, id)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, 100, r.Progress)
	assert.Equal(t, "Brief generated successfully!", r.Message)
	require.NotNil(t, r.Result)
	assert.Equal(t, "acme.com", r.Result.BrandName)
	assert.Zero(t, errs.Count())
}

func TestExecutor_RunnerErrorFailsJob(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
		progress(35, "Finding competitors...")
		return nil, eris.New("pipeline exploded")
	})
	e, store, errs := startExecutor(t, runner, 1)

	id := store.Create()
	require.NoError(t, e.Submit(id, "acme.com"))

	r := waitTerminal(t, store, id)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, 35, r.Progress)
	assert.Equal(t, "pipeline exploded", r.Error)
	assert.Equal(t, "Error: pipeline exploded", r.Message)
	assert.Nil(t, r.Result)

	entries := errs.ForStage(ErrorStage)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].Context["job_id"])
}

func TestExecutor_SurvivesPanic(t *testing.T) {
	var calls atomic.Int32
	runner := RunnerFunc(func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
		if calls.Add(1) == 1 {
			var m map[string]int
			m["boom"] = 1
		}
		return &model.BriefResult{}, nil
	})
	e, store, errs := startExecutor(t, runner, 1)

	bad := store.Create()
	require.NoError(t, e.Submit(bad, "a.com"))
	good := store.Create()
	require.NoError(t, e.Submit(good, "b.com"))

	r := waitTerminal(t, store, bad)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Contains(t, r.Error, "panic")
	assert.Equal(t, errlog.KindPanic, errs.ForStage(ErrorStage)[0].Kind)

	assert.Equal(t, StatusCompleted, waitTerminal(t, store, good).Status)
}

func TestExecutor_NilResultFails(t *testing.T) {
	runner := RunnerFunc(func(context.Context, string, func(int, string)) (*model.BriefResult, error) {
		return nil, nil
	})
	e, store, _ := startExecutor(t, runner, 1)
	id := store.Create()
	require.NoError(t, e.Submit(id, "a.com"))
	assert.Equal(t, StatusFailed, waitTerminal(t, store, id).Status)
}

func TestExecutor_SubmitDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	runner := RunnerFunc(func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &model.BriefResult{}, nil
	})
	e, store, _ := startExecutor(t, runner, 2)

	ids := make([]string, 10)
	done := make(chan struct{})
	go func() {
		for i := range ids {
			ids[i] = store.Create()
			assert.NoError(t, e.Submit(ids[i], "a.com"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on busy workers")
	}

	require.Eventually(t, func() bool {
		s := e.Stats()
		return s.Running == 2 && s.Queued == 8
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, e.Stats().Workers)

	close(release)
	for _, id := range ids {
		assert.Equal(t, StatusCompleted, waitTerminal(t, store, id).Status)
	}
}

func TestExecutor_CancelRunningJob(t *testing.T) {
	started := make(chan struct{})
	runner := RunnerFunc(func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
		progress(20, "Analyzing brand website...")
		close(started)
		<-ctx.Done()
		return nil, eris.Wrap(ctx.Err(), "pipeline: before CompetitorDiscovery")
	})
	e, store, _ := startExecutor(t, runner, 1)

	id := store.Create()
	require.NoError(t, e.Submit(id, "a.com"))
	<-started
	require.NoError(t, e.Cancel(id))

	r := waitTerminal(t, store, id)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "job canceled", r.Error)
	assert.Equal(t, 20, r.Progress)
}

func TestExecutor_CancelQueuedJob(t *testing.T) {
	release := make(chan struct{})
	var ran atomic.Int32
	runner := RunnerFunc(func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
		ran.Add(1)
		<-release
		return &model.BriefResult{}, nil
	})
	e, store, _ := startExecutor(t, runner, 1)

	first := store.Create()
	require.NoError(t, e.Submit(first, "a.com"))
	queued := store.Create()
	require.NoError(t, e.Submit(queued, "b.com"))
	require.NoError(t, e.Cancel(queued))
	close(release)

	assert.Equal(t, StatusCompleted, waitTerminal(t, store, first).Status)
	r := waitTerminal(t, store, queued)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "job canceled", r.Error)
	assert.Equal(t, int32(1), ran.Load())
}

func TestExecutor_CancelUnknown(t *testing.T) {
	e, _, _ := startExecutor(t, RunnerFunc(func(context.Context, string, func(int, string)) (*model.BriefResult, error) {
		return &model.BriefResult{}, nil
	}), 1)
	assert.ErrorIs(t, e.Cancel("missing"), ErrNotFound)
}

func TestExecutor_Shutdown(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	store := NewStore()
	e := NewExecutor(store, runner, errlog.New(), 1)
	e.Start(context.Background())

	id := store.Create()
	require.NoError(t, e.Submit(id, "a.com"))
	require.Eventually(t, func() bool { return e.Stats().Running == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))

	r, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "job canceled", r.Error)

	assert.ErrorIs(t, e.Submit(store.Create(), "b.com"), ErrExecutorClosed)
	assert.True(t, e.Stats().Closed)
	assert.NoError(t, e.Shutdown(ctx))
}

func TestExecutor_SubmitBeforeStart(t *testing.T) {
	e := NewExecutor(NewStore(), nil, nil, 1)
	assert.ErrorIs(t, e.Submit("x", "a.com"), ErrExecutorClosed)
	assert.NoError(t, e.Shutdown(context.Background()))
}

func TestExecutor_ErrorAfterFullProgressFailsBelow100(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
		progress(100, "Publishing creative brief...")
		return nil, eris.New("late failure")
	})
	e, store, _ := startExecutor(t, runner, 1)

	id := store.Create()
	require.NoError(t, e.Submit(id, "acme.com"))

	r := waitTerminal(t, store, id)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Less(t, r.Progress, 100)
}

func TestExecutor_SingleWorkerRunsJobsInTurn(t *testing.T) {
	release := make(chan struct{})
	runner := RunnerFunc(func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
		progress(5, "Analyzing brand website...")
		if url == "first.com" {
			<-release
		}
		progress(100, "Publishing creative brief...")
		return &model.BriefResult{}, nil
	})
	e, store, _ := startExecutor(t, runner, 1)

	first, second := store.Create(), store.Create()
	require.NoError(t, e.Submit(first, "first.com"))
	require.NoError(t, e.Submit(second, "second.com"))

	require.Eventually(t, func() bool {
		rec, _ := store.Get(first)
		return rec.Progress == 5
	}, time.Second, 5*time.Millisecond)

	rec, err := store.Get(second)
	require.NoError(t, err)
	assert.Zero(t, rec.Progress)
	assert.Equal(t, InitialMessage, rec.Message)

	close(release)
	assert.Equal(t, StatusCompleted, waitTerminal(t, store, first).Status)
	assert.Equal(t, StatusCompleted, waitTerminal(t, store, second).Status)
}
