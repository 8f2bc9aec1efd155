package job

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pteargryphon/creative-brief-generator/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestStore_Create(t *testing.T) {
	clock := newClock()
	s := NewStore().WithClock(clock.Now)

	id := s.Create()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	r, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, r.ID)
	assert.Equal(t, StatusProcessing, r.Status)
	assert.Zero(t, r.Progress)
	assert.Equal(t, "Initializing...", r.Message)
	assert.Equal(t, clock.Now(), r.StartedAt)
	assert.Nil(t, r.Result)
	assert.Nil(t, r.FinishedAt)

	assert.NotEqual(t, id, s.Create())
}

func TestStore_GetUnknown(t *testing.T) {
	_, err := NewStore().Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_GetReturnsSnapshot(t *testing.T) {
	s := NewStore()
	id := s.Create()

	r, err := s.Get(id)
	require.NoError(t, err)
	r.Progress = 99
	r.Message = "tampered"

	again, err := s.Get(id)
	require.NoError(t, err)
	assert.Zero(t, again.Progress)
	assert.Equal(t, InitialMessage, again.Message)
}

func TestStore_UpdateProgressNeverDecreases(t *testing.T) {
	s := NewStore()
	id := s.Create()

	require.NoError(t, s.Update(id, func(r *Record) { r.Progress = 35; r.Message = "Finding competitors..." }))
	require.NoError(t, s.Update(id, func(r *Record) { r.Progress = 20; r.Message = "late" }))
	require.NoError(t, s.Update(id, func(r *Record) { r.Progress = 150 }))

	r, _ := s.Get(id)
	assert.Equal(t, 100, r.Progress)
	assert.Equal(t, "late", r.Message)
}

func TestStore_UpdateProtectsIdentity(t *testing.T) {
	clock := newClock()
	s := NewStore().WithClock(clock.Now)
	id := s.Create()
	clock.Advance(time.Minute)

	require.NoError(t, s.Update(id, func(r *Record) {
		r.ID = "other"
		r.StartedAt = time.Time{}
	}))

	r, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, r.ID)
	assert.Equal(t, clock.Now().Add(-time.Minute), r.StartedAt)
	assert.Equal(t, clock.Now(), r.UpdatedAt)
}

func TestStore_TerminalTransitions(t *testing.T) {
	clock := newClock()
	s := NewStore().WithClock(clock.Now)

	done := s.Create()
	result := &model.BriefResult{BriefURL: "https://coda.io/d/x"}
	require.NoError(t, s.Update(done, func(r *Record) { r.Complete(result) }))

	r, _ := s.Get(done)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, 100, r.Progress)
	assert.Equal(t, "Brief generated successfully!", r.Message)
	assert.Same(t, result, r.Result)
	require.NotNil(t, r.FinishedAt)
	assert.Equal(t, clock.Now(), *r.FinishedAt)

	assert.Error(t, s.Update(done, func(r *Record) { r.Fail("late") }))

	failed := s.Create()
	require.NoError(t, s.Update(failed, func(r *Record) { r.Progress = 50 }))
	require.NoError(t, s.Update(failed, func(r *Record) { r.Fail("boom") }))
	r, _ = s.Get(failed)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, 50, r.Progress)
	assert.Equal(t, "Error: boom", r.Message)
	assert.Equal(t, "boom", r.Error)
	assert.Nil(t, r.Result)
}

func TestStore_FailedStaysBelow100(t *testing.T) {
	s := NewStore()

	id := s.Create()
	require.NoError(t, s.Update(id, func(r *Record) { r.Progress = 100 }))
	require.NoError(t, s.Update(id, func(r *Record) { r.Fail("publish exploded") }))

	r, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, MaxFailedProgress, r.Progress)

	// A mutator that sets failed by hand is clamped as well.
	other := s.Create()
	require.NoError(t, s.Update(other, func(r *Record) {
		r.Progress = 100
		r.Status = StatusFailed
	}))
	r, _ = s.Get(other)
	assert.Equal(t, MaxFailedProgress, r.Progress)
}

func TestStore_UpdateUnknown(t *testing.T) {
	err := NewStore().Update("nope", func(*Record) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	clock := newClock()
	s := NewStore().WithClock(clock.Now)
	first := s.Create()
	clock.Advance(time.Second)
	second := s.Create()

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	assert.Len(t, s.List(), 2)
}

func TestStore_Sweep(t *testing.T) {
	clock := newClock()
	s := NewStore().WithClock(clock.Now)

	old := s.Create()
	require.NoError(t, s.Update(old, func(r *Record) { r.Fail("x") }))
	running := s.Create()
	clock.Advance(30 * time.Minute)
	recent := s.Create()
	require.NoError(t, s.Update(recent, func(r *Record) { r.Complete(&model.BriefResult{}) }))

	removed := s.Sweep(clock.Now(), 10*time.Minute)
	assert.Equal(t, 1, removed)

	_, err := s.Get(old)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(running)
	assert.NoError(t, err)
	_, err = s.Get(recent)
	assert.NoError(t, err)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Create()
	s.Clear()
	assert.Empty(t, s.List())
}

func TestStore_ConcurrentReadsAndWrites(t *testing.T) {
	s := NewStore()
	id := s.Create()

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Update(id, func(r *Record) { r.Progress = i })
		}()
		go func() {
			defer wg.Done()
			r, err := s.Get(id)
			assert.NoError(t, err)
			assert.Equal(t, StatusProcessing, r.Status)
		}()
	}
	wg.Wait()

	r, _ := s.Get(id)
	assert.Equal(t, 100, r.Progress)
}
