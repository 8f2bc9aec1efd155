package job

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNotFound is returned for ids the store does not hold.
var ErrNotFound = eris.New("job not found")

// Store is the in-memory job table. Readers get copies, so a poll never
// observes a half-applied update.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]*Record), now: time.Now}
}

// WithClock replaces the timestamp source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create inserts a fresh processing record and returns its id.
func (s *Store) Create() string {
	id := uuid.New().String()
	now := s.now()

	s.mu.Lock()
	s.records[id] = &Record{
		ID:        id,
		Status:    StatusProcessing,
		Message:   InitialMessage,
		StartedAt: now,
		UpdatedAt: now,
	}
	s.mu.Unlock()
	return id
}

// Get returns a snapshot of the record.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, eris.Wrapf(ErrNotFound, "job %s", id)
	}
	return *r, nil
}

// Update applies fn to the record under the write lock. Progress never
// moves backwards, terminal records stay terminal, and identity fields
// cannot be changed.
func (s *Store) Update(id string, fn func(r *Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "job %s", id)
	}
	if cur.Status.Terminal() {
		return eris.Errorf("job %s: already %s", id, cur.Status)
	}

	next := *cur
	fn(&next)

	next.ID = cur.ID
	next.StartedAt = cur.StartedAt
	next.Progress = max(min(next.Progress, 100), cur.Progress)
	if next.Status == StatusFailed {
		next.Progress = min(next.Progress, MaxFailedProgress)
	}
	next.UpdatedAt = s.now()
	if next.Status.Terminal() {
		t := next.UpdatedAt
		next.FinishedAt = &t
	}
	s.records[id] = &next
	return nil
}

// List returns every record, newest first.
func (s *Store) List() []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, *r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Sweep removes terminal records that finished more than ttl before now.
func (s *Store) Sweep(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, r := range s.records {
		if r.FinishedAt != nil && now.Sub(*r.FinishedAt) > ttl {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now(), ttl); n > 0 {
				zap.L().Info("swept expired jobs", zap.Int("removed", n), zap.Duration("ttl", ttl))
			}
		}
	}
}

// Clear drops every record.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = make(map[string]*Record)
	s.mu.Unlock()
}
