package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/printqa/backend/internal/util"
	"github.com/printqa/backend/pkg/analysis"
)

// MemoryStore keeps records in process memory. It loses all data on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:  1,
		records: make(map[int64]Record),
		now:     time.Now,
	}
}

// newestFirst orders by created_at then id, both descending.
func newestFirst(a, b Record) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

func (s *MemoryStore) sorted(keep func(Record) bool) []Record {
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, newestFirst)
	return out
}

func (s *MemoryStore) Create(ctx context.Context, report analysis.Report) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report.FileName = util.SanitizeFileName(report.FileName)
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now().UTC()
	}
	r := Record{ID: s.nextID, Report: report}
	s.records[r.ID] = r
	s.nextID++
	return r, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) GetByFileName(ctx context.Context, name string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.sorted(func(r Record) bool { return r.FileName == name })
	if len(matches) == 0 {
		return Record{}, ErrNotFound
	}
	return matches[0], nil
}

func (s *MemoryStore) List(ctx context.Context, params ListParams) ([]Record, error) {
	params = params.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sorted(func(r Record) bool { return params.matches(r.Report) })
	if params.Skip >= len(all) {
		return []Record{}, nil
	}
	end := min(params.Skip+params.Limit, len(all))
	return all[params.Skip:end], nil
}

func (s *MemoryStore) Statistics(ctx context.Context) (Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var watertight, inverted, clean int64
	for _, r := range s.records {
		if r.IsWatertight {
			watertight++
		}
		if r.HasInvertedFaces {
			inverted++
		}
		if r.Clean() {
			clean++
		}
	}
	return newStatistics(int64(len(s.records)), watertight, inverted, clean), nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, params UpdateParams) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if params.FileName != nil {
		r.FileName = util.SanitizeFileName(*params.FileName)
	}
	if params.IsWatertight != nil {
		r.IsWatertight = *params.IsWatertight
	}
	if params.HasInvertedFaces != nil {
		r.HasInvertedFaces = *params.HasInvertedFaces
	}
	s.records[id] = r
	return r, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}
