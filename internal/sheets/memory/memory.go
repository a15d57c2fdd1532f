package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"

	"boq/internal/codec"
	ports "boq/internal/sheets"
)

var _ ports.RecordStore = (*Store)(nil)

type slot struct {
	records  []codec.Record
	revision int64
}

// Store keeps slots in process memory.
type Store struct {
	mu    sync.Mutex
	slots map[string]slot
}

func New() *Store {
	return &Store{slots: make(map[string]slot)}
}

// NewFromFile seeds the given slot from a JSON record list. A missing file
// yields an empty store.
func NewFromFile(name, path string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var records []codec.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	s.slots[name] = slot{records: records}
	return s, nil
}

// LoadRecords returns a copy of the slot content.
func (s *Store) LoadRecords(_ context.Context, name string) ([]codec.Record, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slots[name]
	return slices.Clone(sl.records), sl.revision, nil
}

// SaveRecords replaces the slot content and bumps its revision.
func (s *Store) SaveRecords(_ context.Context, name string, records []codec.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slots[name]
	sl.records = slices.Clone(records)
	sl.revision++
	s.slots[name] = sl
	return sl.revision, nil
}
