package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tubelife/pkg/domain"
)

// Store implements ports.SequenceStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Sequence
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store, optionally pre-populated.
func NewStore(seqs ...domain.Sequence) *Store {
	s := &Store{
		data: make(map[string]domain.Sequence),
	}
	for _, seq := range seqs {
		s.data[seq.Name] = seq.Clone()
	}
	return s
}

// Save stores a copy of the sequence.
func (s *Store) Save(ctx context.Context, seq domain.Sequence) error {
	if seq.Name == "" {
		return fmt.Errorf("sequence name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[seq.Name] = seq.Clone()
	return nil
}

// Load returns a copy so callers cannot mutate stored steps.
func (s *Store) Load(ctx context.Context, name string) (domain.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.data[name]
	if !ok {
		return domain.Sequence{}, domain.ErrSequenceNotFound
	}
	return seq.Clone(), nil
}

// Delete removes the sequence.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns stored names in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
