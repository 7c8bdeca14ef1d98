package ports

import (
	"context"

	"github.com/aretw0/tubelife/pkg/domain"
)

// Host is the persistence capability of the embedding application.
// Payloads are JSON documents in the sequence wire format.
type Host interface {
	// SaveSequence stores a serialized sequence.
	SaveSequence(ctx context.Context, payload []byte) error

	// LoadSequence returns the sequence the operator selected.
	LoadSequence(ctx context.Context) ([]byte, error)
}

// SequenceStore is a named library of sequences.
type SequenceStore interface {
	// Save persists the sequence under seq.Name, replacing any previous version.
	Save(ctx context.Context, seq domain.Sequence) error

	// Load retrieves a sequence by name.
	// Returns domain.ErrSequenceNotFound if it does not exist.
	Load(ctx context.Context, name string) (domain.Sequence, error)

	// Delete removes a sequence. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored sequences.
	List(ctx context.Context) ([]string, error)
}
