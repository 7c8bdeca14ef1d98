package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSequenceStoreContract runs a suite of tests to verify that a SequenceStore
// implementation adheres to the defined interface contract.
func RunSequenceStoreContract(t *testing.T, store SequenceStore) {
	ctx := context.Background()
	name := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		seq := domain.DefaultSequence()
		seq.Name = name

		err := store.Save(ctx, seq)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, seq, loaded)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		seq := domain.Sequence{Name: name, Steps: []domain.Step{domain.Delay{ID: "only", Time: 2.5}}}
		require.NoError(t, store.Save(ctx, seq))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, seq, loaded)
	})

	t.Run("Empty Sequence", func(t *testing.T) {
		seq := domain.Sequence{Name: name + "-empty", Steps: []domain.Step{}}
		require.NoError(t, store.Save(ctx, seq))
		defer func() { _ = store.Delete(ctx, seq.Name) }()

		loaded, err := store.Load(ctx, seq.Name)
		require.NoError(t, err)
		assert.Empty(t, loaded.Steps)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrSequenceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		seq := domain.DefaultSequence()
		seq.Name = name
		require.NoError(t, store.Save(ctx, seq))

		err := store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrSequenceNotFound, "Load after Delete should return ErrSequenceNotFound")

		assert.NoError(t, store.Delete(ctx, name), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		for _, n := range []string{id1, id2} {
			seq := domain.DefaultSequence()
			seq.Name = n
			require.NoError(t, store.Save(ctx, seq))
		}
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
	})
}
