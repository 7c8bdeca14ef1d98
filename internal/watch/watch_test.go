package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sequence_01.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"a","data":[]}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := File(ctx, path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	// A burst of writes settles into one notification.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"name":"b","data":[]}`), 0644))
	}

	select {
	case got := <-ch:
		assert.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case <-ch:
		t.Fatal("burst was not coalesced")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFile_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := File(ctx, path, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))

	select {
	case <-ch:
		t.Fatal("sibling change reported")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestFile_ClosesOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := File(ctx, path)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestFile_MissingDirectory(t *testing.T) {
	_, err := File(context.Background(), filepath.Join(t.TempDir(), "nope", "seq.json"))
	assert.Error(t, err)
}
