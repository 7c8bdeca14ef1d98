package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalContext_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sc := NewSignalContext(parent)
	cancel()

	select {
	case <-sc.Done():
	case <-time.After(time.Second):
		t.Fatal("signal context outlived its parent")
	}
	assert.Nil(t, sc.Signal())
}

func TestSignalContext_CapturesSignal(t *testing.T) {
	sc := NewSignalContext(context.Background())
	defer sc.Cancel()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case <-sc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("SIGTERM did not cancel the context")
	}
	assert.Equal(t, syscall.SIGTERM, sc.Signal())
}

func TestDescribeSignal(t *testing.T) {
	assert.Equal(t, "Stopped", describeSignal(nil))
	assert.Equal(t, "Interrupted", describeSignal(os.Interrupt))
	assert.Equal(t, "Terminated", describeSignal(syscall.SIGTERM))
}
