package utils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acasochat/acaso/pkg/commons"
)

type panicRecorder struct {
	commons.Logger
	mu     sync.Mutex
	errors []string
}

func (r *panicRecorder) Errorw(msg string, keysAndValues ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *panicRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func TestGo_RunsFn(t *testing.T) {
	done := make(chan struct{})
	Go(context.Background(), commons.NewNopLogger(), func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fn never ran")
	}
}

func TestGo_SkipsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := make(chan struct{}, 1)
	Go(ctx, commons.NewNopLogger(), func() { ran <- struct{}{} })

	select {
	case <-ran:
		t.Fatal("fn ran on a cancelled context")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestGo_LogsRecoveredPanic(t *testing.T) {
	logger := &panicRecorder{Logger: commons.NewNopLogger()}
	Go(context.Background(), logger, func() { panic("boom") })

	require.Eventually(t, func() bool {
		return len(logger.recorded()) == 1
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, "recovered goroutine panic", logger.recorded()[0])
}
