package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorRunsSubmittedOp(t *testing.T) {
	p := NewProcessor(2, nil, nil, zerolog.Nop())
	p.Start()
	defer p.Stop()

	value, err := p.submit(context.Background(), "noop", func(context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestProcessorStopFailsQueuedOps(t *testing.T) {
	// No workers: submitted ops stay queued until Stop drains them.
	p := NewProcessor(0, nil, nil, zerolog.Nop())
	p.Start()

	done := make(chan error, 1)
	go func() {
		_, err := p.submit(context.Background(), "queued", func(context.Context) (any, error) {
			return nil, nil
		})
		done <- err
	}()

	// Wait for the op to be enqueued before stopping.
	deadline := time.After(2 * time.Second)
	for len(p.queue) == 0 {
		select {
		case <-deadline:
			t.Fatal("op never queued")
		case <-time.After(5 * time.Millisecond):
		}
	}

	p.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrProcessorStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("queued submitter still blocked after stop")
	}
}

func TestProcessorRejectsSubmitAfterStop(t *testing.T) {
	p := NewProcessor(1, nil, nil, zerolog.Nop())
	p.Start()
	p.Stop()

	_, err := p.submit(context.Background(), "late", func(context.Context) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrProcessorStopped)
}
