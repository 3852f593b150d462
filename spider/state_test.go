package spider

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		act  func(c *control)
		want RunState
	}{
		{
			name: "starts running",
			act:  func(c *control) {},
			want: StateRunning,
		},
		{
			name: "pause while running",
			act:  func(c *control) { c.Pause() },
			want: StatePaused,
		},
		{
			name: "resume after pause",
			act: func(c *control) {
				c.Pause()
				c.Resume()
			},
			want: StateRunning,
		},
		{
			name: "resume without pause is a no-op",
			act:  func(c *control) { c.Resume() },
			want: StateRunning,
		},
		{
			name: "pause twice stays paused",
			act: func(c *control) {
				c.Pause()
				c.Pause()
			},
			want: StatePaused,
		},
		{
			name: "cancel while running",
			act:  func(c *control) { c.Cancel() },
			want: StateCancelled,
		},
		{
			name: "cancel while paused",
			act: func(c *control) {
				c.Pause()
				c.Cancel()
			},
			want: StateCancelled,
		},
		{
			name: "complete while running",
			act:  func(c *control) { c.Complete() },
			want: StateCompleted,
		},
		{
			name: "cancel after complete keeps completed",
			act: func(c *control) {
				c.Complete()
				c.Cancel()
			},
			want: StateCompleted,
		},
		{
			name: "pause after cancel keeps cancelled",
			act: func(c *control) {
				c.Cancel()
				c.Pause()
			},
			want: StateCancelled,
		},
		{
			name: "resume after cancel keeps cancelled",
			act: func(c *control) {
				c.Cancel()
				c.Resume()
			},
			want: StateCancelled,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := newControl()
			tc.act(ctrl)
			assert.Equal(t, tc.want, ctrl.State())
		})
	}
}

func TestControlAwaitResumeBlocksWhilePaused(t *testing.T) {
	t.Parallel()

	ctrl := newControl()
	ctrl.Pause()

	resumed := make(chan RunState, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		resumed <- ctrl.AwaitResume()
	}()

	select {
	case <-resumed:
		t.Fatal("AwaitResume returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	ctrl.Resume()
	wg.Wait()
	require.Equal(t, StateRunning, <-resumed)
}

func TestControlAwaitResumeUnblocksOnCancel(t *testing.T) {
	t.Parallel()

	ctrl := newControl()
	ctrl.Pause()

	resumed := make(chan RunState, 1)
	go func() {
		resumed <- ctrl.AwaitResume()
	}()

	ctrl.Cancel()

	select {
	case state := <-resumed:
		require.Equal(t, StateCancelled, state)
	case <-time.After(time.Second):
		t.Fatal("AwaitResume did not unblock on cancel")
	}
}

func TestRunStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "paused", StatePaused.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "completed", StateCompleted.String())

	assert.False(t, StateRunning.Terminal())
	assert.False(t, StatePaused.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.True(t, StateCompleted.Terminal())
}
