package directory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifierAutoClears(t *testing.T) {
	n := newNotifier(20*time.Millisecond, 40*time.Millisecond)
	defer n.stop()

	n.set(StateSuccess, "done")
	assert.Equal(t, Status{Visible: true, State: StateSuccess, Message: "done"}, n.get())
	assert.Eventually(t, func() bool { return !n.get().Visible }, time.Second, 5*time.Millisecond)
	assert.Equal(t, hiddenStatus, n.get())

	n.set(StateError, "boom")
	time.Sleep(25 * time.Millisecond)
	assert.True(t, n.get().Visible, "error status outlives the success delay")
	assert.Eventually(t, func() bool { return !n.get().Visible }, time.Second, 5*time.Millisecond)
}

func TestNotifierPendingStaysVisible(t *testing.T) {
	n := newNotifier(time.Millisecond, time.Millisecond)
	defer n.stop()

	n.set(StatePending, "working")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, Status{Visible: true, State: StatePending, Message: "working"}, n.get())
}

func TestNotifierStaleTimerKeepsNewerStatus(t *testing.T) {
	n := newNotifier(30*time.Millisecond, 30*time.Millisecond)
	defer n.stop()

	n.set(StateSuccess, "first")
	// a stale clear for an earlier generation must not hide the current one
	n.mu.Lock()
	gen := n.gen
	n.mu.Unlock()
	n.set(StatePending, "second")
	n.clear(gen)
	assert.Equal(t, "second", n.get().Message)
	assert.True(t, n.get().Visible)
}

func TestSubmitMessage(t *testing.T) {
	assert.Equal(t, "Transaction rejected by user", submitMessage(ErrUserRejected))
	assert.Equal(t, "Submission failed: boom", submitMessage(errors.New("boom")))
}
