package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cam-watcher/cam/internal/store"
)

func newDeduplicator(t *testing.T) *Deduplicator {
	t.Helper()
	paths := store.NewPaths(t.TempDir())
	d, err := New(store.NewDedupStateStore(paths))
	require.NoError(t, err)
	return d
}

func TestShouldSendFirstQuestionAlwaysSends(t *testing.T) {
	d := newDeduplicator(t)
	decision, _, err := d.ShouldSend("cam-A", "Title\n\nDo you want to continue?\n\nReply y/n", 1000)
	require.NoError(t, err)
	assert.Equal(t, Send, decision)
}

func TestShouldSendSuppressesSimilarQuestionWithinWindow(t *testing.T) {
	d := newDeduplicator(t)
	_, _, err := d.ShouldSend("cam-A", "Title\n\nDo you want to continue?\n\nReply y/n", 1000)
	require.NoError(t, err)

	decision, reason, err := d.ShouldSend("cam-A", "Title\n\ndo you want to continue?\n\nReply y/n", 1010)
	require.NoError(t, err)
	assert.Equal(t, Suppressed, decision)
	assert.NotEmpty(t, reason)
}

func TestShouldSendAllowsDifferentQuestionWithinWindow(t *testing.T) {
	d := newDeduplicator(t)
	_, _, err := d.ShouldSend("cam-A", "Title\n\nDo you want to continue?\n\nReply y/n", 1000)
	require.NoError(t, err)

	decision, _, err := d.ShouldSend("cam-A", "Title\n\nWhich branch should I push to?\n\nReply with a name", 1010)
	require.NoError(t, err)
	assert.Equal(t, Send, decision)
}

func TestShouldSendAllowsSameQuestionAfterWindowElapses(t *testing.T) {
	d := newDeduplicator(t)
	_, _, err := d.ShouldSend("cam-A", "Title\n\nDo you want to continue?\n\nReply y/n", 1000)
	require.NoError(t, err)

	decision, _, err := d.ShouldSend("cam-A", "Title\n\nDo you want to continue?\n\nReply y/n", 1000+WindowSeconds)
	require.NoError(t, err)
	assert.Equal(t, Send, decision)
}

func TestClearLockAllowsImmediateResend(t *testing.T) {
	d := newDeduplicator(t)
	_, _, err := d.ShouldSend("cam-A", "Title\n\nDo you want to continue?\n\nReply y/n", 1000)
	require.NoError(t, err)
	require.NoError(t, d.ClearLock("cam-A"))

	decision, _, err := d.ShouldSend("cam-A", "Title\n\nDo you want to continue?\n\nReply y/n", 1001)
	require.NoError(t, err)
	assert.Equal(t, Send, decision)
}
