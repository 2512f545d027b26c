package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreenStripsSpinnerLinesAndBlankLines(t *testing.T) {
	snapshot := "Write the function\n\n  Brewing (12s · 480 tokens)  \n\nDone.\n"
	got := Screen(snapshot)
	assert.Equal(t, "Write the function\nDone.", got)
}

func TestScreenIsIdempotent(t *testing.T) {
	snapshot := "Thinking…\n  leading space kept as trimmed  \n"
	once := Screen(snapshot)
	twice := Screen(once)
	assert.Equal(t, once, twice)
}

func TestHashStableForEqualInput(t *testing.T) {
	a := Hash("same content")
	b := Hash("same content")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Hash("different content"))
}

func TestTailLinesTruncatesFromEnd(t *testing.T) {
	snapshot := "1\n2\n3\n4\n5"
	assert.Equal(t, "3\n4\n5", TailLines(snapshot, 3))
	assert.Equal(t, snapshot, TailLines(snapshot, 10))
	assert.Equal(t, "", TailLines(snapshot, 0))
}

func TestRewriteInProgressInputReplacesLongUnfinishedLine(t *testing.T) {
	snapshot := "> implement the dedup package please\nsome other line"
	got := RewriteInProgressInput(snapshot, ">")
	assert.Contains(t, got, PromptPlaceholder)
	assert.NotContains(t, got, "implement the dedup package")
}

func TestRewriteInProgressInputLeavesShortInputAlone(t *testing.T) {
	snapshot := "> ok"
	got := RewriteInProgressInput(snapshot, ">")
	assert.Equal(t, snapshot, got)
}
