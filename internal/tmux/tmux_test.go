package tmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSessionListSplitsNames(t *testing.T) {
	assert.Equal(t, []string{"cam-A", "cam-B"}, parseSessionList("cam-A\ncam-B\n"))
}

func TestParseSessionListEmptyOutputYieldsNil(t *testing.T) {
	assert.Nil(t, parseSessionList("\n"))
	assert.Nil(t, parseSessionList(""))
}
