package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryFallsBackToGeneric(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, ClaudeCode, r.Get("claude-code"))
	assert.Equal(t, Generic, r.Get("unknown-cli"))
}

func TestShouldPollHookOnly(t *testing.T) {
	a := Adapter{Policy: HookOnly}

	assert.True(t, a.ShouldPoll(0, false), "never seen a hook event: must poll")
	assert.False(t, a.ShouldPoll(100, true), "recent hook event: skip polling")
	assert.True(t, a.ShouldPoll(HookInactiveThreshold, true), "threshold age is inclusive")
	assert.True(t, a.ShouldPoll(HookInactiveThreshold+1, true))
}

func TestShouldPollAlwaysPollingTypes(t *testing.T) {
	for _, policy := range []SchedulingPolicy{HookWithPolling, PollingOnly} {
		a := Adapter{Policy: policy}
		assert.True(t, a.ShouldPoll(0, true))
		assert.True(t, a.ShouldPoll(100000, true))
	}
}
