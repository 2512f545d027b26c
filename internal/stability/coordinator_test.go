package stability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cam-watcher/cam/internal/model"
	"github.com/cam-watcher/cam/internal/normalize"
)

func TestEvaluateDeniesOnContentChange(t *testing.T) {
	state := model.StabilityState{Hash: 999, SinceEpoch: 0, AIChecked: false}
	d := Evaluate("new screen content", 100, state, 0, false)
	assert.False(t, d.Permit)
	assert.Equal(t, DenyContentChanged, d.Reason)
}

func TestEvaluateDeniesWhenAlreadyChecked(t *testing.T) {
	snapshot := "settled screen"
	hash := normalize.Hash(normalize.Screen(snapshot))
	state := model.StabilityState{Hash: hash, SinceEpoch: 0, AIChecked: true}
	d := Evaluate(snapshot, 100, state, 0, false)
	assert.False(t, d.Permit)
	assert.Equal(t, DenyAlreadyChecked, d.Reason)
}

func TestEvaluateDeniesBeforeSettlingThreshold(t *testing.T) {
	snapshot := "settled screen"
	hash := normalize.Hash(normalize.Screen(snapshot))
	state := model.StabilityState{Hash: hash, SinceEpoch: 98, AIChecked: false}
	d := Evaluate(snapshot, 100, state, 0, false)
	assert.False(t, d.Permit)
	assert.Equal(t, DenyNotSettled, d.Reason)
}

func TestEvaluateDeniesDuringHookQuietPeriod(t *testing.T) {
	snapshot := "settled screen"
	hash := normalize.Hash(normalize.Screen(snapshot))
	state := model.StabilityState{Hash: hash, SinceEpoch: 0, AIChecked: false}
	d := Evaluate(snapshot, 100, state, 90, true)
	assert.False(t, d.Permit)
	assert.Equal(t, DenyHookQuietPeriod, d.Reason)
}

func TestEvaluatePermitsWhenAllChecksPass(t *testing.T) {
	snapshot := "settled screen"
	hash := normalize.Hash(normalize.Screen(snapshot))
	state := model.StabilityState{Hash: hash, SinceEpoch: 0, AIChecked: false}
	d := Evaluate(snapshot, 100, state, 10, true)
	assert.True(t, d.Permit)
	assert.Equal(t, hash, d.Hash)
}

func TestEvaluateIgnoresStaleHookEventOutsideQuietPeriod(t *testing.T) {
	snapshot := "settled screen"
	hash := normalize.Hash(normalize.Screen(snapshot))
	state := model.StabilityState{Hash: hash, SinceEpoch: 0, AIChecked: false}
	d := Evaluate(snapshot, 100, state, 50, true)
	assert.True(t, d.Permit)
}
