package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cam-watcher/cam/internal/model"
)

type stubClassifier struct{ response string }

func (s stubClassifier) Classify(_ context.Context, _, _ string) (string, error) {
	return s.response, nil
}

type stubExtractor struct {
	responses []string
	calls     int
}

func (s *stubExtractor) Extract(_ context.Context, _, _ string) (string, error) {
	if s.calls >= len(s.responses) {
		return "", assertAnErr{}
	}
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

type assertAnErr struct{}

func (assertAnErr) Error() string { return "no more stubbed responses" }

func TestExtractReturnsProcessingOnPreflight(t *testing.T) {
	r := Extract(context.Background(), stubClassifier{response: "PROCESSING"}, &stubExtractor{}, "snapshot", ">")
	assert.Equal(t, model.ExtractionProcessing, r.Outcome)
}

func TestExtractSucceedsOnFirstCompleteContext(t *testing.T) {
	stub := &stubExtractor{responses: []string{
		`{"has_question":true,"context_complete":true,"message":"Continue? (y/n)","fingerprint":"continue-confirm","message_type":"confirmation"}`,
	}}
	r := Extract(context.Background(), stubClassifier{response: "WAITING"}, stub, "snapshot", ">")
	require.Equal(t, model.ExtractionSuccess, r.Outcome)
	assert.Equal(t, "continue-confirm", r.Fingerprint)
	assert.Equal(t, model.MessageConfirmation, r.MessageType)
}

func TestExtractRetriesOnIncompleteContext(t *testing.T) {
	stub := &stubExtractor{responses: []string{
		`{"has_question":false,"context_complete":false}`,
		`{"has_question":true,"context_complete":true,"message":"Pick one","fingerprint":"pick-one-option","message_type":"choice"}`,
	}}
	r := Extract(context.Background(), stubClassifier{response: "WAITING"}, stub, "snapshot", ">")
	require.Equal(t, model.ExtractionSuccess, r.Outcome)
	assert.Equal(t, 2, stub.calls)
}

func TestExtractReturnsIdleWhenContextCompleteWithoutQuestion(t *testing.T) {
	stub := &stubExtractor{responses: []string{
		`{"has_question":false,"context_complete":true,"agent_status":"running tests","last_action":"ran go test"}`,
	}}
	r := Extract(context.Background(), stubClassifier{response: "WAITING"}, stub, "snapshot", ">")
	require.Equal(t, model.ExtractionIdle, r.Outcome)
	assert.Equal(t, "running tests", r.IdleStatus)
}

func TestExtractTreatsEmptyMessageAsInvalidAndContinues(t *testing.T) {
	stub := &stubExtractor{responses: []string{
		`{"has_question":true,"context_complete":true,"message":"","fingerprint":"x"}`,
		`{"has_question":true,"context_complete":true,"message":"Real question?","fingerprint":"real-question","message_type":"open_ended"}`,
	}}
	r := Extract(context.Background(), stubClassifier{response: "WAITING"}, stub, "snapshot", ">")
	require.Equal(t, model.ExtractionSuccess, r.Outcome)
	assert.Equal(t, "Real question?", r.Content)
}

func TestExtractFailsAfterExhaustingSchedule(t *testing.T) {
	stub := &stubExtractor{responses: []string{
		`not json`, `not json`, `not json`, `not json`, `not json`,
	}}
	r := Extract(context.Background(), stubClassifier{response: "WAITING"}, stub, "snapshot", ">")
	assert.Equal(t, model.ExtractionFailed, r.Outcome)
}
