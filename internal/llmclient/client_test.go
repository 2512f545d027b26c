package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type stubMessages struct {
	response *sdk.Message
	err      error
	lastBody sdk.MessageNewParams
}

func (s *stubMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastBody = body
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func textMessage(text string) *sdk.Message {
	return &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: text}},
	}
}

func TestClassifyReturnsResponseText(t *testing.T) {
	stub := &stubMessages{response: textMessage("WAITING")}
	c := NewWithMessages(stub, "claude-haiku-4-5", 64)

	got, err := c.Classify(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "WAITING", got)
	assert.Equal(t, "system prompt", stub.lastBody.System[0].Text)
}

func TestExtractPropagatesTransportError(t *testing.T) {
	stub := &stubMessages{err: assert.AnError}
	c := NewWithMessages(stub, "claude-haiku-4-5", 64)

	_, err := c.Extract(context.Background(), "", "user prompt")
	assert.Error(t, err)
}

func TestCompleteErrorsWhenNoTextContent(t *testing.T) {
	stub := &stubMessages{response: &sdk.Message{}}
	c := NewWithMessages(stub, "claude-haiku-4-5", 64)

	_, err := c.Classify(context.Background(), "", "user prompt")
	assert.Error(t, err)
}

func TestNewRequiresAPIKeyAndModel(t *testing.T) {
	_, err := New(Config{Model: "claude-haiku-4-5"})
	assert.Error(t, err)

	_, err = New(Config{APIKey: "sk-test"})
	assert.Error(t, err)
}
