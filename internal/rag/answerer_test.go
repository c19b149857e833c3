package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/casablancahotelsoftware/tech-lab/internal/config"
	"github.com/casablancahotelsoftware/tech-lab/internal/vectorstore"
)

type fakeRetriever struct {
	results []vectorstore.SearchResult
	err     error
	gotK    int
	gotQ    string
}

func (f *fakeRetriever) Search(_ context.Context, query string, k int) ([]vectorstore.SearchResult, error) {
	f.gotQ = query
	f.gotK = k
	return f.results, f.err
}

type fakeModel struct {
	response string
	err      error
	messages []llms.MessageContent
	empty    bool
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.response, f.err
}

func textOf(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	var b strings.Builder
	for _, part := range msg.Parts {
		text, ok := part.(llms.TextContent)
		require.True(t, ok)
		b.WriteString(text.Text)
	}
	return b.String()
}

func TestAnswer(t *testing.T) {
	retriever := &fakeRetriever{results: []vectorstore.SearchResult{
		{Content: "first chunk. ", Score: 0.9},
		{Content: "second chunk.", Score: 0.8},
	}}
	model := &fakeModel{response: "It separates concerns into layers."}

	answerer := NewAnswerer(retriever, model, nil)
	answer, err := answerer.Answer(context.Background(), "What is Clean Architecture?")
	require.NoError(t, err)

	assert.Equal(t, "It separates concerns into layers.", answer.Text)
	assert.Len(t, answer.Sources, 2)
	assert.Equal(t, "What is Clean Architecture?", retriever.gotQ)
	assert.Equal(t, DefaultTopK, retriever.gotK)

	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)

	system := textOf(t, model.messages[0])
	assert.Contains(t, system, "first chunk. second chunk.")
	assert.Contains(t, system, "If you don't know the answer")
	assert.Equal(t, "What is Clean Architecture?", textOf(t, model.messages[1]))
}

func TestAnswerCustomTopK(t *testing.T) {
	retriever := &fakeRetriever{}
	model := &fakeModel{response: "ok"}

	answerer := NewAnswerer(retriever, model, nil, WithTopK(10))
	_, err := answerer.Answer(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, 10, retriever.gotK)
}

func TestAnswerEmptyQuestion(t *testing.T) {
	answerer := NewAnswerer(&fakeRetriever{}, &fakeModel{}, nil)

	_, err := answerer.Answer(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAnswerRetrieverError(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("store down")}
	answerer := NewAnswerer(retriever, &fakeModel{}, nil)

	_, err := answerer.Answer(context.Background(), "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieving context")
}

func TestAnswerNoRetrievedChunks(t *testing.T) {
	retriever := &fakeRetriever{}
	model := &fakeModel{response: "I don't know."}

	answerer := NewAnswerer(retriever, model, nil)
	answer, err := answerer.Answer(context.Background(), "unknown topic")
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestAnswerModelError(t *testing.T) {
	model := &fakeModel{err: errors.New("rate limited")}
	answerer := NewAnswerer(&fakeRetriever{}, model, nil)

	_, err := answerer.Answer(context.Background(), "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating answer")
}

func TestAnswerEmptyChoices(t *testing.T) {
	model := &fakeModel{empty: true}
	answerer := NewAnswerer(&fakeRetriever{}, model, nil)

	_, err := answerer.Answer(context.Background(), "question")
	require.ErrorIs(t, err, ErrNoAnswer)
}

func TestNewAzureChatModelValidation(t *testing.T) {
	creds := config.EmbeddingsConfig{
		BaseURL:    "https://unit.openai.azure.com",
		APIKey:     "sk-test",
		Model:      "text-embedding-3-large",
		APIVersion: "2024-12-01-preview",
	}

	_, err := NewAzureChatModel(config.EmbeddingsConfig{}, config.ChatConfig{Model: "gpt-4.1-mini"})
	require.Error(t, err)

	_, err = NewAzureChatModel(creds, config.ChatConfig{})
	require.Error(t, err)

	model, err := NewAzureChatModel(creds, config.ChatConfig{Model: "gpt-4.1-mini"})
	require.NoError(t, err)
	assert.NotNil(t, model)
}
