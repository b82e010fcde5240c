package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/llm"
)

type fakeModel struct {
	reply    string
	chunks   []string
	err      error
	wait     bool
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}

	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.options.StreamingFunc != nil {
		for _, chunk := range f.chunks {
			if err := f.options.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(m llms.MessageContent) string {
	var b strings.Builder
	for _, part := range m.Parts {
		if text, ok := part.(llms.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

func TestNewWithConfig(t *testing.T) {
	config := llm.ChatConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:1234",
	}
	engine, err := llm.NewWithConfig(config)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
	assert.Equal(t, "testmodel", engine.Model())
}

func TestNewWithConfigRejectsBadValues(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 1.5})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{MaxTokens: -1})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{Provider: "watson"})
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	model := &fakeModel{reply: "  texto reescrito \n"}
	engine := llm.NewWithModel(model, llm.ChatConfig{Model: "fake", Temperature: 0.2, MaxTokens: 300})

	out, err := engine.Complete(context.Background(), "sistema", "pedido")

	require.NoError(t, err)
	assert.Equal(t, "texto reescrito", out)
	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, "sistema", textOf(model.messages[0]))
	assert.Equal(t, "pedido", textOf(model.messages[1]))
	assert.Equal(t, 300, model.options.MaxTokens)
	assert.InDelta(t, 0.2, model.options.Temperature, 1e-9)
}

func TestCompleteError(t *testing.T) {
	engine := llm.NewWithModel(&fakeModel{err: errors.New("boom")}, llm.ChatConfig{})

	_, err := engine.Complete(context.Background(), "s", "p")

	assert.ErrorContains(t, err, "boom")
}

func TestCompleteStream(t *testing.T) {
	model := &fakeModel{reply: "uno dos", chunks: []string{"uno ", "dos"}}
	engine := llm.NewWithModel(model, llm.ChatConfig{})

	var got []string
	out, err := engine.CompleteStream(context.Background(), "s", "p", func(chunk string) {
		got = append(got, chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, "uno dos", out)
	assert.Equal(t, []string{"uno ", "dos"}, got)
}

func TestDraft(t *testing.T) {
	model := &fakeModel{reply: "```\nOBJETO\n\nSe promueve demanda.\n```"}
	drafter := llm.NewDrafter(llm.NewWithModel(model, llm.ChatConfig{}), time.Second)

	out, err := drafter.Draft(context.Background(), models.DraftRequest{
		DocumentType: "demanda laboral",
		Parties: []models.Party{
			{Role: "actor", Name: "Juan Pérez", Identifier: "DNI 20.123.456", Nationality: "argentino"},
			{Role: "demandado", Name: "ARCOR S.A."},
		},
		Facts: "Despido sin causa.",
	})

	require.NoError(t, err)
	assert.Equal(t, "OBJETO\n\nSe promueve demanda.", out)

	prompt := textOf(model.messages[1])
	assert.Contains(t, prompt, "demanda laboral")
	assert.Contains(t, prompt, "- actor: Juan Pérez, DNI 20.123.456, argentino")
	assert.Contains(t, prompt, "Despido sin causa.")
}

func TestDraftTimeout(t *testing.T) {
	drafter := llm.NewDrafter(llm.NewWithModel(&fakeModel{wait: true}, llm.ChatConfig{}), 10*time.Millisecond)

	_, err := drafter.Draft(context.Background(), models.DraftRequest{})

	assert.True(t, errors.Is(err, models.ErrGenerationTimeout))
}

func TestDraftWithProgress(t *testing.T) {
	model := &fakeModel{reply: "OBJETO", chunks: []string{"OBJ", "ETO"}}
	var received strings.Builder
	drafter := llm.NewDrafter(llm.NewWithModel(model, llm.ChatConfig{}), time.Second).
		WithProgress(func(chunk string) { received.WriteString(chunk) })

	_, err := drafter.Draft(context.Background(), models.DraftRequest{})

	require.NoError(t, err)
	assert.Equal(t, "OBJETO", received.String())
}
