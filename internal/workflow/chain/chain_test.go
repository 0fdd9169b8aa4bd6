package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfmodel "ptt-copy-ai/internal/workflow/model"
	wfnode "ptt-copy-ai/internal/workflow/node"
	apperrors "ptt-copy-ai/pkg/errors"
)

type fakeChatModel struct {
	msg   *schema.Message
	err   error
	calls int
	opts  *model.Options
	input []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	f.input = input
	f.opts = model.GetCommonOptions(&model.Options{}, opts...)
	if f.err != nil {
		return nil, f.err
	}
	return f.msg, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

type fakeFactory struct {
	model *fakeChatModel
	err   error
}

func (f *fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func titleInput() *wfmodel.TitleGenerateInput {
	temp := float32(0.9)
	return &wfmodel.TitleGenerateInput{
		Persona: "你現在是 PTT 醫美版資深鄉民。",
		Topic:   wfmodel.TopicSpec{Name: "針劑/微整"},
		Tone:    wfmodel.ToneSpec{Name: "lively"},
		Tag:     "[討論]",
		Count:   5,
		Options: wfmodel.GenerateOptions{Provider: "gemini", Model: "gemini-1.5-pro", Temperature: &temp},
	}
}

func TestTitleChainInvoke(t *testing.T) {
	fm := &fakeChatModel{msg: &schema.Message{
		Role:    schema.Assistant,
		Content: "標題一\n標題二",
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: "STOP",
			Usage:        &schema.TokenUsage{PromptTokens: 12, CompletionTokens: 7},
		},
	}}
	c := NewTitleChain(&fakeFactory{model: fm}, nil)

	out, err := c.Invoke(context.Background(), titleInput())
	require.NoError(t, err)
	assert.Equal(t, "標題一\n標題二", out.Content)
	assert.Equal(t, "gemini-1.5-pro", out.Meta.Model)
	assert.Equal(t, 12, out.Meta.PromptTokens)
	assert.Equal(t, 7, out.Meta.CompletionTokens)
	require.NotNil(t, fm.opts.Model)
	assert.Equal(t, "gemini-1.5-pro", *fm.opts.Model)
	require.NotNil(t, fm.opts.Temperature)
	assert.InDelta(t, 0.9, *fm.opts.Temperature, 0.0001)
	assert.Len(t, fm.input, 2)
}

func TestTitleChainSafetyBlocked(t *testing.T) {
	fm := &fakeChatModel{msg: &schema.Message{
		Role:         schema.Assistant,
		ResponseMeta: &schema.ResponseMeta{FinishReason: "SAFETY"},
	}}
	c := NewTitleChain(&fakeFactory{model: fm}, nil)

	_, err := c.Invoke(context.Background(), titleInput())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSafetyBlocked))
}

func TestTitleChainEmptyContent(t *testing.T) {
	fm := &fakeChatModel{msg: &schema.Message{Role: schema.Assistant, Content: "  "}}
	c := NewTitleChain(&fakeFactory{model: fm}, nil)

	_, err := c.Invoke(context.Background(), titleInput())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLLMProviderError))
}

func TestTitleChainClassifiesProviderError(t *testing.T) {
	fm := &fakeChatModel{err: &wfnode.ProviderStatusError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Err: errors.New("quota")}}
	c := NewTitleChain(&fakeFactory{model: fm}, nil)

	_, err := c.Invoke(context.Background(), titleInput())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeQuotaExceeded))
}

func TestTitleChainRequiresProvider(t *testing.T) {
	fm := &fakeChatModel{}
	c := NewTitleChain(&fakeFactory{model: fm}, nil)
	in := titleInput()
	in.Options.Provider = ""

	_, err := c.Invoke(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))
	assert.Zero(t, fm.calls)
}

func TestPostChainReportsReferenceTruncation(t *testing.T) {
	fm := &fakeChatModel{msg: &schema.Message{Role: schema.Assistant, Content: "內文\n[PTT_END]\n推文"}}
	c := NewPostChain(&fakeFactory{model: fm}, nil)

	out, err := c.Invoke(context.Background(), &wfmodel.PostGenerateInput{
		Title:             "標題",
		Tag:               "[心得]",
		References:        "一二三四五六",
		ReferenceMaxRunes: 3,
		BodyRunes:         150,
		Sentinel:          "[PTT_END]",
		CommentCount:      8,
		Options:           wfmodel.GenerateOptions{Provider: "gemini"},
	})
	require.NoError(t, err)
	assert.True(t, out.ReferenceTruncated)
}

func TestProbeChain(t *testing.T) {
	fm := &fakeChatModel{msg: &schema.Message{Role: schema.Assistant}}
	p := NewProbeChain(&fakeFactory{model: fm}, "", time.Second)

	require.NoError(t, p.Probe(context.Background(), "gemini", "gemini-1.5-flash"))
	require.NotNil(t, fm.opts.Model)
	assert.Equal(t, "gemini-1.5-flash", *fm.opts.Model)
	require.NotNil(t, fm.opts.MaxTokens)
	assert.Equal(t, 1, *fm.opts.MaxTokens)

	fm.err = &wfnode.ProviderStatusError{StatusCode: 404, Err: errors.New("not found")}
	err := p.Probe(context.Background(), "gemini", "gemini-pro")
	require.Error(t, err)
}
