package opinion

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptt-copy-ai/internal/domain/entity"
	"ptt-copy-ai/internal/workflow/chain"
	apperrors "ptt-copy-ai/pkg/errors"
)

type replyModel struct {
	replies []string
	calls   int
}

func (m *replyModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	if m.calls >= len(m.replies) {
		return nil, errors.New("no scripted reply")
	}
	reply := m.replies[m.calls]
	m.calls++
	return schema.AssistantMessage(reply, nil), nil
}

func (m *replyModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

type replyFactory struct{ m *replyModel }

func (f replyFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.m, nil
}

type staticResolver struct{ calls int }

func (r *staticResolver) Resolve(context.Context, string) (*entity.Resolution, error) {
	r.calls++
	return &entity.Resolution{Provider: "gemini", Model: "gemini-1.5-pro"}, nil
}

func (r *staticResolver) Invalidate(context.Context, string) error { return nil }

func TestAnalyzeRendersSummary(t *testing.T) {
	m := &replyModel{replies: []string{
		"### 正向摘要\n**【效果】**\n- 打完皮膚變亮\n\n### 負向摘要\n**【價格】**\n- 太貴",
		"整體來說評價兩極，效果受肯定但價格偏高。",
	}}
	a := NewAnalyzer(Options{Provider: "gemini"}, &staticResolver{}, chain.NewOpinionChain(replyFactory{m}, nil))

	report, err := a.Analyze(context.Background(), "打完皮膚變亮\n太貴了吧")
	require.NoError(t, err)

	assert.Equal(t, 2, m.calls)
	assert.Equal(t, "gemini-1.5-pro", report.Model)
	assert.Contains(t, report.SummaryHTML, "<h3>正向摘要</h3>")
	assert.Contains(t, report.SummaryHTML, "<strong>【效果】</strong>")
	assert.Equal(t, "整體來說評價兩極，效果受肯定但價格偏高。", report.Analysis)
	assert.Equal(t, 20, report.AnalysisRunes)
	assert.False(t, report.InputTruncated)
}

func TestAnalyzeRejectsEmptyInput(t *testing.T) {
	r := &staticResolver{}
	a := NewAnalyzer(Options{Provider: "gemini"}, r, chain.NewOpinionChain(replyFactory{&replyModel{}}, nil))

	_, err := a.Analyze(context.Background(), "  \n ")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.CodeOf(err))
	assert.Zero(t, r.calls)
}

func TestAnalyzeReportsTruncatedInput(t *testing.T) {
	m := &replyModel{replies: []string{"### 正向摘要\n- 好", "分析"}}
	a := NewAnalyzer(Options{Provider: "gemini", MaxInputRunes: 3}, &staticResolver{}, chain.NewOpinionChain(replyFactory{m}, nil))

	report, err := a.Analyze(context.Background(), "一二三四五六")
	require.NoError(t, err)
	assert.True(t, report.InputTruncated)
}
