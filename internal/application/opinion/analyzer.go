// Package opinion 将贴上的网路言论整理为正负评摘要与综合分析
package opinion

import (
	"bytes"
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"ptt-copy-ai/internal/domain/entity"
	llmctx "ptt-copy-ai/internal/domain/service"
	"ptt-copy-ai/internal/workflow/chain"
	wfmodel "ptt-copy-ai/internal/workflow/model"
	workflowport "ptt-copy-ai/internal/workflow/port"
	apperrors "ptt-copy-ai/pkg/errors"
	"ptt-copy-ai/pkg/logger"
	"ptt-copy-ai/pkg/metrics"
)

const (
	defaultMinRunes = 100
	defaultMaxRunes = 150
	// defaultInputRunes 单次送入摘要的言论上限
	defaultInputRunes = 20000
)

type Options struct {
	Provider      string
	MaxInputRunes int
	MinRunes      int
	MaxRunes      int
	Decoding      wfmodel.Decoding
}

type Analyzer struct {
	opts     Options
	resolver workflowport.ModelResolver
	chain    *chain.OpinionChain
	md       goldmark.Markdown
}

func NewAnalyzer(opts Options, resolver workflowport.ModelResolver, c *chain.OpinionChain) *Analyzer {
	if opts.MinRunes <= 0 {
		opts.MinRunes = defaultMinRunes
	}
	if opts.MaxRunes < opts.MinRunes {
		opts.MaxRunes = defaultMaxRunes
	}
	if opts.MaxInputRunes <= 0 {
		opts.MaxInputRunes = defaultInputRunes
	}
	return &Analyzer{
		opts:     opts,
		resolver: resolver,
		chain:    c,
		md:       goldmark.New(),
	}
}

// Analyze 先分类摘要，再以摘要为输入写综合分析
func (a *Analyzer) Analyze(ctx context.Context, comments string) (report *entity.OpinionReport, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = string(apperrors.CodeOf(err))
		}
		metrics.GenerationTotal.WithLabelValues(llmctx.WorkflowOpinionAnalysis, status).Inc()
		metrics.GenerationDuration.WithLabelValues(llmctx.WorkflowOpinionAnalysis).Observe(time.Since(start).Seconds())
	}()

	comments = strings.TrimSpace(comments)
	if comments == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "comments are required")
	}

	res, err := a.resolver.Resolve(ctx, a.opts.Provider)
	if err != nil {
		return nil, err
	}
	opts := a.generateOptions(res.Model)

	summary, err := a.chain.Summarize(ctx, &wfmodel.OpinionSummaryInput{
		Comments: comments,
		MaxRunes: a.opts.MaxInputRunes,
		Options:  opts,
	})
	if err != nil {
		a.invalidateOnQuota(ctx, err)
		return nil, err
	}
	if summary.ReferenceTruncated {
		logger.Warn(ctx, "opinion input truncated", "max_runes", a.opts.MaxInputRunes)
	}

	analysis, err := a.chain.Analyze(ctx, &wfmodel.OpinionAnalysisInput{
		Summary:  summary.Content,
		MinRunes: a.opts.MinRunes,
		MaxRunes: a.opts.MaxRunes,
		Options:  opts,
	})
	if err != nil {
		a.invalidateOnQuota(ctx, err)
		return nil, err
	}

	html, err := a.render(summary.Content)
	if err != nil {
		// 渲染失败不影响文字结果
		logger.Warn(ctx, "failed to render opinion summary", "error", err.Error())
	}

	text := strings.TrimSpace(analysis.Content)
	n := utf8.RuneCountInString(text)
	if n < a.opts.MinRunes || n > a.opts.MaxRunes {
		logger.Debug(ctx, "opinion analysis length out of range", "runes", n)
	}

	return &entity.OpinionReport{
		Model:           res.Model,
		SummaryMarkdown: strings.TrimSpace(summary.Content),
		SummaryHTML:     html,
		Analysis:        text,
		AnalysisRunes:   n,
		InputTruncated:  summary.ReferenceTruncated,
	}, nil
}

func (a *Analyzer) render(md string) (string, error) {
	var buf bytes.Buffer
	if err := a.md.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (a *Analyzer) generateOptions(modelName string) wfmodel.GenerateOptions {
	return a.opts.Decoding.Options(a.opts.Provider, modelName)
}

func (a *Analyzer) invalidateOnQuota(ctx context.Context, err error) {
	if !apperrors.HasCode(err, apperrors.CodeQuotaExceeded) {
		return
	}
	if ierr := a.resolver.Invalidate(ctx, a.opts.Provider); ierr != nil {
		logger.Warn(ctx, "failed to invalidate model resolution", "error", ierr.Error())
	}
}
