package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	wfmodel "ptt-copy-ai/internal/workflow/model"
	"ptt-copy-ai/internal/workflow/node"
)

// Rendered 渲染完成的 prompt
type Rendered struct {
	Messages []*schema.Message
	Shape    wfmodel.ResponseShape

	ReferenceTruncated bool
	ReferenceRunes     int
}

// Text 按消息顺序拼接内容，用于日志与测试
func (r *Rendered) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m == nil {
			continue
		}
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// Builder 纯函数式 prompt 构建器：相同输入得到相同输出
type Builder struct {
	registry *Registry
}

func NewBuilder(registry *Registry) *Builder {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Builder{registry: registry}
}

func (b *Builder) Titles(ctx context.Context, in *wfmodel.TitleGenerateInput) (*Rendered, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if in.Count <= 0 {
		return nil, fmt.Errorf("title count must be positive")
	}
	core := strings.TrimSpace(in.CoreText)
	if core == "" {
		core = strings.TrimSpace(in.Topic.Name)
	}
	if core == "" {
		return nil, fmt.Errorf("core text or topic is required")
	}

	refBlock, truncated, refRunes := node.BuildReferenceBlock(in.References, in.ReferenceMaxRunes)
	vars := map[string]any{
		"persona":          strings.TrimSpace(in.Persona),
		"tone_instruction": strings.TrimSpace(in.Tone.Instruction),
		"tone_name":        strings.TrimSpace(in.Tone.Name),
		"core":             core,
		"count":            strconv.Itoa(in.Count),
		"tag":              strings.TrimSpace(in.Tag),
		"topic":            strings.TrimSpace(in.Topic.Name),
		"topic_context":    strings.TrimSpace(in.Topic.Context),
		"references_block": refBlock,
		"reference_rule":   node.ReferenceRule(refBlock != ""),
	}
	msgs, err := b.format(ctx, PromptTitleGenV1, vars)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Messages:           msgs,
		Shape:              wfmodel.ResponseShape{Kind: wfmodel.ShapeLines, Lines: in.Count},
		ReferenceTruncated: truncated,
		ReferenceRunes:     refRunes,
	}, nil
}

func (b *Builder) Post(ctx context.Context, in *wfmodel.PostGenerateInput) (*Rendered, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	if strings.TrimSpace(in.Sentinel) == "" {
		return nil, fmt.Errorf("sentinel is required")
	}
	if in.BodyRunes <= 0 || in.CommentCount <= 0 {
		return nil, fmt.Errorf("body_runes and comment_count must be positive")
	}

	refBlock, truncated, refRunes := node.BuildReferenceBlock(in.References, in.ReferenceMaxRunes)
	example := ""
	if e := strings.TrimSpace(in.Topic.Example); e != "" {
		example = "參考語感：" + e
	}
	keywords := node.JoinTerms(in.Topic.Keywords)
	if keywords == "" {
		keywords = strings.TrimSpace(in.Topic.Name)
	}
	vars := map[string]any{
		"persona":          strings.TrimSpace(in.Persona),
		"tone_instruction": strings.TrimSpace(in.Tone.Instruction),
		"tone_name":        strings.TrimSpace(in.Tone.Name),
		"tag":              strings.TrimSpace(in.Tag),
		"title":            strings.TrimSpace(in.Title),
		"body_runes":       strconv.Itoa(in.BodyRunes),
		"topic":            strings.TrimSpace(in.Topic.Name),
		"topic_context":    strings.TrimSpace(in.Topic.Context),
		"references_block": refBlock,
		"fillers":          node.JoinTerms(in.Fillers),
		"keywords":         keywords,
		"reference_rule":   node.ReferenceRule(refBlock != ""),
		"sentinel":         strings.TrimSpace(in.Sentinel),
		"comment_count":    strconv.Itoa(in.CommentCount),
		"example_block":    example,
	}
	msgs, err := b.format(ctx, PromptPostGenV1, vars)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Messages: msgs,
		Shape: wfmodel.ResponseShape{
			Kind:     wfmodel.ShapeBodyComments,
			Sentinel: strings.TrimSpace(in.Sentinel),
			Comments: in.CommentCount,
		},
		ReferenceTruncated: truncated,
		ReferenceRunes:     refRunes,
	}, nil
}

// OpinionSummary 正负评分类摘要；言论超过 MaxRunes 时截断，并以 ReferenceTruncated 报告
func (b *Builder) OpinionSummary(ctx context.Context, in *wfmodel.OpinionSummaryInput) (*Rendered, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	comments := strings.TrimSpace(in.Comments)
	if comments == "" {
		return nil, fmt.Errorf("comments are required")
	}
	truncated := false
	if in.MaxRunes > 0 {
		comments, truncated = node.HeadTruncate(comments, in.MaxRunes)
	}
	msgs, err := b.format(ctx, PromptOpinionSummaryV1, map[string]any{"comments": comments})
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Messages:           msgs,
		Shape:              wfmodel.ResponseShape{Kind: wfmodel.ShapeMarkdown},
		ReferenceTruncated: truncated,
		ReferenceRunes:     node.RuneLen(comments),
	}, nil
}

func (b *Builder) OpinionAnalysis(ctx context.Context, in *wfmodel.OpinionAnalysisInput) (*Rendered, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		return nil, fmt.Errorf("summary is required")
	}
	if in.MinRunes <= 0 || in.MaxRunes < in.MinRunes {
		return nil, fmt.Errorf("invalid analysis length range %d-%d", in.MinRunes, in.MaxRunes)
	}
	vars := map[string]any{
		"summary":   summary,
		"min_runes": strconv.Itoa(in.MinRunes),
		"max_runes": strconv.Itoa(in.MaxRunes),
	}
	msgs, err := b.format(ctx, PromptOpinionAnalysisV1, vars)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Messages: msgs,
		Shape:    wfmodel.ResponseShape{Kind: wfmodel.ShapeParagraph},
	}, nil
}

func (b *Builder) format(ctx context.Context, id PromptID, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := b.registry.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	for _, m := range msgs {
		m.Content = node.CollapseBlankLines(m.Content)
	}
	return msgs, nil
}
