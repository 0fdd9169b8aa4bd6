package model

import (
	"fmt"
	"time"
)

// ResponseShapeKind 期望的回复形态
type ResponseShapeKind string

const (
	// ShapeLines N 行，每行一项
	ShapeLines ResponseShapeKind = "lines"
	// ShapeBodyComments 内文 + 分隔符 + M 行推文
	ShapeBodyComments ResponseShapeKind = "body_comments"
	// ShapeMarkdown 自由 Markdown
	ShapeMarkdown ResponseShapeKind = "markdown"
	// ShapeParagraph 单段文字
	ShapeParagraph ResponseShapeKind = "paragraph"
)

// ResponseShape 随 prompt 一起声明的回复形态，供后处理参考
type ResponseShape struct {
	Kind     ResponseShapeKind `json:"kind"`
	Lines    int               `json:"lines,omitempty"`
	Sentinel string            `json:"sentinel,omitempty"`
	Comments int               `json:"comments,omitempty"`
}

func (s ResponseShape) String() string {
	switch s.Kind {
	case ShapeLines:
		return fmt.Sprintf("%d newline-separated lines", s.Lines)
	case ShapeBodyComments:
		return fmt.Sprintf("body, then %s, then %d comment lines", s.Sentinel, s.Comments)
	default:
		return string(s.Kind)
	}
}

// Decoding 单个工作流配置的解码参数，零值沿用 Provider 配置
type Decoding struct {
	Temperature float64
	MaxTokens   int
}

// Options 转换为调用参数
func (d Decoding) Options(provider, model string) GenerateOptions {
	opts := GenerateOptions{Provider: provider, Model: model}
	if d.Temperature > 0 {
		t := float32(d.Temperature)
		opts.Temperature = &t
	}
	if d.MaxTokens > 0 {
		m := d.MaxTokens
		opts.MaxTokens = &m
	}
	return opts
}

// GenerateOptions 解码参数，nil 表示沿用 Provider 默认值
type GenerateOptions struct {
	Provider    string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// GenerateOutput 单次生成的输出
type GenerateOutput struct {
	Content      string
	FinishReason string
	Meta         LLMUsageMeta
	// ReferenceTruncated prompt 中的参考资料被截断
	ReferenceTruncated bool
}

type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	GeneratedAt      time.Time
}
