package entity

import "time"

// Comment 带显示标签的推文；Label 为装饰性标签，与内容情绪无关
type Comment struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// GenerationResult 一次内文生成的结果
type GenerationResult struct {
	Title    string    `json:"title"`
	Model    string    `json:"model"`
	Raw      string    `json:"raw"`
	Body     string    `json:"body"`
	Comments []Comment `json:"comments"`
	// ReferenceTruncated 参考资料超出上限被截断
	ReferenceTruncated bool               `json:"reference_truncated"`
	Skipped            []SkippedReference `json:"skipped,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// TitleBatch 一次标题生成的结果
type TitleBatch struct {
	Titles             []string           `json:"titles"`
	Model              string             `json:"model"`
	Blacklisted        int                `json:"blacklisted"`
	ReferenceTruncated bool               `json:"reference_truncated"`
	Skipped            []SkippedReference `json:"skipped,omitempty"`
}

// OpinionReport 口碑正负评分析结果
type OpinionReport struct {
	Model           string `json:"model"`
	SummaryMarkdown string `json:"summary_markdown"`
	SummaryHTML     string `json:"summary_html"`
	Analysis        string `json:"analysis"`
	AnalysisRunes   int    `json:"analysis_runes"`
	InputTruncated  bool   `json:"input_truncated"`
}
