package dto

import (
	"strings"

	"ptt-copy-ai/internal/application/postprocess"
	"ptt-copy-ai/internal/domain/entity"
)

// GenerateTitlesRequest 标题生成请求
type GenerateTitlesRequest struct {
	Tag string `json:"tag" binding:"required"`
	// Topic 内容表 key 或自由文本
	Topic    string `json:"topic"`
	Tone     string `json:"tone" binding:"required"`
	CoreText string `json:"core_text"`
}

// SelectTitleRequest 选择标题请求
type SelectTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

// GeneratePostRequest 内文生成请求；Title 为空时使用当前选择
type GeneratePostRequest struct {
	Title string `json:"title"`
}

// AnalyzeOpinionsRequest 口碑分析请求
type AnalyzeOpinionsRequest struct {
	Comments string `json:"comments" binding:"required"`
}

// PostResponse 内文生成结果，Formatted 为可直接贴上 PTT 的全文
type PostResponse struct {
	*entity.GenerationResult
	Formatted string `json:"formatted"`
}

func ToPostResponse(r *entity.GenerationResult) *PostResponse {
	if r == nil {
		return nil
	}
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteString("\n\n")
	b.WriteString(r.Body)
	if len(r.Comments) > 0 {
		b.WriteString("\n\n")
		b.WriteString(postprocess.FormatPTT(r.Comments))
	}
	return &PostResponse{GenerationResult: r, Formatted: b.String()}
}

// ReferenceUploadResponse 上传结果
type ReferenceUploadResponse struct {
	Uploaded []entity.ReferenceDoc     `json:"uploaded"`
	Skipped  []entity.SkippedReference `json:"skipped,omitempty"`
}

// CatalogOption 下拉选项
type CatalogOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// CatalogResponse 内容表
type CatalogResponse struct {
	Topics []CatalogOption `json:"topics"`
	Tones  []CatalogOption `json:"tones"`
	Tags   []string        `json:"tags"`
}

func ToCatalogResponse(c *entity.Catalog) *CatalogResponse {
	resp := &CatalogResponse{
		Topics: make([]CatalogOption, 0, len(c.Topics)),
		Tones:  make([]CatalogOption, 0, len(c.Tones)),
		Tags:   append([]string{}, c.Tags...),
	}
	for _, t := range c.Topics {
		resp.Topics = append(resp.Topics, CatalogOption{Key: t.Key, Name: t.Name})
	}
	for _, t := range c.SortedTones() {
		resp.Tones = append(resp.Tones, CatalogOption{Key: t.Key, Name: t.Name})
	}
	return resp
}
