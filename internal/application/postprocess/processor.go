// Package postprocess 对模型输出做尽力而为的解析，任何输入都不会返回错误
package postprocess

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"ptt-copy-ai/pkg/metrics"
)

// DefaultMinCommentRunes 推文最短字符数
const DefaultMinCommentRunes = 3

// leadingMarkers 行首的推/噓/箭头、编号、竖线、冒号与列表符号。
// 空白类必须覆盖 strings.TrimSpace 会去掉的全部字符（全角空格、不换行空格等），
// 否则 TrimSpace 之后会露出新的行首标记。
var leadingMarkers = regexp.MustCompile(`^[推噓→\|:\s\v\x{0085}\p{Z}\d\.\-＞>*•・]+`)

const (
	dropReasonTooShort = "too_short"
	dropReasonSentinel = "sentinel"
)

// Options 后处理策略
type Options struct {
	MinCommentRunes    int
	StripQuestionMarks bool
	BodyStripWords     []string
}

// Result 切分后的内文与推文
type Result struct {
	Body     string
	Comments []string
	// SentinelFound 原文中是否出现分隔符
	SentinelFound bool
	Dropped       int
}

type Processor struct {
	opts Options
}

func NewProcessor(opts Options) *Processor {
	if opts.MinCommentRunes <= 0 {
		opts.MinCommentRunes = DefaultMinCommentRunes
	}
	return &Processor{opts: opts}
}

// Process 以第一个分隔符切分内文与推文；没有分隔符时整段视为内文
func (p *Processor) Process(raw, sentinel string) Result {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	bodyRaw, commentsRaw, found := raw, "", false
	if sentinel != "" {
		bodyRaw, commentsRaw, found = strings.Cut(raw, sentinel)
	}

	res := Result{
		Body:          p.cleanBody(bodyRaw),
		Comments:      []string{},
		SentinelFound: found,
	}
	if !found {
		return res
	}

	for _, line := range strings.Split(commentsRaw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c := p.cleanComment(line)
		switch {
		case c == sentinel:
			res.Dropped++
			metrics.PostProcessDroppedLines.WithLabelValues(dropReasonSentinel).Inc()
		case utf8.RuneCountInString(c) < p.opts.MinCommentRunes:
			res.Dropped++
			metrics.PostProcessDroppedLines.WithLabelValues(dropReasonTooShort).Inc()
		default:
			res.Comments = append(res.Comments, c)
		}
	}
	return res
}

// Join 把结果还原为带分隔符的文本
func Join(r Result, sentinel string) string {
	if len(r.Comments) == 0 {
		return r.Body + "\n" + sentinel
	}
	return r.Body + "\n" + sentinel + "\n" + strings.Join(r.Comments, "\n")
}

func (p *Processor) cleanBody(s string) string {
	s = strings.TrimSpace(s)
	for _, w := range p.opts.BodyStripWords {
		if w == "" {
			continue
		}
		for strings.Contains(s, w) {
			s = strings.ReplaceAll(s, w, "")
		}
	}
	return strings.TrimSpace(s)
}

// 问号先于行首标记移除，保证重复处理结果不变
func (p *Processor) cleanComment(line string) string {
	c := strings.TrimSpace(line)
	if p.opts.StripQuestionMarks {
		c = strings.NewReplacer("?", "", "？", "").Replace(c)
	}
	c = leadingMarkers.ReplaceAllString(c, "")
	return strings.TrimSpace(c)
}
