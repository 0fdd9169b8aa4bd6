package postprocess

import (
	"math/rand"
	"strings"
	"sync"

	"ptt-copy-ai/internal/domain/entity"
)

// 标签策略
const (
	LabelPolicyRandom     = "random"
	LabelPolicyRoundRobin = "round_robin"
	LabelPolicyNone       = "none"
)

// DefaultLabelPool 推多噓少的默认标签池
var DefaultLabelPool = []string{"推", "推", "→", "→", "噓", "推", "→"}

// Labeler 为推文分配显示用标签，与推文内容无关
type Labeler struct {
	policy string
	pool   []string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewLabeler(policy string, pool []string, rng *rand.Rand) *Labeler {
	if len(pool) == 0 {
		pool = DefaultLabelPool
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Labeler{
		policy: strings.TrimSpace(policy),
		pool:   append([]string(nil), pool...),
		rng:    rng,
	}
}

func (l *Labeler) Label(comments []string) []entity.Comment {
	out := make([]entity.Comment, 0, len(comments))
	for i, text := range comments {
		out = append(out, entity.Comment{Label: l.pick(i), Text: text})
	}
	return out
}

func (l *Labeler) pick(i int) string {
	switch l.policy {
	case LabelPolicyNone:
		return ""
	case LabelPolicyRoundRobin:
		return l.pool[i%len(l.pool)]
	default:
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.pool[l.rng.Intn(len(l.pool))]
	}
}

// FormatPTT 渲染为「标签 | 内容」的推文行
func FormatPTT(comments []entity.Comment) string {
	lines := make([]string, 0, len(comments))
	for _, c := range comments {
		if c.Label == "" {
			lines = append(lines, c.Text)
			continue
		}
		lines = append(lines, c.Label+" | "+c.Text)
	}
	return strings.Join(lines, "\n")
}
