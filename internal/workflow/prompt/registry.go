package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// 每个提示词由 templates/<id>.system.txt 与 templates/<id>.user.txt 组成
//
//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptTitleGenV1        PromptID = "title_gen_v1"
	PromptPostGenV1         PromptID = "post_gen_v1"
	PromptOpinionSummaryV1  PromptID = "opinion_summary_v1"
	PromptOpinionAnalysisV1 PromptID = "opinion_analysis_v1"
)

// IDs 内置提示词，顺序固定
func IDs() []PromptID {
	return []PromptID{PromptTitleGenV1, PromptPostGenV1, PromptOpinionSummaryV1, PromptOpinionAnalysisV1}
}

// Registry 首次使用时一次性加载全部内置模板
type Registry struct {
	once      sync.Once
	loadErr   error
	templates map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}
	r.once.Do(r.load)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	tpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	return tpl, nil
}

func (r *Registry) load() {
	r.templates = make(map[PromptID]einoprompt.ChatTemplate, len(IDs()))
	for _, id := range IDs() {
		system, err := readTemplate(id, "system")
		if err != nil {
			r.loadErr = err
			return
		}
		user, err := readTemplate(id, "user")
		if err != nil {
			r.loadErr = err
			return
		}
		r.templates[id] = einoprompt.FromMessages(
			schema.FString,
			schema.SystemMessage(system),
			schema.UserMessage(user),
		)
	}
}

func readTemplate(id PromptID, role string) (string, error) {
	b, err := templatesFS.ReadFile("templates/" + string(id) + "." + role + ".txt")
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", id, err)
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", fmt.Errorf("prompt %s: empty %s template", id, role)
	}
	return text, nil
}
