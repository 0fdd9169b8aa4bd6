package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTitleNotOffered 选择的标题不在当前候选中
	ErrTitleNotOffered = errors.New("title is not one of the current candidates")
	// ErrNoSelection 尚未选择标题
	ErrNoSelection = errors.New("no title selected")
)

// GenerationParams 标题与内文生成共用的用户选择
type GenerationParams struct {
	Tag      string `json:"tag"`
	TopicKey string `json:"topic_key"`
	ToneKey  string `json:"tone_key"`
	// CoreText 用户贴上的参考原文，可为空
	CoreText string `json:"core_text,omitempty"`
}

// Session 单次使用会话内的最小状态
//
// 状态转移：
//   - SetTitles 整体替换候选标题，并清空已选标题与结果
//   - Select 清空上一次的生成结果
//   - SetResult 只在已选标题时允许
type Session struct {
	ID        string            `json:"id"`
	Params    GenerationParams  `json:"params"`
	Titles    []string          `json:"titles"`
	Selected  string            `json:"selected,omitempty"`
	Result    *GenerationResult `json:"result,omitempty"`
	Uploads   []ReferenceDoc    `json:"uploads"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewSession 创建空会话
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		Titles:    []string{},
		Uploads:   []ReferenceDoc{},
		UpdatedAt: time.Now(),
	}
}

// SetTitles 替换候选标题
func (s *Session) SetTitles(params GenerationParams, titles []string) {
	s.Params = params
	s.Titles = append([]string(nil), titles...)
	s.Selected = ""
	s.Result = nil
	s.touch()
}

// Select 选择一个候选标题
func (s *Session) Select(title string) error {
	for _, t := range s.Titles {
		if t == title {
			s.Selected = title
			s.Result = nil
			s.touch()
			return nil
		}
	}
	return ErrTitleNotOffered
}

// SetResult 保存生成结果，标题需与当前选择一致
func (s *Session) SetResult(result *GenerationResult) error {
	if s.Selected == "" {
		return ErrNoSelection
	}
	if result != nil && result.Title != s.Selected {
		return ErrTitleNotOffered
	}
	s.Result = result
	s.touch()
	return nil
}

// AddUploads 追加手动上传的参考资料
func (s *Session) AddUploads(docs ...ReferenceDoc) {
	s.Uploads = append(s.Uploads, docs...)
	s.touch()
}

// ClearUploads 清空手动上传的参考资料
func (s *Session) ClearUploads() {
	s.Uploads = []ReferenceDoc{}
	s.touch()
}

// Reset 清空所有状态，保留会话 ID
func (s *Session) Reset() {
	s.Params = GenerationParams{}
	s.Titles = []string{}
	s.Selected = ""
	s.Result = nil
	s.Uploads = []ReferenceDoc{}
	s.touch()
}

// Snapshot 返回深拷贝，供并发读取
func (s *Session) Snapshot() Session {
	out := *s
	out.Titles = append([]string(nil), s.Titles...)
	out.Uploads = append([]ReferenceDoc(nil), s.Uploads...)
	if s.Result != nil {
		r := *s.Result
		r.Comments = append([]Comment(nil), s.Result.Comments...)
		r.Skipped = append([]SkippedReference(nil), s.Result.Skipped...)
		out.Result = &r
	}
	return out
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}
