package entity

import "time"

// 候选列表来源
const (
	CandidateSourceLive   = "live"
	CandidateSourceStatic = "static"
)

// ModelCandidate 候选模型
type ModelCandidate struct {
	Name string `json:"name"`
	// Rank 越小越优先
	Rank int `json:"rank"`
	// Available 仅在已探测时有值
	Available *bool  `json:"available,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Resolution 一次模型解析的结果
type Resolution struct {
	Provider   string           `json:"provider"`
	Model      string           `json:"model"`
	Source     string           `json:"source"`
	Candidates []ModelCandidate `json:"candidates"`
	ResolvedAt time.Time        `json:"resolved_at"`
}
