// Package entity 定义领域实体
package entity

import (
	"fmt"
	"sort"
	"strings"
)

// Topic 议题分类
type Topic struct {
	Key      string   `json:"key" yaml:"key"`
	Name     string   `json:"name" yaml:"name"`
	Context  string   `json:"context" yaml:"context"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Example  string   `json:"example" yaml:"example"`
}

// Tone 语气强度，Level 越大越激进
type Tone struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	Level       int    `json:"level" yaml:"level"`
	Instruction string `json:"instruction" yaml:"instruction"`
}

// Catalog 文案生成所需的静态内容表
type Catalog struct {
	Persona     string   `json:"persona" yaml:"persona"`
	PostPersona string   `json:"post_persona" yaml:"post_persona"`
	Fillers     []string `json:"fillers" yaml:"fillers"`
	Topics      []Topic  `json:"topics" yaml:"topics"`
	Tones       []Tone   `json:"tones" yaml:"tones"`
	Tags        []string `json:"tags" yaml:"tags"`
}

// Topic 按 key 查找议题
func (c *Catalog) Topic(key string) (Topic, bool) {
	for _, t := range c.Topics {
		if t.Key == key {
			return t, true
		}
	}
	return Topic{}, false
}

// Tone 按 key 查找语气
func (c *Catalog) Tone(key string) (Tone, bool) {
	for _, t := range c.Tones {
		if t.Key == key {
			return t, true
		}
	}
	return Tone{}, false
}

// HasTag 检查标签是否存在
func (c *Catalog) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SortedTones 按 Level 升序返回语气
func (c *Catalog) SortedTones() []Tone {
	out := append([]Tone(nil), c.Tones...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// Validate 校验内容表完整性
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.Persona) == "" {
		return fmt.Errorf("catalog persona is empty")
	}
	if len(c.Topics) == 0 || len(c.Tones) == 0 || len(c.Tags) == 0 {
		return fmt.Errorf("catalog needs at least one topic, tone and tag")
	}
	seen := make(map[string]struct{}, len(c.Topics))
	for _, t := range c.Topics {
		if strings.TrimSpace(t.Key) == "" {
			return fmt.Errorf("catalog topic without key")
		}
		if _, dup := seen[t.Key]; dup {
			return fmt.Errorf("duplicate topic key %q", t.Key)
		}
		seen[t.Key] = struct{}{}
	}
	seen = make(map[string]struct{}, len(c.Tones))
	for _, t := range c.Tones {
		if strings.TrimSpace(t.Key) == "" {
			return fmt.Errorf("catalog tone without key")
		}
		if _, dup := seen[t.Key]; dup {
			return fmt.Errorf("duplicate tone key %q", t.Key)
		}
		seen[t.Key] = struct{}{}
	}
	return nil
}
