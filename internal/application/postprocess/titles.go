package postprocess

import (
	"regexp"
	"strings"
)

var (
	titleNumbering = regexp.MustCompile(`^(?:\d+[\.\)、:：]|[-*•・>]|標題\s*\d*\s*[:：])\s*`)
	titleQuotes    = "「」『』\"'“”"
)

// Titles 逐行解析候选标题：去编号、去引号、去空行与重复，按原顺序最多保留 max 个
func Titles(raw string, max int) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		t := strings.TrimSpace(line)
		for {
			next := strings.TrimSpace(titleNumbering.ReplaceAllString(t, ""))
			if next == t {
				break
			}
			t = next
		}
		t = strings.TrimSpace(strings.Trim(t, titleQuotes))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
