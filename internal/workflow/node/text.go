// Package node 提供工作流节点共用的文本与错误工具
package node

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var blankRun = regexp.MustCompile(`\n{3,}`)

// TruncateByRunes 保留前 maxRunes 个字符
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// HeadTruncate 截断并报告是否发生截断
func HeadTruncate(s string, maxRunes int) (string, bool) {
	out := TruncateByRunes(s, maxRunes)
	return out, len(out) != len(s)
}

// RuneLen 字符数
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// CollapseBlankLines 统一换行并将连续空行压缩为一个
func CollapseBlankLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(blankRun.ReplaceAllString(s, "\n\n"))
}
