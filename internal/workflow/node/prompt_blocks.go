package node

import (
	"strings"
)

const referenceHeader = "【參考資料】"

// BuildReferenceBlock 将参考资料折成 prompt 段落。
// 资料为空时返回空串，整段省略；超过 maxRunes 时保留开头部分。
// maxRunes <= 0 表示不限制。
func BuildReferenceBlock(refs string, maxRunes int) (block string, truncated bool, runes int) {
	refs = strings.TrimSpace(refs)
	if refs == "" {
		return "", false, 0
	}
	if maxRunes > 0 {
		refs, truncated = HeadTruncate(refs, maxRunes)
		refs = strings.TrimSpace(refs)
	}
	return referenceHeader + "\n" + refs, truncated, RuneLen(refs)
}

// ReferenceRule 根据是否附带资料给出引用要求
func ReferenceRule(hasReferences bool) string {
	if hasReferences {
		return "請參考【參考資料】中的具體診所、數據或案例細節，寫得像親身經歷。"
	}
	return "內容要具體，像真實網友的發文。"
}

// JoinTerms 以顿号连接非空词
func JoinTerms(terms []string) string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "、")
}
