package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "", TruncateByRunes("abc", 0))
	assert.Equal(t, "abc", TruncateByRunes("abc", 5))
	assert.Equal(t, "玻尿", TruncateByRunes("玻尿酸", 2))
}

func TestHeadTruncate(t *testing.T) {
	out, truncated := HeadTruncate("饅化臉", 2)
	assert.Equal(t, "饅化", out)
	assert.True(t, truncated)

	out, truncated = HeadTruncate("饅化", 2)
	assert.Equal(t, "饅化", out)
	assert.False(t, truncated)
}

func TestCollapseBlankLines(t *testing.T) {
	assert.Equal(t, "a\n\nb", CollapseBlankLines("a\r\n\r\n\r\n\r\nb\n"))
	assert.Equal(t, "a\nb", CollapseBlankLines("  a\nb  "))
}
