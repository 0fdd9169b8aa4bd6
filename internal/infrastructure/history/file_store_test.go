package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	content := strings.Join([]string{
		"# 已用過的標題",
		"[討論] 玻尿酸饅化到底誰在買單",
		"  [黑特] 諮詢師話術大全  ",
		"沒有標籤的行會被忽略",
		"",
		"[心得]",
	}, "\n")

	s, err := Parse(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	assert.True(t, s.Contains("[討論] 玻尿酸饅化到底誰在買單"))
	assert.True(t, s.Contains("玻尿酸饅化到底誰在買單"))
	assert.True(t, s.Contains("[黑特] 諮詢師話術大全"))
	assert.True(t, s.Contains("[心得]"))

	assert.False(t, s.Contains("沒有標籤的行會被忽略"))
	assert.False(t, s.Contains("玻尿酸饅化"))
	assert.False(t, s.Contains(""))
}

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.txt"))
	require.NoError(t, err)
	assert.Zero(t, s.Len())
	assert.False(t, s.Contains("[討論] x"))
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")
	require.NoError(t, os.WriteFile(path, []byte("[問題] 電波打心安的？\r\n"), 0o644))

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains("電波打心安的？"))
}
