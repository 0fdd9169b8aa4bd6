package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.Topics, 4)
	assert.Equal(t, []string{"[討論]", "[問題]", "[心得]", "[閒聊]", "[黑特]"}, c.Tags)

	topic, ok := c.Topic("injectables")
	require.True(t, ok)
	assert.Contains(t, topic.Keywords, "饅化")
	assert.NotEmpty(t, topic.Example)

	tones := c.SortedTones()
	require.Len(t, tones, 3)
	assert.Equal(t, []string{"mild", "lively", "inflammatory"}, []string{tones[0].Key, tones[1].Key, tones[2].Key})
	assert.NotEmpty(t, c.Fillers)
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
persona: 測試人格
topics:
  - key: t1
    name: 議題一
tones:
  - key: mild
    name: 溫和
    level: 1
tags: ["[閒聊]"]
`), 0o644))

	c, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "測試人格", c.Persona)
	assert.True(t, c.HasTag("[閒聊]"))
	assert.False(t, c.HasTag("[黑特]"))
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("persona: x\ntopics: []\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("persona: x\nunknown_field: 1\n"))
	assert.Error(t, err)

	_, err = Parse([]byte(`
persona: x
topics: [{key: a}, {key: a}]
tones: [{key: mild}]
tags: ["[討論]"]
`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
