// Package catalog 加载议题、语气与标签内容表
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ptt-copy-ai/internal/domain/entity"
	"ptt-copy-ai/pkg/logger"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Default 返回内置内容表
func Default() (*entity.Catalog, error) {
	return Parse(defaultCatalog)
}

// Load path 为空时使用内置内容表，否则读取同结构的 YAML 文件
func Load(ctx context.Context, path string) (*entity.Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	logger.Info(ctx, "catalog loaded", "path", path, "topics", len(c.Topics), "tones", len(c.Tones))
	return c, nil
}

func Parse(data []byte) (*entity.Catalog, error) {
	var c entity.Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
