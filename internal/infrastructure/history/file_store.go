// Package history 读取历史标题黑名单文件
package history

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"ptt-copy-ai/internal/domain/repository"
	"ptt-copy-ai/pkg/logger"
)

var _ repository.HeadlineBlacklist = (*FileStore)(nil)

// leadingTag 行首的 [標籤]
var leadingTag = regexp.MustCompile(`^\[[^\]]*\]\s*`)

// FileStore 启动时读取一次的只读黑名单
//
// 文件格式：每行一条，去除首尾空白后以 "[" 开头的行才是条目，其余行忽略。
type FileStore struct {
	entries map[string]struct{}
	count   int
}

// Open 读取黑名单文件；文件不存在视为空集合
func Open(ctx context.Context, path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return newStore(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info(ctx, "headline history file not found, starting with empty blacklist", "path", path)
			return newStore(), nil
		}
		return nil, err
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "headline history loaded", "path", path, "entries", s.Len())
	return s, nil
}

// Parse 解析黑名单内容
func Parse(r io.Reader) (*FileStore, error) {
	s := newStore()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "[") {
			continue
		}
		s.count++
		s.entries[line] = struct{}{}
		// 同时以不含标签的标题建立索引
		if bare := strings.TrimSpace(leadingTag.ReplaceAllString(line, "")); bare != "" && bare != line {
			s.entries[bare] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore() *FileStore {
	return &FileStore{entries: make(map[string]struct{})}
}

func (s *FileStore) Contains(headline string) bool {
	if s == nil {
		return false
	}
	_, ok := s.entries[strings.TrimSpace(headline)]
	return ok
}

// Len 文件中的条目数
func (s *FileStore) Len() int {
	if s == nil {
		return 0
	}
	return s.count
}
