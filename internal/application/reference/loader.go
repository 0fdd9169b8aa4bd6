// Package reference 读取参考资料（资料夹与手动上传），单个文件失败只跳过不中断
package reference

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"ptt-copy-ai/internal/domain/entity"
	wfnode "ptt-copy-ai/internal/workflow/node"
	apperrors "ptt-copy-ai/pkg/errors"
	"ptt-copy-ai/pkg/logger"
	"ptt-copy-ai/pkg/metrics"
)

var (
	errUnsupportedType = errors.New("unsupported file type")
	errLegacyExcel     = errors.New("legacy .xls workbook is not supported, save it as .xlsx")
	errTooLarge        = errors.New("file exceeds size limit")
	errNotUTF8         = errors.New("file is not valid UTF-8 text")
	errEmpty           = errors.New("file has no readable content")
)

const (
	statusLoaded  = "loaded"
	statusSkipped = "skipped"
)

type Options struct {
	Dir             string
	MaxFileBytes    int64
	MaxRows         int
	MaxRunesPerFile int
}

type Loader struct {
	opts Options
}

func NewLoader(opts Options) *Loader {
	return &Loader{opts: opts}
}

// Supported 判断扩展名是否可读取
func Supported(name string) bool {
	_, ok := kindOf(name)
	return ok
}

func kindOf(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return entity.ReferenceKindText, true
	case ".xlsx", ".csv":
		return entity.ReferenceKindSheet, true
	default:
		return "", false
	}
}

// unsupported 不可读文件的拒绝原因，旧版 .xls 单独说明
func unsupported(name string) error {
	if strings.EqualFold(filepath.Ext(name), ".xls") {
		return errLegacyExcel
	}
	return errUnsupportedType
}

// LoadFolder 按文件名顺序读取资料夹；目录不存在视为没有资料
func (l *Loader) LoadFolder(ctx context.Context) ([]entity.ReferenceDoc, []entity.SkippedReference) {
	dir := strings.TrimSpace(l.opts.Dir)
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug(ctx, "reference folder not found", "dir", dir)
		} else {
			logger.Warn(ctx, "failed to read reference folder", "dir", dir, "error", err.Error())
		}
		return nil, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		docs    []entity.ReferenceDoc
		skipped []entity.SkippedReference
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !Supported(e.Name()) {
			// 旧版 Excel 列入跳过清单，其余类型静默忽略
			if err := unsupported(e.Name()); errors.Is(err, errLegacyExcel) {
				skipped = append(skipped, l.skip(ctx, e.Name(), entity.ReferenceSourceFolder, err))
			}
			continue
		}
		doc, err := l.loadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			skipped = append(skipped, l.skip(ctx, e.Name(), entity.ReferenceSourceFolder, err))
			continue
		}
		metrics.ReferenceFilesTotal.WithLabelValues(entity.ReferenceSourceFolder, statusLoaded).Inc()
		docs = append(docs, doc)
	}
	if len(docs) > 0 || len(skipped) > 0 {
		logger.Info(ctx, "reference folder loaded", "dir", dir, "loaded", len(docs), "skipped", len(skipped))
	}
	return docs, skipped
}

func (l *Loader) loadFile(path string) (entity.ReferenceDoc, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entity.ReferenceDoc{}, err
	}
	if l.opts.MaxFileBytes > 0 && info.Size() > l.opts.MaxFileBytes {
		return entity.ReferenceDoc{}, errTooLarge
	}
	f, err := os.Open(path)
	if err != nil {
		return entity.ReferenceDoc{}, err
	}
	defer f.Close()
	return l.parse(filepath.Base(path), entity.ReferenceSourceFolder, f)
}

// LoadUpload 读取一个上传文件；失败时返回参考资料被拒错误，调用方记录后继续
func (l *Loader) LoadUpload(ctx context.Context, name string, r io.Reader) (entity.ReferenceDoc, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if _, ok := kindOf(name); !ok {
		reason := unsupported(name)
		l.skip(ctx, name, entity.ReferenceSourceUpload, reason)
		return entity.ReferenceDoc{}, apperrors.Wrap(reason, apperrors.CodeReferenceRejected, "reference file rejected").WithDetail(name)
	}
	if l.opts.MaxFileBytes > 0 {
		r = io.LimitReader(r, l.opts.MaxFileBytes+1)
	}
	data, err := io.ReadAll(r)
	if err == nil && l.opts.MaxFileBytes > 0 && int64(len(data)) > l.opts.MaxFileBytes {
		err = errTooLarge
	}
	var doc entity.ReferenceDoc
	if err == nil {
		doc, err = l.parse(name, entity.ReferenceSourceUpload, bytes.NewReader(data))
	}
	if err != nil {
		l.skip(ctx, name, entity.ReferenceSourceUpload, err)
		return entity.ReferenceDoc{}, apperrors.Wrap(err, apperrors.CodeReferenceRejected, "reference file rejected").WithDetail(name)
	}
	metrics.ReferenceFilesTotal.WithLabelValues(entity.ReferenceSourceUpload, statusLoaded).Inc()
	return doc, nil
}

func (l *Loader) skip(ctx context.Context, name, source string, err error) entity.SkippedReference {
	metrics.ReferenceFilesTotal.WithLabelValues(source, statusSkipped).Inc()
	logger.Warn(ctx, "reference file skipped", "file", name, "source", source, "error", err.Error())
	return entity.SkippedReference{Name: name, Source: source, Reason: err.Error()}
}

func (l *Loader) parse(name, source string, r io.Reader) (entity.ReferenceDoc, error) {
	kind, ok := kindOf(name)
	if !ok {
		return entity.ReferenceDoc{}, errUnsupportedType
	}

	var (
		content string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		content, err = l.readXLSX(r)
	case ".csv":
		content, err = l.readCSV(r)
	default:
		content, err = readText(r)
	}
	if err != nil {
		return entity.ReferenceDoc{}, err
	}
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return entity.ReferenceDoc{}, errEmpty
	}

	truncated := false
	if l.opts.MaxRunesPerFile > 0 {
		content, truncated = wfnode.HeadTruncate(content, l.opts.MaxRunesPerFile)
	}
	return entity.ReferenceDoc{
		Name:      name,
		Source:    source,
		Kind:      kind,
		Content:   content,
		Runes:     utf8.RuneCountInString(content),
		Truncated: truncated,
	}, nil
}

func readText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(b) {
		return "", errNotUTF8
	}
	return string(b), nil
}

// readXLSX 读取第一个工作表，每行以 tab 连接
func (l *Loader) readXLSX(r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", errEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return l.joinRows(rows), nil
}

func (l *Loader) readCSV(r io.Reader) (string, error) {
	text, err := readText(r)
	if err != nil {
		return "", err
	}
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	return l.joinRows(rows), nil
}

func (l *Loader) joinRows(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if l.opts.MaxRows > 0 && len(lines) >= l.opts.MaxRows {
			break
		}
		cells := make([]string, 0, len(row))
		empty := true
		for _, c := range row {
			c = strings.TrimSpace(c)
			if c != "" {
				empty = false
			}
			cells = append(cells, c)
		}
		if empty {
			continue
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, "\t"), "\t"))
	}
	return strings.Join(lines, "\n")
}

// Compose 按给定顺序拼接为 prompt 参考段落
func Compose(docs ...[]entity.ReferenceDoc) string {
	var parts []string
	for _, group := range docs {
		for _, d := range group {
			if strings.TrimSpace(d.Content) == "" {
				continue
			}
			parts = append(parts, d.Label()+"\n"+d.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
