package reference

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ptt-copy-ai/internal/domain/entity"
	apperrors "ptt-copy-ai/pkg/errors"
)

func writeXLSX(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestLoadFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_notes.txt"), []byte("\xef\xbb\xbf某診所電波一發三萬"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c_bad.txt"), []byte{0xff, 0xfe, 0xfd}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d_clinics.csv"), []byte("診所,評價\nA,推銷很兇\n,\nB,還行\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "e_ignored.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeXLSX(t, filepath.Join(dir, "a_prices.xlsx"), [][]any{
		{"項目", "價格"},
		{"玻尿酸", 12000},
		{"肉毒", 6000},
	})

	l := NewLoader(Options{Dir: dir, MaxFileBytes: 1 << 20, MaxRows: 2, MaxRunesPerFile: 100})
	docs, skipped := l.LoadFolder(context.Background())

	require.Len(t, docs, 3)
	assert.Equal(t, "a_prices.xlsx", docs[0].Name)
	assert.Equal(t, entity.ReferenceKindSheet, docs[0].Kind)
	assert.Equal(t, "項目\t價格\n玻尿酸\t12000", docs[0].Content)

	assert.Equal(t, "b_notes.txt", docs[1].Name)
	assert.Equal(t, "某診所電波一發三萬", docs[1].Content)

	assert.Equal(t, "d_clinics.csv", docs[2].Name)
	assert.Equal(t, "診所\t評價\nA\t推銷很兇", docs[2].Content)

	require.Len(t, skipped, 1)
	assert.Equal(t, "c_bad.txt", skipped[0].Name)
	assert.Equal(t, entity.ReferenceSourceFolder, skipped[0].Source)
}

func TestLoadFolderMissingDir(t *testing.T) {
	l := NewLoader(Options{Dir: filepath.Join(t.TempDir(), "missing")})
	docs, skipped := l.LoadFolder(context.Background())
	assert.Empty(t, docs)
	assert.Empty(t, skipped)
}

func TestLoadFolderSkipsOversizedAndTruncates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), []byte(strings.Repeat("a", 200)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "long.txt"), []byte(strings.Repeat("診", 50)), 0o644))

	l := NewLoader(Options{Dir: dir, MaxFileBytes: 160, MaxRunesPerFile: 10})
	docs, skipped := l.LoadFolder(context.Background())

	require.Len(t, docs, 1)
	assert.True(t, docs[0].Truncated)
	assert.Equal(t, 10, docs[0].Runes)
	require.Len(t, skipped, 1)
	assert.Equal(t, "big.txt", skipped[0].Name)
}

func TestLoadUpload(t *testing.T) {
	l := NewLoader(Options{MaxFileBytes: 64})

	doc, err := l.LoadUpload(context.Background(), "../notes.md", strings.NewReader("踩雷心得"))
	require.NoError(t, err)
	assert.Equal(t, "notes.md", doc.Name)
	assert.Equal(t, entity.ReferenceSourceUpload, doc.Source)
	assert.Equal(t, "[上傳檔案: notes.md]", doc.Label())

	_, err = l.LoadUpload(context.Background(), "x.exe", strings.NewReader("MZ"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeReferenceRejected))

	_, err = l.LoadUpload(context.Background(), "big.txt", bytes.NewReader(bytes.Repeat([]byte("a"), 65)))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeReferenceRejected))

	_, err = l.LoadUpload(context.Background(), "broken.xlsx", strings.NewReader("not a zip"))
	require.Error(t, err)
}

func TestLegacyExcelRejectedWithReason(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old_prices.xls"), []byte{0xd0, 0xcf, 0x11, 0xe0}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("電波心得"), 0o644))

	l := NewLoader(Options{Dir: dir, MaxFileBytes: 1 << 20})
	docs, skipped := l.LoadFolder(context.Background())
	require.Len(t, docs, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, "old_prices.xls", skipped[0].Name)
	assert.Contains(t, skipped[0].Reason, ".xlsx")

	_, err := l.LoadUpload(context.Background(), "OLD.XLS", bytes.NewReader([]byte{0xd0, 0xcf}))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeReferenceRejected))
	assert.Contains(t, err.Error(), ".xls workbook is not supported")
}

func TestCompose(t *testing.T) {
	folder := []entity.ReferenceDoc{{Name: "a.txt", Source: entity.ReferenceSourceFolder, Kind: entity.ReferenceKindText, Content: "甲"}}
	uploads := []entity.ReferenceDoc{
		{Name: "b.xlsx", Source: entity.ReferenceSourceUpload, Kind: entity.ReferenceKindSheet, Content: "乙"},
		{Name: "empty.txt", Source: entity.ReferenceSourceUpload, Kind: entity.ReferenceKindText},
	}
	assert.Equal(t, "[資料夾檔案: a.txt]\n甲\n\n[上傳 Excel: b.xlsx]\n乙", Compose(folder, uploads))
	assert.Empty(t, Compose())
}
