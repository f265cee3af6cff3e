package spreadsheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var userRoleColumns = []string{"用户名", "角色"}

func writeWorkbook(t *testing.T, name string, fill func(f *excelize.File, sheet string)) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	fill(f, sheet)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func set(t *testing.T, f *excelize.File, sheet, axis string, v any) {
	t.Helper()
	require.NoError(t, f.SetCellValue(sheet, axis, v))
}

func TestRead_SkipsHeaderAndAbsentRows(t *testing.T) {
	path := writeWorkbook(t, "users.xlsx", func(f *excelize.File, sheet string) {
		set(t, f, sheet, "A1", "用户名")
		set(t, f, sheet, "B1", "角色")
		set(t, f, sheet, "A2", "alice")
		set(t, f, sheet, "B2", "admin")
		// row 3 absent
		set(t, f, sheet, "A4", "bob")
		set(t, f, sheet, "B4", "viewer")
	})

	records, err := Read(path, Options{Format: FormatXLSX, Columns: userRoleColumns, StartRow: 1})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 1, records[0].Row())
	assert.Equal(t, "alice", records[0].Value("用户名"))
	assert.Equal(t, "admin", records[0].Value("角色"))
	assert.Equal(t, 3, records[1].Row())
	assert.Equal(t, "bob", records[1].Value("用户名"))
	assert.Equal(t, userRoleColumns, records[1].Labels())
}

func TestRead_NormalizesCellKinds(t *testing.T) {
	path := writeWorkbook(t, "kinds.xlsx", func(f *excelize.File, sheet string) {
		set(t, f, sheet, "A1", "header")
		set(t, f, sheet, "A2", 1500.0)
		set(t, f, sheet, "B2", " al ice\t\n")
		set(t, f, sheet, "C2", true)
		set(t, f, sheet, "A3", "x")
		require.NoError(t, f.SetCellFormula(sheet, "B3", "SUM(A2:A2)"))
		set(t, f, sheet, "C3", "tail")
		set(t, f, sheet, "A4", 2.5)
	})

	cols := []string{"a", "b", "c"}
	records, err := Read(path, Options{Format: FormatXLSX, Columns: cols, StartRow: 1})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "1500", records[0].Value("a"))
	assert.Equal(t, "alice", records[0].Value("b"))
	assert.Equal(t, "true", records[0].Value("c"))

	assert.Equal(t, "x", records[1].Value("a"))
	assert.Equal(t, "SUM(A2:A2)", records[1].Value("b"))
	assert.Equal(t, "tail", records[1].Value("c"))

	// "0" pattern rounds half-even
	assert.Equal(t, "2", records[2].Value("a"))
	v, ok := records[2].Get("c")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestRead_KeepsRowsWithEmptyValues(t *testing.T) {
	path := writeWorkbook(t, "blanks.xlsx", func(f *excelize.File, sheet string) {
		set(t, f, sheet, "A1", "用户名")
		set(t, f, sheet, "A2", "alice")
		require.NoError(t, f.SetCellStr(sheet, "A3", ""))
		set(t, f, sheet, "A4", "bob")
		require.NoError(t, f.SetCellStr(sheet, "A5", ""))
	})

	records, err := Read(path, Options{Format: FormatXLSX, Columns: []string{"用户名"}, StartRow: 1})
	require.NoError(t, err)
	require.Len(t, records, 4)

	rows := make([]int, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	assert.Equal(t, []int{1, 2, 3, 4}, rows)
	assert.Equal(t, "", records[1].Value("用户名"))
	assert.Equal(t, "bob", records[2].Value("用户名"))
	assert.Equal(t, "", records[3].Value("用户名"))
}

func TestRead_XLS(t *testing.T) {
	const fixture = "testdata/roles.xls"

	check := func(t *testing.T, records []Record) {
		t.Helper()
		require.Len(t, records, 3)

		// row 2 has no record in the sheet
		assert.Equal(t, 1, records[0].Row())
		assert.Equal(t, "alice", records[0].Value("用户名"))
		assert.Equal(t, "admin", records[0].Value("角色"))
		assert.Equal(t, 3, records[1].Row())
		assert.Equal(t, "bob", records[1].Value("用户名"))
		assert.Equal(t, "viewer", records[1].Value("角色"))
		assert.Equal(t, 4, records[2].Row())
		assert.Equal(t, "1500", records[2].Value("用户名"))
		assert.Equal(t, "2", records[2].Value("角色"))
	}

	t.Run("forced", func(t *testing.T) {
		records, err := Read(fixture, Options{Format: FormatXLS, Columns: userRoleColumns, StartRow: 1})
		require.NoError(t, err)
		check(t, records)
	})

	t.Run("auto detect", func(t *testing.T) {
		data, err := os.ReadFile(fixture)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "upload.bin")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		records, err := Read(path, Options{Format: FormatAuto, Columns: userRoleColumns, StartRow: 1})
		require.NoError(t, err)
		check(t, records)
	})

	t.Run("by name", func(t *testing.T) {
		records, err := Read(fixture, Options{Format: FormatXLS, Sheet: SheetByName("Users"), Columns: userRoleColumns, StartRow: 1})
		require.NoError(t, err)
		check(t, records)
	})

	t.Run("header", func(t *testing.T) {
		header, err := ReadHeader(fixture, FormatXLS, SheetSelector{}, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"用户名", "角色"}, header)
	})

	t.Run("formula cell", func(t *testing.T) {
		_, err := Read(fixture, Options{Format: FormatXLS, Sheet: SheetByName("Formulas"), Columns: userRoleColumns, StartRow: 1})
		var pe *ParseError
		require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
		assert.Equal(t, FormatXLS, pe.Format)
		assert.Contains(t, pe.Error(), "row 1 column 1")
		assert.Contains(t, pe.Error(), "formula")
	})

	t.Run("formula outside declared columns", func(t *testing.T) {
		records, err := Read(fixture, Options{Format: FormatXLS, Sheet: SheetAt(1), Columns: []string{"用户名"}, StartRow: 1})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "alice", records[0].Value("用户名"))
	})
}

func TestRead_SelectsSheetByNameAndIndex(t *testing.T) {
	path := writeWorkbook(t, "sheets.xlsx", func(f *excelize.File, sheet string) {
		set(t, f, sheet, "A2", "first")
		_, err := f.NewSheet("Second")
		require.NoError(t, err)
		set(t, f, "Second", "A2", "second")
	})

	byName, err := Read(path, Options{Format: FormatXLSX, Sheet: SheetByName("Second"), Columns: []string{"v"}, StartRow: 1})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "second", byName[0].Value("v"))

	byIndex, err := Read(path, Options{Format: FormatXLSX, Sheet: SheetAt(1), Columns: []string{"v"}, StartRow: 1})
	require.NoError(t, err)
	require.Len(t, byIndex, 1)
	assert.Equal(t, "second", byIndex[0].Value("v"))

	first, err := Read(path, Options{Format: FormatXLSX, Columns: []string{"v"}, StartRow: 1})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "first", first[0].Value("v"))

	_, err = Read(path, Options{Format: FormatXLSX, Sheet: SheetByName("Missing"), Columns: []string{"v"}})
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
	assert.Equal(t, FormatXLSX, pe.Format)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.xlsx"), Options{Columns: userRoleColumns})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestRead_RequiresColumns(t *testing.T) {
	_, err := Read("whatever.xlsx", Options{})
	assert.True(t, errors.Is(err, ErrNoColumns))
}

func TestRead_AutoDetectFallsBackToXLSX(t *testing.T) {
	path := writeWorkbook(t, "upload.bin", func(f *excelize.File, sheet string) {
		set(t, f, sheet, "A2", "alice")
		set(t, f, sheet, "B2", "admin")
	})

	records, err := Read(path, Options{Format: ParseFormat(filepath.Ext(path)), Columns: userRoleColumns, StartRow: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Value("用户名"))
}

func TestRead_GarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.txt")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a workbook\n"), 0o644))

	_, err := Read(path, Options{Format: FormatAuto, Columns: userRoleColumns})
	var de *DetectError
	require.True(t, errors.As(err, &de), "expected DetectError, got %v", err)
	require.Len(t, de.Attempts, 2)
	assert.Equal(t, FormatXLS, de.Attempts[0].Format)
	assert.Equal(t, FormatXLSX, de.Attempts[1].Format)
	assert.Contains(t, de.ContentType, "text/plain")

	_, err = Read(path, Options{Format: FormatXLSX, Columns: userRoleColumns})
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
	assert.Equal(t, FormatXLSX, pe.Format)
}

func TestReadHeader(t *testing.T) {
	path := writeWorkbook(t, "header.xlsx", func(f *excelize.File, sheet string) {
		set(t, f, sheet, "A1", "用户名")
		set(t, f, sheet, "B1", "角 色")
		set(t, f, sheet, "A2", "alice")
	})

	header, err := ReadHeader(path, FormatXLSX, SheetSelector{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"用户名", "角色"}, header)
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatXLS, ParseFormat(".XLS"))
	assert.Equal(t, FormatXLSX, ParseFormat("xlsx"))
	assert.Equal(t, FormatAuto, ParseFormat(""))
	assert.Equal(t, FormatAuto, ParseFormat(".csv"))
}
