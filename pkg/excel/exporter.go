package excel

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"
)

// maxSheetNameLength is the Excel limit on sheet names.
const maxSheetNameLength = 31

type ExportOptions struct {
	IncludeHeaders bool
	FreezeHeader   bool
	AutoFilter     bool
	// MaxRows caps the data rows written; 0 means unlimited.
	MaxRows int
}

type StyleOptions struct {
	HeaderBold     bool
	AutoFitColumns bool
	MinColumnWidth float64
	MaxColumnWidth float64
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{IncludeHeaders: true, FreezeHeader: true}
}

func DefaultStyleOptions() StyleOptions {
	return StyleOptions{HeaderBold: true, AutoFitColumns: true, MinColumnWidth: 8, MaxColumnWidth: 80}
}

// ExcelExporter renders a DataSource as an .xlsx workbook.
type ExcelExporter struct {
	opts  ExportOptions
	style StyleOptions
}

func NewExcelExporter(opts ExportOptions, style StyleOptions) *ExcelExporter {
	return &ExcelExporter{opts: opts, style: style}
}

// Export builds a single-sheet workbook. Every value is written as a string
// cell so codes such as "007" survive a round trip.
func (e *ExcelExporter) Export(ctx context.Context, ds DataSource) ([]byte, error) {
	headers := ds.Headers()
	rows, err := ds.Rows(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load rows")
	}
	if e.opts.MaxRows > 0 && len(rows) > e.opts.MaxRows {
		rows = rows[:e.opts.MaxRows]
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(ds.SheetName())
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, errors.Wrap(err, "name sheet")
	}

	widths := make([]int, len(headers))
	rowNum := 1
	if e.opts.IncludeHeaders && len(headers) > 0 {
		if err := e.writeRow(f, sheet, rowNum, headers, widths); err != nil {
			return nil, err
		}
		if err := e.styleHeader(f, sheet, len(headers)); err != nil {
			return nil, err
		}
		rowNum++
	}
	for _, row := range rows {
		if err := e.writeRow(f, sheet, rowNum, pad(row, len(headers)), widths); err != nil {
			return nil, err
		}
		rowNum++
	}

	if e.opts.AutoFilter && e.opts.IncludeHeaders && len(headers) > 0 {
		if err := e.autoFilter(f, sheet, len(headers), rowNum-1); err != nil {
			return nil, err
		}
	}
	if e.style.AutoFitColumns {
		if err := e.fitColumns(f, sheet, widths); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "serialize workbook")
	}
	return buf.Bytes(), nil
}

func (e *ExcelExporter) writeRow(f *excelize.File, sheet string, rowNum int, values []string, widths []int) error {
	for i, v := range values {
		axis, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, axis, v); err != nil {
			return errors.Wrapf(err, "set %s", axis)
		}
		if i < len(widths) {
			widths[i] = max(widths[i], displayWidth(v))
		}
	}
	return nil
}

func (e *ExcelExporter) styleHeader(f *excelize.File, sheet string, cols int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if e.style.HeaderBold {
		id, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return errors.Wrap(err, "header style")
		}
		if err := f.SetCellStyle(sheet, "A1", last, id); err != nil {
			return errors.Wrap(err, "apply header style")
		}
	}
	if e.opts.FreezeHeader {
		err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
		if err != nil {
			return errors.Wrap(err, "freeze header")
		}
	}
	return nil
}

// autoFilter covers the header and every written data row.
func (e *ExcelExporter) autoFilter(f *excelize.File, sheet string, cols, lastRow int) error {
	last, err := excelize.CoordinatesToCellName(cols, lastRow)
	if err != nil {
		return err
	}
	if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
		return errors.Wrap(err, "auto filter")
	}
	return nil
}

func (e *ExcelExporter) fitColumns(f *excelize.File, sheet string, widths []int) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		size := float64(w) + 2
		if e.style.MinColumnWidth > 0 && size < e.style.MinColumnWidth {
			size = e.style.MinColumnWidth
		}
		if e.style.MaxColumnWidth > 0 && size > e.style.MaxColumnWidth {
			size = e.style.MaxColumnWidth
		}
		if err := f.SetColWidth(sheet, col, col, size); err != nil {
			return errors.Wrapf(err, "width %s", col)
		}
	}
	return nil
}

// displayWidth counts East Asian wide and fullwidth runes as two columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func sheetName(name string) string {
	if name == "" {
		return defaultSheetName
	}
	if utf8.RuneCountInString(name) > maxSheetNameLength {
		return string([]rune(name)[:maxSheetNameLength])
	}
	return name
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

// WriteError reports a report file that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriteFile creates path or truncates an existing file and writes data.
func WriteFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
