package spreadsheet

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
)

type Format string

const (
	FormatAuto Format = "auto"
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps an extension or hint to a Format. Anything unrecognized,
// including "", is FormatAuto.
func ParseFormat(v string) Format {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), ".") {
	case "xls":
		return FormatXLS
	case "xlsx":
		return FormatXLSX
	default:
		return FormatAuto
	}
}

// SheetSelector picks a sheet by name or zero-based index. The zero value
// selects the first sheet.
type SheetSelector struct {
	Name  string
	Index int
}

func SheetByName(name string) SheetSelector { return SheetSelector{Name: name} }

func SheetAt(index int) SheetSelector { return SheetSelector{Index: index} }

func (s SheetSelector) String() string {
	if s.Name != "" {
		return fmt.Sprintf("%q", s.Name)
	}
	return fmt.Sprintf("#%d", s.Index)
}

type Options struct {
	Format  Format
	Sheet   SheetSelector
	Columns []string
	// StartRow is the zero-based index of the first data row; row 0 is
	// conventionally the header.
	StartRow int
}

// rowSource is what a format parser hands back: rows addressed by
// zero-based index, nil for rows that are absent from the sheet.
type rowSource interface {
	lastRow() int
	row(i int) []cell
}

type parser struct {
	format Format
	open   func(path string, opts Options) (rowSource, error)
}

// candidates is the auto-detection order: legacy binary first, then OOXML.
var candidates = []parser{
	{format: FormatXLS, open: openXLS},
	{format: FormatXLSX, open: openXLSX},
}

func parserFor(f Format) (parser, bool) {
	for _, p := range candidates {
		if p.format == f {
			return p, true
		}
	}
	return parser{}, false
}

// Read decodes the selected sheet of the workbook at path into records, one
// per present row from opts.StartRow through the last populated row.
func Read(path string, opts Options) ([]Record, error) {
	if len(opts.Columns) == 0 {
		return nil, ErrNoColumns
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	if p, ok := parserFor(opts.Format); ok {
		return readWith(p, path, opts)
	}

	detectErr := &DetectError{Path: path}
	for _, p := range candidates {
		records, err := readWith(p, path, opts)
		if err == nil {
			return records, nil
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			pe = &ParseError{Format: p.format, Path: path, Err: err}
		}
		detectErr.Attempts = append(detectErr.Attempts, pe)
	}
	if mt, err := mimetype.DetectFile(path); err == nil {
		detectErr.ContentType = mt.String()
	}
	return nil, detectErr
}

func readWith(p parser, path string, opts Options) (records []Record, err error) {
	defer func() {
		// the BIFF decoder panics on some truncated streams
		if r := recover(); r != nil {
			records = nil
			err = &ParseError{Format: p.format, Path: path, Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	src, err := p.open(path, opts)
	if err != nil {
		return nil, &ParseError{Format: p.format, Path: path, Err: err}
	}
	records, err = collect(src, opts)
	if err != nil {
		return nil, &ParseError{Format: p.format, Path: path, Err: err}
	}
	return records, nil
}

func collect(src rowSource, opts Options) ([]Record, error) {
	start := opts.StartRow
	if start < 0 {
		start = 0
	}
	var records []Record
	last := src.lastRow()
	for i := start; i <= last; i++ {
		cells := src.row(i)
		if cells == nil {
			continue
		}
		values := make(map[string]string, len(opts.Columns))
		for j, label := range opts.Columns {
			if j >= len(cells) {
				values[label] = ""
				continue
			}
			if cells[j].kind == cellUnreadable {
				return nil, fmt.Errorf("row %d column %d: %s", i, j, cells[j].raw)
			}
			values[label] = cells[j].text()
		}
		records = append(records, NewRecord(i, opts.Columns, values))
	}
	return records, nil
}

// ReadHeader returns the normalized text of row 0 for the selected sheet.
func ReadHeader(path string, format Format, sheet SheetSelector, width int) ([]string, error) {
	labels := make([]string, width)
	for i := range labels {
		labels[i] = fmt.Sprintf("c%d", i)
	}
	records, err := Read(path, Options{Format: format, Sheet: sheet, Columns: labels, StartRow: 0})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0].Row() != 0 {
		return nil, nil
	}
	out := make([]string, width)
	for i, l := range labels {
		out[i] = records[0].Value(l)
	}
	return out, nil
}
