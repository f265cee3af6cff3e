package spreadsheet

import (
	"fmt"
	"os"

	"github.com/extrame/xls"
)

// formulaPlaceholder is what the BIFF decoder renders for every FORMULA
// record in place of the cached result.
const formulaPlaceholder = "FormulaCol"

type xlsSheet struct {
	rows    map[int][]cell
	maxRow  int
	present bool
}

func (s *xlsSheet) lastRow() int {
	if !s.present {
		return -1
	}
	return s.maxRow
}

func (s *xlsSheet) row(i int) []cell { return s.rows[i] }

func openXLS(path string, opts Options) (rowSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, fmt.Errorf("no workbook stream")
	}

	sheet, err := resolveXLSSheet(wb, opts.Sheet)
	if err != nil {
		return nil, err
	}

	out := &xlsSheet{rows: map[int][]cell{}, maxRow: int(sheet.MaxRow)}
	for i := 0; i <= out.maxRow; i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			continue
		}
		out.present = true
		// ROW records are optional; without one LastCol is 0
		last := max(row.LastCol(), len(opts.Columns)-1)
		cells := make([]cell, 0, last+1)
		for j := 0; j <= last; j++ {
			cells = append(cells, xlsCell(row.Col(j)))
		}
		out.rows[i] = cells
	}
	return out, nil
}

// xlsRow returns nil for rows that have no record in the sheet.
// WorkSheet.Row dereferences the missing entry and panics in that case.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if r := recover(); r != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// xlsCell classifies a rendered BIFF value. The decoder only exposes
// formatted text, so float renderings are treated as numeric cells.
func xlsCell(v string) cell {
	switch {
	case v == "":
		return cell{kind: cellEmpty}
	case v == formulaPlaceholder:
		return cell{kind: cellUnreadable, raw: "formula cells are not readable from .xls"}
	case looksLikeRenderedFloat(v):
		return cell{kind: cellNumber, raw: v}
	default:
		return cell{kind: cellText, raw: v}
	}
}

func resolveXLSSheet(wb *xls.WorkBook, sel SheetSelector) (*xls.WorkSheet, error) {
	n := wb.NumSheets()
	if n == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	if sel.Name != "" {
		for i := 0; i < n; i++ {
			if s := wb.GetSheet(i); s != nil && s.Name == sel.Name {
				return s, nil
			}
		}
		return nil, fmt.Errorf("sheet %s not found", sel)
	}
	if sel.Index < 0 || sel.Index >= n {
		return nil, fmt.Errorf("sheet %s out of range (workbook has %d)", sel, n)
	}
	s := wb.GetSheet(sel.Index)
	if s == nil {
		return nil, fmt.Errorf("sheet %s could not be loaded", sel)
	}
	return s, nil
}
