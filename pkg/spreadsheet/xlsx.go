package spreadsheet

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

type xlsxSheet struct {
	rows [][]cell
}

func (s *xlsxSheet) lastRow() int { return len(s.rows) - 1 }

func (s *xlsxSheet) row(i int) []cell {
	if i < 0 || i >= len(s.rows) {
		return nil
	}
	return s.rows[i]
}

func openXLSX(path string, opts Options) (rowSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheet, err := resolveSheetName(f.GetSheetList(), opts.Sheet)
	if err != nil {
		return nil, err
	}

	raw, err := xlsxValues(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	out := &xlsxSheet{rows: make([][]cell, len(raw))}
	for i, values := range raw {
		if len(values) == 0 {
			present, err := xlsxRowHasCells(f, sheet, i, len(opts.Columns))
			if err != nil {
				return nil, err
			}
			if !present {
				continue
			}
			values = make([]string, len(opts.Columns))
		}
		cells := make([]cell, len(values))
		for j, v := range values {
			c, err := xlsxCell(f, sheet, j, i, v)
			if err != nil {
				return nil, err
			}
			cells[j] = c
		}
		out.rows[i] = cells
	}
	return out, nil
}

// xlsxValues walks every row position up to the last <row> element.
// Unlike GetRows it keeps trailing rows whose cells are all empty strings.
func xlsxValues(f *excelize.File, sheet string) ([][]string, error) {
	it, err := f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	var raw [][]string
	for it.Next() {
		values, err := it.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			_ = it.Close()
			return nil, err
		}
		raw = append(raw, values)
	}
	if err := it.Error(); err != nil {
		_ = it.Close()
		return nil, err
	}
	return raw, it.Close()
}

// xlsxRowHasCells reports whether row i carries a typed or formula cell in
// the first width columns even though every value is empty. Untyped blank
// cells cannot be told apart from missing ones and count as absent.
func xlsxRowHasCells(f *excelize.File, sheet string, i, width int) (bool, error) {
	for j := 0; j < width; j++ {
		axis, err := excelize.CoordinatesToCellName(j+1, i+1)
		if err != nil {
			return false, err
		}
		typ, err := f.GetCellType(sheet, axis)
		if err != nil {
			return false, fmt.Errorf("cell type %s: %w", axis, err)
		}
		if typ != excelize.CellTypeUnset {
			return true, nil
		}
		formula, err := f.GetCellFormula(sheet, axis)
		if err != nil {
			return false, fmt.Errorf("formula %s: %w", axis, err)
		}
		if formula != "" {
			return true, nil
		}
	}
	return false, nil
}

func xlsxCell(f *excelize.File, sheet string, col, row int, raw string) (cell, error) {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return cell{}, err
	}
	formula, err := f.GetCellFormula(sheet, axis)
	if err != nil {
		return cell{}, fmt.Errorf("formula %s: %w", axis, err)
	}
	if formula != "" {
		return cell{kind: cellFormula, raw: formula}, nil
	}
	if raw == "" {
		return cell{kind: cellEmpty}, nil
	}

	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return cell{}, fmt.Errorf("cell type %s: %w", axis, err)
	}
	switch typ {
	case excelize.CellTypeBool:
		return cell{kind: cellBool, raw: raw}, nil
	case excelize.CellTypeError:
		return cell{kind: cellError, raw: raw}, nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		// OOXML stores numbers without a type attribute
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			return cell{kind: cellNumber, raw: raw}, nil
		}
		return cell{kind: cellText, raw: raw}, nil
	default:
		return cell{kind: cellText, raw: raw}, nil
	}
}

func resolveSheetName(sheets []string, sel SheetSelector) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if sel.Name != "" {
		for _, s := range sheets {
			if s == sel.Name {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %s not found", sel)
	}
	if sel.Index < 0 || sel.Index >= len(sheets) {
		return "", fmt.Errorf("sheet %s out of range (workbook has %d)", sel, len(sheets))
	}
	return sheets[sel.Index], nil
}
