package excel

import (
	"context"

	"github.com/iota-uz/role-import/pkg/spreadsheet"
)

const defaultSheetName = "Sheet1"

// DataSource provides the header labels and rows of one exported sheet.
type DataSource interface {
	SheetName() string
	Headers() []string
	Rows(ctx context.Context) ([][]string, error)
}

// Column maps a record label to the label shown in the header row.
type Column struct {
	Key   string
	Label string
}

// RecordsDataSource exports spreadsheet records, one row per record.
type RecordsDataSource struct {
	records []spreadsheet.Record
	columns []Column
	sheet   string
}

func NewRecordsDataSource(records []spreadsheet.Record, columns []Column) *RecordsDataSource {
	return &RecordsDataSource{records: records, columns: columns, sheet: defaultSheetName}
}

func (d *RecordsDataSource) WithSheetName(name string) *RecordsDataSource {
	if name != "" {
		d.sheet = name
	}
	return d
}

func (d *RecordsDataSource) SheetName() string { return d.sheet }

func (d *RecordsDataSource) Headers() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.Label
	}
	return out
}

func (d *RecordsDataSource) Rows(ctx context.Context) ([][]string, error) {
	rows := make([][]string, 0, len(d.records))
	for _, r := range d.records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make([]string, len(d.columns))
		for i, c := range d.columns {
			row[i] = r.Value(c.Key)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Exportable is implemented by values that can render a field by its label.
type Exportable interface {
	FieldValue(label string) string
}

// ExportableDataSource exports any slice of Exportable values.
type ExportableDataSource struct {
	items   []Exportable
	headers []string
	sheet   string
}

func NewExportableDataSource[T Exportable](items []T, headers ...string) *ExportableDataSource {
	out := make([]Exportable, len(items))
	for i, it := range items {
		out[i] = it
	}
	return &ExportableDataSource{items: out, headers: headers, sheet: defaultSheetName}
}

func (d *ExportableDataSource) WithSheetName(name string) *ExportableDataSource {
	if name != "" {
		d.sheet = name
	}
	return d
}

func (d *ExportableDataSource) SheetName() string { return d.sheet }

func (d *ExportableDataSource) Headers() []string {
	out := make([]string, len(d.headers))
	copy(out, d.headers)
	return out
}

func (d *ExportableDataSource) Rows(ctx context.Context) ([][]string, error) {
	rows := make([][]string, 0, len(d.items))
	for _, it := range d.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make([]string, len(d.headers))
		for i, h := range d.headers {
			row[i] = it.FieldValue(h)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
