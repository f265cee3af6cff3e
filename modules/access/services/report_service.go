package services

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
	"github.com/iota-uz/role-import/pkg/excel"
	"github.com/iota-uz/role-import/pkg/spreadsheet"
)

// ReportLayout selects the report columns and their header labels.
type ReportLayout struct {
	Sheet         string
	Columns       []string
	Labels        map[string]string
	SuccessColumn string
}

// Annotate sets the success column of every record from its row result.
// Records without a result are marked false.
func Annotate(records []spreadsheet.Record, result *assignment.Result, successColumn string) []spreadsheet.Record {
	accepted := map[int]bool{}
	if result != nil {
		for _, row := range result.Rows {
			accepted[row.Line] = row.Outcome.Accepted()
		}
	}
	out := make([]spreadsheet.Record, len(records))
	for i, rec := range records {
		out[i] = rec.With(successColumn, strconv.FormatBool(accepted[rec.Row()]))
	}
	return out
}

// WriteReport renders records with the layout and overwrites path.
func WriteReport(ctx context.Context, path string, records []spreadsheet.Record, layout ReportLayout) error {
	columns := make([]excel.Column, len(layout.Columns))
	for i, c := range layout.Columns {
		label := layout.Labels[c]
		if label == "" {
			label = c
		}
		columns[i] = excel.Column{Key: c, Label: label}
	}
	ds := excel.NewRecordsDataSource(records, columns).WithSheetName(layout.Sheet)
	data, err := excel.NewExcelExporter(excel.DefaultExportOptions(), excel.DefaultStyleOptions()).Export(ctx, ds)
	if err != nil {
		return errors.Wrap(err, "render report")
	}
	return excel.WriteFile(path, data)
}
