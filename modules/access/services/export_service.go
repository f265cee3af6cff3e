package services

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
	"github.com/iota-uz/role-import/pkg/excel"
)

type ExportOptions struct {
	Sheet string
	// MaxRows caps the exported assignments; 0 exports all of them.
	MaxRows    int
	AutoFilter bool
}

type ExportService struct {
	assignments assignment.Repository
}

func NewExportService(assignments assignment.Repository) *ExportService {
	return &ExportService{assignments: assignments}
}

// Export renders stored assignments as a workbook and reports how many rows
// it wrote.
func (s *ExportService) Export(ctx context.Context, opts ExportOptions) ([]byte, int, error) {
	if opts.MaxRows < 0 {
		return nil, 0, errors.Errorf("max rows must not be negative, got %d", opts.MaxRows)
	}
	grants, err := s.assignments.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	ds := excel.NewExportableDataSource(grants, assignment.GrantFields...).WithSheetName(opts.Sheet)

	exportOpts := excel.DefaultExportOptions()
	exportOpts.MaxRows = opts.MaxRows
	exportOpts.AutoFilter = opts.AutoFilter
	data, err := excel.NewExcelExporter(exportOpts, excel.DefaultStyleOptions()).Export(ctx, ds)
	if err != nil {
		return nil, 0, errors.Wrap(err, "export assignments")
	}

	n := len(grants)
	if opts.MaxRows > 0 && n > opts.MaxRows {
		n = opts.MaxRows
	}
	return data, n, nil
}
