package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/role-import/modules/access/infrastructure/persistence"
	"github.com/iota-uz/role-import/modules/access/services"
	"github.com/iota-uz/role-import/pkg/excel"
)

type exportOptions struct {
	output     string
	sheet      string
	maxRows    int
	autoFilter bool
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored user/role assignments to an .xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Output .xlsx path (required)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "assignments", "Sheet name")
	cmd.Flags().IntVar(&opts.maxRows, "max-rows", 0, "Export at most this many assignments (0 = all)")
	cmd.Flags().BoolVar(&opts.autoFilter, "auto-filter", true, "Add a header auto filter")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runExport(ctx context.Context, a *app, opts exportOptions) error {
	if stringsTrim(opts.output) == "" {
		return withCode(exitUsage, fmt.Errorf("--output is required"))
	}
	if opts.maxRows < 0 {
		return withCode(exitUsage, fmt.Errorf("--max-rows must not be negative"))
	}

	dbCtx, db, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db, a.logger)

	queryCtx, cancel := a.withTimeout(dbCtx)
	defer cancel()
	data, n, err := services.NewExportService(persistence.NewAssignmentRepository(a.tables)).Export(queryCtx, services.ExportOptions{
		Sheet:      opts.sheet,
		MaxRows:    opts.maxRows,
		AutoFilter: opts.autoFilter,
	})
	if err != nil {
		return classified(exitDB, err)
	}
	if err := excel.WriteFile(opts.output, data); err != nil {
		return withCode(exitFileWrite, err)
	}
	return writeJSONLine(map[string]any{
		"status": "exported",
		"output": opts.output,
		"table":  a.tables.Join,
		"rows":   n,
	})
}
