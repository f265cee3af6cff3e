package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/role-import/modules/access/infrastructure/persistence"
	"github.com/iota-uz/role-import/modules/access/services"
)

type rollbackOptions struct {
	manifestPath string
	apply        bool
	yes          bool
}

func newRollbackCmd(root *rootOptions) *cobra.Command {
	var opts rollbackOptions

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Delete the assignments recorded in an import manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			return runRollback(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.manifestPath, "manifest", "", "Path to import_manifest_*.json (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Apply rollback (default is dry-run)")
	cmd.Flags().BoolVar(&opts.yes, "yes", false, "Confirm destructive rollback")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runRollback(ctx context.Context, a *app, opts rollbackOptions) error {
	if stringsTrim(opts.manifestPath) == "" {
		return withCode(exitUsage, fmt.Errorf("--manifest is required"))
	}
	manifest, err := readManifest(opts.manifestPath)
	if err != nil {
		return err
	}
	if manifest.Table != a.tables.Join {
		return withCode(exitValidation, fmt.Errorf("manifest table %q does not match DB_JOIN_TABLE %q", manifest.Table, a.tables.Join))
	}

	if !opts.apply {
		return printRollbackSummary("dry_run", manifest, 0)
	}
	if !opts.yes {
		return withCode(exitSafetyNet, fmt.Errorf("refusing to rollback without --yes"))
	}

	dbCtx, db, err := a.connect(ctx)
	if err != nil {
		return err
	}
	logger := a.logger.WithField("run_id", manifest.RunID.String())
	defer closeDB(db, logger)

	svc := services.NewRollbackService(persistence.NewAssignmentRepository(a.tables), logger)
	deleted, err := svc.Rollback(dbCtx, manifest.Inserted)
	if err != nil {
		return classified(exitDBWrite, err)
	}
	return printRollbackSummary("applied", manifest, deleted)
}

type rollbackSummary struct {
	Status   string `json:"status"`
	RunID    string `json:"run_id"`
	Manifest string `json:"manifest_status"`
	Table    string `json:"table"`
	Pairs    int    `json:"pairs"`
	Deleted  int64  `json:"deleted"`
}

func printRollbackSummary(status string, manifest *importManifestV1, deleted int64) error {
	return writeJSONLine(rollbackSummary{
		Status:   status,
		RunID:    manifest.RunID.String(),
		Manifest: manifest.Status,
		Table:    manifest.Table,
		Pairs:    len(manifest.Inserted),
		Deleted:  deleted,
	})
}
