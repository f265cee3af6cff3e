package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iota-uz/role-import/pkg/configuration"
)

type rootOptions struct {
	envFiles []string
	profile  string
}

func newRootCmd() *cobra.Command {
	root := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "role-import",
		Short:         "Import user/role assignments from a spreadsheet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&root.envFiles, "env-file", configuration.DefaultEnvFiles, "Env files to load (missing files are ignored)")
	cmd.PersistentFlags().StringVar(&root.profile, "profile", "", "TOML import profile (default: 用户名/角色 columns)")

	cmd.AddCommand(newImportCmd(root))
	cmd.AddCommand(newExportCmd(root))
	cmd.AddCommand(newRollbackCmd(root))
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
