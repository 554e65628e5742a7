// Command apply_migrations applies pending SQL migrations to a Supabase project.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"vehicle-data-tools/internal/config"
	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type applyFlags struct {
	opts     domain.ApplyOptions
	executor string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	flags := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply_migrations",
		Short: "Apply pending migrations to the Supabase project",
		Long: `Applies <version>_<name>.sql files from the migrations directory in version
order and records them in supabase_migrations.schema_migrations. Stops at the
first failing migration. Runs go through the Management API unless
DATABASE_URL is set or --executor=postgres is given.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.opts.Dir, "dir", "", "migrations directory (default MIGRATIONS_DIR)")
	cmd.Flags().StringVar(&flags.opts.Target, "target", "", "apply up to and including this version")
	cmd.Flags().BoolVar(&flags.opts.DryRun, "dry-run", false, "print pending migrations without applying them")
	cmd.Flags().StringSliceVar(&flags.opts.Probes, "probe", nil, "tables to read through the API after applying")
	cmd.Flags().StringVar(&flags.executor, "executor", config.ExecutorAuto, "management or postgres (default: postgres when DATABASE_URL is set)")
	return cmd
}

func runApply(cmd *cobra.Command, flags *applyFlags) error {
	container, err := config.NewContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	if flags.opts.Dir == "" {
		flags.opts.Dir = container.Config.GetMigrationsDir()
	}

	svc, err := container.MigrationService(cmd.Context(), flags.executor)
	if err != nil {
		return err
	}

	result, err := svc.Apply(cmd.Context(), flags.opts)
	if result != nil {
		printResult(cmd, result)
	}
	return err
}

func printResult(cmd *cobra.Command, result *domain.ApplyResult) {
	w := cmd.OutOrStdout()
	for _, m := range result.Pending {
		fmt.Fprintf(w, "pending %s_%s (%d statements)\n", m.Version, m.Name, len(m.Statements))
		for i, stmt := range m.Statements {
			fmt.Fprintf(w, "  %d: %s\n", i+1, firstLine(stmt))
		}
	}
	for _, v := range result.Applied {
		fmt.Fprintf(w, "applied %s\n", v)
	}
	if result.Failed != "" {
		fmt.Fprintf(w, "failed  %s\n", result.Failed)
	}
	fmt.Fprintf(w, "%d applied, %d already applied, %d pending\n", len(result.Applied), len(result.Skipped), len(result.Pending))
}

func firstLine(stmt string) string {
	line, _, cut := strings.Cut(stmt, "\n")
	if cut {
		return line + " ..."
	}
	return line
}
