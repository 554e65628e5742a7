// Command verify_migrations checks a Supabase project against local migrations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"vehicle-data-tools/internal/config"
	"vehicle-data-tools/internal/domain"
	"vehicle-data-tools/internal/service"
	apperrors "vehicle-data-tools/pkg/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type verifyFlags struct {
	dir      string
	manifest string
	probes   []string
	executor string
	jsonOut  bool
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
	flags := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify_migrations",
		Short: "Verify the Supabase project matches local migrations",
		Long: `Checks that every local migration is recorded remotely and that the tables,
RLS settings, policies and storage buckets the migrations declare exist.
Exits non-zero when anything is missing, drifted or unreadable.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.dir, "dir", "", "migrations directory (default MIGRATIONS_DIR)")
	cmd.Flags().StringVar(&flags.manifest, "manifest", "", "YAML file listing extra tables, rls_tables, policies, buckets and probes")
	cmd.Flags().StringSliceVar(&flags.probes, "probe", nil, "tables to read through the API")
	cmd.Flags().StringVar(&flags.executor, "executor", config.ExecutorAuto, "management or postgres (default: postgres when DATABASE_URL is set)")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "print the report as JSON")
	return cmd
}

func runVerify(cmd *cobra.Command, flags *verifyFlags) error {
	container, err := config.NewContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	opts := domain.VerifyOptions{Dir: flags.dir, Probes: flags.probes}
	if opts.Dir == "" {
		opts.Dir = container.Config.GetMigrationsDir()
	}
	if flags.manifest != "" {
		opts.Manifest, err = service.LoadManifest(flags.manifest)
		if err != nil {
			return err
		}
	}

	svc, err := container.VerificationService(cmd.Context(), flags.executor)
	if err != nil {
		return err
	}
	report, err := svc.Verify(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if flags.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(cmd, report)
	}

	if !report.OK() {
		return apperrors.NewConflictError(
			fmt.Sprintf("%d missing, %d drifted, %d errors",
				report.Count(domain.CheckMissing),
				report.Count(domain.CheckDrift),
				report.Count(domain.CheckError)),
			domain.ErrVerificationFailed,
		)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.VerificationReport) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSUBJECT\tSTATUS\tDETAIL")
	for _, f := range report.Findings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Check, f.Subject, f.Status, f.Detail)
	}
	_ = tw.Flush()
}
