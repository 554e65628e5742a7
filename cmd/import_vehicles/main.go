// Command import_vehicles upserts a cleaned vehicle CSV into a Supabase table.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"vehicle-data-tools/internal/config"
	"vehicle-data-tools/internal/domain"
	"vehicle-data-tools/internal/service"
	apperrors "vehicle-data-tools/pkg/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

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
	opts := domain.ImportOptions{}
	cmd := &cobra.Command{
		Use:          "import_vehicles <cleaned.csv>",
		Short:        "Upsert a cleaned vehicle CSV through the Supabase API",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "vehicles", "target table")
	cmd.Flags().StringVar(&opts.OnConflict, "on-conflict", "", "conflict column for the upsert (default vin when present)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 500, "rows per request")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "count rows without sending them")
	return cmd
}

func runImport(cmd *cobra.Command, input string, opts domain.ImportOptions) error {
	container, err := config.NewContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	var svc *service.ImportService
	if opts.DryRun {
		svc = service.NewImportService(nil, container.Logger)
	} else {
		svc, err = container.ImportService()
		if err != nil {
			return err
		}
	}

	in, err := os.Open(input)
	if err != nil {
		return apperrors.NewValidationError("cannot open input", err.Error())
	}
	defer in.Close()

	report, err := svc.Import(cmd.Context(), in, opts)
	if report != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "rows: %d  batches: %d  dry-run: %t\n", report.Rows, report.Batches, opts.DryRun)
	}
	return err
}
