// Command clean_vehicles normalizes and deduplicates a vehicle CSV export.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"vehicle-data-tools/internal/config"
	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type cleanFlags struct {
	output        string
	keys          []string
	upper         []string
	mergeOverflow bool
	upload        bool
	bucket        string
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
	flags := &cleanFlags{}
	cmd := &cobra.Command{
		Use:   "clean_vehicles <input.csv>",
		Short: "Clean and deduplicate a vehicle CSV export",
		Long: `Normalizes headers and whitespace, pads short rows, upper-cases VINs and
plates, and drops duplicate vehicles. The first occurrence of a key wins.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("upper") {
				flags.upper = nil
			}
			return runClean(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default <input>_clean.csv, - for stdout)")
	cmd.Flags().StringSliceVar(&flags.keys, "key", nil, "columns that identify a vehicle (default vin, else the whole row)")
	cmd.Flags().StringSliceVar(&flags.upper, "upper", []string{"vin", "plate"}, "columns to upper-case")
	cmd.Flags().BoolVar(&flags.mergeOverflow, "merge-overflow", false, "join extra fields into the last column instead of rejecting the row")
	cmd.Flags().BoolVar(&flags.upload, "upload", false, "upload the cleaned file to Supabase Storage")
	cmd.Flags().StringVar(&flags.bucket, "bucket", "vehicle-exports", "storage bucket used with --upload")
	return cmd
}

func runClean(cmd *cobra.Command, input string, flags *cleanFlags) error {
	container, err := config.NewContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	in, err := os.Open(input)
	if err != nil {
		return apperrors.NewValidationError("cannot open input", err.Error())
	}
	defer in.Close()

	output, err := outputPath(input, flags.output)
	if err != nil {
		return err
	}
	if output == "-" && flags.upload {
		return apperrors.NewValidationError("--upload needs an output file")
	}

	var out io.Writer = cmd.OutOrStdout()
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}

	report, err := container.CSVCleaner().Clean(cmd.Context(), in, out, domain.CleanOptions{
		KeyColumns:    flags.keys,
		UpperColumns:  flags.upper,
		MergeOverflow: flags.mergeOverflow,
	})
	if err != nil {
		return err
	}
	if f, ok := out.(*os.File); ok {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
	}

	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "columns:    %s\n", strings.Join(report.Header, ", "))
	fmt.Fprintf(w, "read:       %d\n", report.Read)
	fmt.Fprintf(w, "written:    %d\n", report.Written)
	fmt.Fprintf(w, "duplicates: %d\n", report.Duplicates)
	fmt.Fprintf(w, "padded:     %d\n", report.Padded)
	fmt.Fprintf(w, "merged:     %d\n", report.Merged)
	fmt.Fprintf(w, "rejected:   %d\n", report.Rejected)
	fmt.Fprintf(w, "blank:      %d\n", report.Blank)

	if !flags.upload {
		return nil
	}
	return upload(cmd.Context(), container, output, flags.bucket)
}

// outputPath resolves the destination for input. Writing over the input is
// rejected since os.Create truncates it before it is read.
func outputPath(input, output string) (string, error) {
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "_clean.csv"
	}
	if output == "-" {
		return output, nil
	}

	inAbs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", input, err)
	}
	outAbs, err := filepath.Abs(output)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", output, err)
	}
	if inAbs == outAbs {
		return "", apperrors.NewValidationError("output must differ from input", output)
	}
	if inInfo, err := os.Stat(input); err == nil {
		if outInfo, err := os.Stat(output); err == nil && os.SameFile(inInfo, outInfo) {
			return "", apperrors.NewValidationError("output must differ from input", output)
		}
	}
	return output, nil
}

func upload(ctx context.Context, container *config.Container, path, bucket string) error {
	storage, err := container.StorageService()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	object := time.Now().UTC().Format("2006-01-02") + "/" + filepath.Base(path)
	if err := storage.Upload(ctx, bucket, object, f, "text/csv"); err != nil {
		return err
	}
	container.Logger.Info("Uploaded cleaned export", "bucket", bucket, "path", object)
	return nil
}
