package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"
)

const defaultImportBatchSize = 500

// ImportService loads a cleaned vehicle CSV into a table.
type ImportService struct {
	repo   domain.VehicleRepository
	logger domain.Logger
}

func NewImportService(repo domain.VehicleRepository, logger domain.Logger) *ImportService {
	return &ImportService{repo: repo, logger: logger}
}

// Import upserts every row of in, batching requests. Empty fields are sent
// as null.
func (s *ImportService) Import(ctx context.Context, in io.Reader, opts domain.ImportOptions) (*domain.ImportReport, error) {
	if opts.Table == "" {
		return nil, apperrors.NewValidationError("import table is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultImportBatchSize
	}

	r := newCSVReader(in)
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if opts.OnConflict == "" && indexOf(header, "vin") >= 0 {
		opts.OnConflict = "vin"
	}

	report := &domain.ImportReport{}
	batch := make([]domain.VehicleRow, 0, opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if !opts.DryRun {
			if err := s.repo.UpsertBatch(ctx, opts.Table, opts.OnConflict, batch); err != nil {
				return apperrors.NewProcessingError(fmt.Sprintf("batch %d failed", report.Batches+1), err)
			}
		}
		report.Batches++
		report.Rows += len(batch)
		batch = make([]domain.VehicleRow, 0, opts.BatchSize)
		return nil
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, apperrors.NewProcessingError("failed to read csv", err)
		}

		row := make(domain.VehicleRow, len(header))
		for i, col := range header {
			var v interface{}
			if i < len(record) {
				if f := normalizeField(record[i]); f != "" {
					v = f
				}
			}
			row[col] = v
		}
		batch = append(batch, row)

		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return report, err
			}
		}
	}
	if err := flush(); err != nil {
		return report, err
	}

	s.logger.Info("Vehicles imported",
		"table", opts.Table,
		"rows", report.Rows,
		"batches", report.Batches,
		"dry_run", opts.DryRun,
	)
	return report, nil
}
