package domain

import (
	"context"
	"io"
)

// CleanOptions controls how a vehicle CSV export is normalized.
type CleanOptions struct {
	// KeyColumns identify a vehicle for deduplication. When empty, "vin" is
	// used if the header has it, otherwise the whole row is the key.
	KeyColumns []string
	// UpperColumns are upper-cased after trimming (VINs, plates).
	UpperColumns []string
	// MergeOverflow joins surplus fields into the last column instead of
	// rejecting the row.
	MergeOverflow bool
}

// CleanReport summarizes a cleaning pass.
type CleanReport struct {
	Header     []string `json:"header"`
	Read       int      `json:"read"`
	Written    int      `json:"written"`
	Padded     int      `json:"padded"`
	Merged     int      `json:"merged"`
	Rejected   int      `json:"rejected"`
	Blank      int      `json:"blank"`
	Duplicates int      `json:"duplicates"`
}

// CSVCleaner cleans and deduplicates vehicle exports.
type CSVCleaner interface {
	Clean(ctx context.Context, in io.Reader, out io.Writer, opts CleanOptions) (*CleanReport, error)
}

// VehicleRow is one cleaned CSV record keyed by normalized column name.
type VehicleRow map[string]interface{}

// VehicleRepository writes cleaned vehicle rows to the hosted database.
type VehicleRepository interface {
	UpsertBatch(ctx context.Context, table, onConflict string, rows []VehicleRow) error
}

// ImportOptions controls an import of a cleaned CSV.
type ImportOptions struct {
	Table      string
	OnConflict string
	BatchSize  int
	DryRun     bool
}

// ImportReport summarizes an import run.
type ImportReport struct {
	Rows    int `json:"rows"`
	Batches int `json:"batches"`
}
