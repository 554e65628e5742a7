package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var defaultUpperColumns = []string{"vin", "plate"}

// keySeparator is the ASCII unit separator.
const keySeparator = "\x1f"

type CSVCleaner struct {
	logger domain.Logger
}

func NewCSVCleaner(logger domain.Logger) *CSVCleaner {
	return &CSVCleaner{logger: logger}
}

// Clean normalizes, pads and deduplicates the CSV in, writing the result
// to out. Row order is preserved and the first occurrence of a key wins.
func (c *CSVCleaner) Clean(ctx context.Context, in io.Reader, out io.Writer, opts domain.CleanOptions) (*domain.CleanReport, error) {
	r := newCSVReader(in)
	w := csv.NewWriter(out)

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	width := len(header)
	report := &domain.CleanReport{Header: header}

	keyIdx, err := resolveKeyColumns(header, opts.KeyColumns)
	if err != nil {
		return nil, err
	}
	upperIdx := resolveUpperColumns(header, opts.UpperColumns)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	seen := make(map[string]struct{})
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewProcessingError("failed to read csv", err)
		}
		report.Read++
		if report.Read%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row := normalizeRecord(record)
		if isBlank(row) {
			report.Blank++
			continue
		}

		switch {
		case len(row) < width:
			row = append(row, make([]string, width-len(row))...)
			report.Padded++
		case len(row) > width:
			for len(row) > width && row[len(row)-1] == "" {
				row = row[:len(row)-1]
			}
			if len(row) > width {
				if !opts.MergeOverflow {
					report.Rejected++
					c.logger.Debug("Rejected row with extra fields", "row", report.Read, "fields", len(row), "expected", width)
					continue
				}
				row = mergeOverflow(row, width)
				report.Merged++
			}
		}

		for _, i := range upperIdx {
			row[i] = strings.ToUpper(row[i])
		}

		key := rowKey(row, keyIdx)
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
		report.Written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	c.logger.Info("CSV cleaned",
		"read", report.Read,
		"written", report.Written,
		"duplicates", report.Duplicates,
		"padded", report.Padded,
		"rejected", report.Rejected,
	)
	return report, nil
}

// newCSVReader strips a UTF-8 BOM and tolerates stray quotes and ragged rows.
func newCSVReader(in io.Reader) *csv.Reader {
	decoded := transform.NewReader(in, xunicode.BOMOverride(xunicode.UTF8.NewDecoder()))
	r := csv.NewReader(decoded)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

func readHeader(r *csv.Reader) ([]string, error) {
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewValidationError(domain.ErrMissingHeader.Error())
		}
		if err != nil {
			return nil, apperrors.NewProcessingError("failed to read csv header", err)
		}
		row := normalizeRecord(record)
		if isBlank(row) {
			continue
		}
		for len(row) > 0 && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		return normalizeHeader(row), nil
	}
}

// normalizeField applies NFC and collapses whitespace.
func normalizeField(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func normalizeRecord(record []string) []string {
	row := make([]string, len(record))
	for i, f := range record {
		row[i] = normalizeField(f)
	}
	return row
}

func isBlank(row []string) bool {
	for _, f := range row {
		if f != "" {
			return false
		}
	}
	return true
}

// normalizeHeader turns names into unique lower snake_case identifiers.
func normalizeHeader(row []string) []string {
	header := make([]string, len(row))
	used := make(map[string]bool, len(row))
	for i, name := range row {
		base := ColumnName(name)
		if base == "" {
			base = fmt.Sprintf("column_%d", i+1)
		}
		n := base
		for suffix := 2; used[n]; suffix++ {
			n = fmt.Sprintf("%s_%d", base, suffix)
		}
		used[n] = true
		header[i] = n
	}
	return header
}

// ColumnName converts a display name like "Model Year" to model_year.
func ColumnName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(normalizeField(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}
	return b.String()
}

func resolveKeyColumns(header []string, keys []string) ([]int, error) {
	if len(keys) == 0 {
		if i := indexOf(header, "vin"); i >= 0 {
			return []int{i}, nil
		}
		return nil, nil
	}
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		i := indexOf(header, ColumnName(k))
		if i < 0 {
			return nil, apperrors.NewValidationError(domain.ErrUnknownColumn.Error(), k)
		}
		idx = append(idx, i)
	}
	return idx, nil
}

func resolveUpperColumns(header []string, cols []string) []int {
	if cols == nil {
		cols = defaultUpperColumns
	}
	var idx []int
	for _, col := range cols {
		if i := indexOf(header, ColumnName(col)); i >= 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// mergeOverflow folds fields past width into the last column.
func mergeOverflow(row []string, width int) []string {
	tail := make([]string, 0, len(row)-width+1)
	for _, f := range row[width-1:] {
		if f != "" {
			tail = append(tail, f)
		}
	}
	merged := append([]string{}, row[:width-1]...)
	return append(merged, strings.Join(tail, " "))
}

// rowKey builds the case-insensitive dedup key. Rows whose key fields are
// all empty are keyed by their full content.
func rowKey(row []string, keyIdx []int) string {
	if len(keyIdx) > 0 {
		parts := make([]string, len(keyIdx))
		empty := true
		for i, k := range keyIdx {
			parts[i] = row[k]
			if row[k] != "" {
				empty = false
			}
		}
		if !empty {
			return "k" + keySeparator + strings.ToLower(strings.Join(parts, keySeparator))
		}
	}
	return "r" + keySeparator + strings.ToLower(strings.Join(row, keySeparator))
}
