package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"

	"github.com/stretchr/testify/require"
)

type mockVehicleRepository struct {
	batches    [][]domain.VehicleRow
	table      string
	onConflict string
	failAt     int
}

func (m *mockVehicleRepository) UpsertBatch(ctx context.Context, table, onConflict string, rows []domain.VehicleRow) error {
	if m.failAt > 0 && len(m.batches)+1 == m.failAt {
		return errors.New("duplicate key value violates unique constraint")
	}
	m.table = table
	m.onConflict = onConflict
	m.batches = append(m.batches, rows)
	return nil
}

const importCSV = "vin,make,plate\nAAA,Ford,\nBBB,Kia,X1\nCCC,,Y2\n"

func TestImportService_Batches(t *testing.T) {
	repo := &mockVehicleRepository{}
	svc := NewImportService(repo, NewMockLogger())

	report, err := svc.Import(context.Background(), strings.NewReader(importCSV), domain.ImportOptions{
		Table:     "vehicles",
		BatchSize: 2,
	})
	require.NoError(t, err)
	require.Equal(t, 3, report.Rows)
	require.Equal(t, 2, report.Batches)
	require.Len(t, repo.batches, 2)
	require.Equal(t, "vehicles", repo.table)
	require.Equal(t, "vin", repo.onConflict)

	first := repo.batches[0][0]
	require.Equal(t, "AAA", first["vin"])
	require.Nil(t, first["plate"])
	require.Nil(t, repo.batches[1][0]["make"])
}

func TestImportService_DryRun(t *testing.T) {
	repo := &mockVehicleRepository{}
	svc := NewImportService(repo, NewMockLogger())

	report, err := svc.Import(context.Background(), strings.NewReader(importCSV), domain.ImportOptions{
		Table:  "vehicles",
		DryRun: true,
	})
	require.NoError(t, err)
	require.Equal(t, 3, report.Rows)
	require.Equal(t, 1, report.Batches)
	require.Empty(t, repo.batches)
}

func TestImportService_ExplicitConflictColumn(t *testing.T) {
	repo := &mockVehicleRepository{}
	svc := NewImportService(repo, NewMockLogger())

	_, err := svc.Import(context.Background(), strings.NewReader(importCSV), domain.ImportOptions{
		Table:      "vehicles",
		OnConflict: "plate",
	})
	require.NoError(t, err)
	require.Equal(t, "plate", repo.onConflict)
}

func TestImportService_Errors(t *testing.T) {
	svc := NewImportService(&mockVehicleRepository{}, NewMockLogger())
	_, err := svc.Import(context.Background(), strings.NewReader(importCSV), domain.ImportOptions{})
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	repo := &mockVehicleRepository{failAt: 2}
	svc = NewImportService(repo, NewMockLogger())
	report, err := svc.Import(context.Background(), strings.NewReader(importCSV), domain.ImportOptions{
		Table:     "vehicles",
		BatchSize: 2,
	})
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeProcessing))
	require.Equal(t, 2, report.Rows)
	require.Equal(t, 1, report.Batches)
}
