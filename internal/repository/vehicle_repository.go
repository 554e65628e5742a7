package repository

import (
	"context"
	"fmt"

	"vehicle-data-tools/internal/domain"
)

// SupabaseVehicleRepository writes vehicle rows through PostgREST
type SupabaseVehicleRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

// NewSupabaseVehicleRepository creates a new Supabase vehicle repository
func NewSupabaseVehicleRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseVehicleRepository {
	return &SupabaseVehicleRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

// UpsertBatch inserts rows, updating existing ones that collide on onConflict
func (r *SupabaseVehicleRepository) UpsertBatch(ctx context.Context, table, onConflict string, rows []domain.VehicleRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.supabaseClient.Initialize(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client := r.supabaseClient.DB()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	_, _, err := client.From(table).
		Insert(rows, true, onConflict, "minimal", "").
		Execute()
	if err != nil {
		r.logger.Error("Failed to upsert vehicles", err, "table", table, "rows", len(rows))
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}

	r.logger.Debug("Vehicle batch upserted", "table", table, "rows", len(rows))
	return nil
}

var _ domain.VehicleRepository = (*SupabaseVehicleRepository)(nil)
