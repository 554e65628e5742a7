package service

import (
	"context"
	"fmt"
	"time"

	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"
)

// MigrationService applies local migrations to the remote project.
type MigrationService struct {
	loader   *MigrationLoader
	executor domain.MigrationExecutor
	ledger   domain.RunLedger
	prober   domain.TableProber
	logger   domain.Logger
	now      func() time.Time
}

func NewMigrationService(
	loader *MigrationLoader,
	executor domain.MigrationExecutor,
	ledger domain.RunLedger,
	prober domain.TableProber,
	logger domain.Logger,
) *MigrationService {
	return &MigrationService{
		loader:   loader,
		executor: executor,
		ledger:   ledger,
		prober:   prober,
		logger:   logger,
		now:      time.Now,
	}
}

// Status pairs every local migration with whether it is applied remotely.
func (s *MigrationService) Status(ctx context.Context, dir string) ([]domain.MigrationStatus, error) {
	migrations, err := s.loader.Load(dir)
	if err != nil {
		return nil, err
	}
	applied, err := s.executor.AppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied versions: %w", err)
	}

	statuses := make([]domain.MigrationStatus, len(migrations))
	for i, m := range migrations {
		statuses[i] = domain.MigrationStatus{Migration: m, Applied: applied[m.Version]}
	}
	return statuses, nil
}

// Apply runs pending migrations in version order and stops at the first
// failure. Every attempt is recorded in the ledger.
func (s *MigrationService) Apply(ctx context.Context, opts domain.ApplyOptions) (*domain.ApplyResult, error) {
	migrations, err := s.loader.Load(opts.Dir)
	if err != nil {
		return nil, err
	}
	if opts.Target != "" && !hasVersion(migrations, opts.Target) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s: %s", domain.ErrMigrationNotFound, opts.Target))
	}

	applied, err := s.appliedVersions(ctx, opts.DryRun)
	if err != nil {
		return nil, err
	}

	result := &domain.ApplyResult{}
	var pending []*domain.Migration
	for _, m := range migrations {
		if opts.Target != "" && compareVersions(m.Version, opts.Target) > 0 {
			break
		}
		if applied[m.Version] {
			result.Skipped = append(result.Skipped, m.Version)
			continue
		}
		pending = append(pending, m)
	}

	if opts.DryRun {
		result.Pending = pending
		s.logger.Info("Dry run", "pending", len(pending), "skipped", len(result.Skipped))
		return result, nil
	}

	for _, m := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.applyOne(ctx, m); err != nil {
			result.Failed = m.Version
			return result, fmt.Errorf("migration %s_%s: %w", m.Version, m.Name, err)
		}
		result.Applied = append(result.Applied, m.Version)
	}

	for _, table := range opts.Probes {
		if s.prober == nil {
			break
		}
		if err := s.prober.Probe(ctx, table); err != nil {
			return result, apperrors.NewProcessingError("post-apply probe failed for "+table, err)
		}
		s.logger.Info("Probe succeeded", "table", table)
	}

	s.logger.Info("Migrations applied",
		"applied", len(result.Applied),
		"skipped", len(result.Skipped),
		"executor", s.executor.Name(),
	)
	return result, nil
}

func (s *MigrationService) appliedVersions(ctx context.Context, dryRun bool) (map[string]bool, error) {
	if dryRun {
		applied, err := s.executor.AppliedVersions(ctx)
		if err != nil {
			s.logger.Warn("Could not read migration history, assuming none applied", "error", err)
			return map[string]bool{}, nil
		}
		return applied, nil
	}

	if err := s.executor.EnsureHistory(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare migration history: %w", err)
	}
	applied, err := s.executor.AppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied versions: %w", err)
	}
	return applied, nil
}

func (s *MigrationService) applyOne(ctx context.Context, m *domain.Migration) error {
	run := &domain.MigrationRun{
		Version:   m.Version,
		Name:      m.Name,
		Checksum:  m.Checksum,
		Executor:  s.executor.Name(),
		StartedAt: s.now().UTC(),
	}

	s.logger.Info("Applying migration", "version", m.Version, "name", m.Name, "statements", len(m.Statements))
	applyErr := s.executor.Apply(ctx, m)

	finished := s.now().UTC()
	run.FinishedAt = &finished
	run.Status = domain.RunStatusApplied
	if applyErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = applyErr.Error()
		s.logger.Error("Migration failed", applyErr, "version", m.Version)
	}

	if s.ledger != nil {
		if err := s.ledger.Record(ctx, run); err != nil {
			s.logger.Warn("Failed to record migration run", "version", m.Version, "error", err)
		}
	}
	return applyErr
}

func hasVersion(migrations []*domain.Migration, version string) bool {
	for _, m := range migrations {
		if compareVersions(m.Version, version) == 0 {
			return true
		}
	}
	return false
}
