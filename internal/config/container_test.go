package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"vehicle-data-tools/internal/domain"
	"vehicle-data-tools/pkg/logger"

	"go.uber.org/zap"
)

func testContainer(t *testing.T, cfg *AppConfig) *Container {
	t.Helper()
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(t.TempDir(), "ledger", "migrations.db")
	}
	c := NewContainerWithConfig(cfg, logger.NewFromZap(zap.NewNop()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestContainer_ExecutorSelection(t *testing.T) {
	c := testContainer(t, &AppConfig{AccessToken: "sbp_token", ProjectRef: "abcd"})

	exec, err := c.Executor(context.Background(), ExecutorAuto)
	if err != nil {
		t.Fatalf("expected management executor, got %v", err)
	}
	if exec.Name() != "management-api" {
		t.Fatalf("expected management-api, got %s", exec.Name())
	}

	again, _ := c.Executor(context.Background(), ExecutorAuto)
	if again != exec {
		t.Fatal("expected executor to be reused")
	}
}

func TestContainer_ExecutorNotConfigured(t *testing.T) {
	c := testContainer(t, &AppConfig{})

	_, err := c.Executor(context.Background(), ExecutorAuto)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	_, err = c.Executor(context.Background(), ExecutorPostgres)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for postgres, got %v", err)
	}

	if _, err := c.Executor(context.Background(), "mysql"); err == nil {
		t.Fatal("expected error for unknown executor")
	}
}

func TestContainer_Services(t *testing.T) {
	c := testContainer(t, &AppConfig{AccessToken: "sbp_token", ProjectRef: "abcd"})

	if _, err := c.MigrationService(context.Background(), ExecutorManagement); err != nil {
		t.Fatalf("expected migration service, got %v", err)
	}
	if _, err := c.VerificationService(context.Background(), ExecutorManagement); err != nil {
		t.Fatalf("expected verification service, got %v", err)
	}
	if c.CSVCleaner() == nil {
		t.Fatal("expected csv cleaner")
	}
	if c.SDKConfigured() {
		t.Fatal("expected sdk to be unconfigured")
	}
	if _, err := c.StorageService(); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from storage, got %v", err)
	}
	if _, err := c.ImportService(); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from import, got %v", err)
	}
}

func TestContainer_StorageConfigured(t *testing.T) {
	c := testContainer(t, &AppConfig{SupabaseURL: "https://abcd.supabase.co", SupabaseKey: "anon"})

	if !c.SDKConfigured() {
		t.Fatal("expected sdk to be configured")
	}
	if _, err := c.StorageService(); err != nil {
		t.Fatalf("expected storage service, got %v", err)
	}
}
