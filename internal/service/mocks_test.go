package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"vehicle-data-tools/internal/domain"
)

// MockLogger records messages for assertions.
type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) add(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, s)
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.add("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	m.add("ERROR: " + msg + " - " + err.Error())
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.add("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.add("WARN: " + msg)
}

func (m *MockLogger) contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

type mockExecutor struct {
	applied      map[string]bool
	appliedErr   error
	failVersion  string
	ensureCalls  int
	appliedOrder []string
}

func newMockExecutor(applied ...string) *mockExecutor {
	m := &mockExecutor{applied: make(map[string]bool)}
	for _, v := range applied {
		m.applied[v] = true
	}
	return m
}

func (m *mockExecutor) Name() string { return "mock" }

func (m *mockExecutor) EnsureHistory(ctx context.Context) error {
	m.ensureCalls++
	return nil
}

func (m *mockExecutor) AppliedVersions(ctx context.Context) (map[string]bool, error) {
	if m.appliedErr != nil {
		return nil, m.appliedErr
	}
	out := make(map[string]bool, len(m.applied))
	for k, v := range m.applied {
		out[k] = v
	}
	return out, nil
}

func (m *mockExecutor) Apply(ctx context.Context, mig *domain.Migration) error {
	if mig.Version == m.failVersion {
		return errors.New("syntax error at or near \"tabel\"")
	}
	m.applied[mig.Version] = true
	m.appliedOrder = append(m.appliedOrder, mig.Version)
	return nil
}

func (m *mockExecutor) Query(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	return nil, nil
}

func (m *mockExecutor) Close() error { return nil }

type mockLedger struct {
	runs []*domain.MigrationRun
}

func (m *mockLedger) Record(ctx context.Context, run *domain.MigrationRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockLedger) LatestApplied(ctx context.Context, version string) (*domain.MigrationRun, error) {
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].Version == version && m.runs[i].Status == domain.RunStatusApplied {
			return m.runs[i], nil
		}
	}
	return nil, nil
}

func (m *mockLedger) List(ctx context.Context, limit int) ([]*domain.MigrationRun, error) {
	return m.runs, nil
}

func (m *mockLedger) Close() error { return nil }

type mockProber struct {
	failing map[string]bool
	probed  []string
}

func (m *mockProber) Probe(ctx context.Context, table string) error {
	m.probed = append(m.probed, table)
	if m.failing[table] {
		return errors.New("relation does not exist")
	}
	return nil
}

// writeMigrations creates files in a temp dir and returns it.
func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}
