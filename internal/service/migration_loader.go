package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"
)

var migrationFileRe = regexp.MustCompile(`^([0-9]+)_(.+)\.sql$`)

// MigrationLoader reads versioned SQL files from a directory.
type MigrationLoader struct {
	logger domain.Logger
}

func NewMigrationLoader(logger domain.Logger) *MigrationLoader {
	return &MigrationLoader{logger: logger}
}

// Load returns the migrations in dir ordered by version.
func (l *MigrationLoader) Load(dir string) ([]*domain.Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewValidationError("migrations directory not found", dir)
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	seen := make(map[string]string)
	var migrations []*domain.Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := migrationFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			l.logger.Warn("Skipping file without version prefix", "file", entry.Name())
			continue
		}
		version, name := m[1], m[2]
		key := trimLeadingZeros(version)
		if prev, ok := seen[key]; ok {
			return nil, apperrors.NewValidationError(
				domain.ErrDuplicateVersion.Error(),
				fmt.Sprintf("%s and %s share version %s", prev, entry.Name(), version),
			)
		}
		seen[key] = entry.Name()

		migration, err := l.loadFile(filepath.Join(dir, entry.Name()), version, name)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return compareVersions(migrations[i].Version, migrations[j].Version) < 0
	})

	l.logger.Debug("Loaded migrations", "dir", dir, "count", len(migrations))
	return migrations, nil
}

func (l *MigrationLoader) loadFile(path, version, name string) (*domain.Migration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	stmts, err := SplitStatements(string(raw))
	if err != nil {
		return nil, apperrors.NewValidationError("failed to parse migration", fmt.Sprintf("%s: %v", filepath.Base(path), err))
	}

	sum := sha256.Sum256(raw)
	objects, dropped := classifyAll(stmts)

	return &domain.Migration{
		Version:    version,
		Name:       name,
		Path:       path,
		Checksum:   hex.EncodeToString(sum[:]),
		SQL:        string(raw),
		Statements: stmts,
		Objects:    objects,
		Dropped:    dropped,
	}, nil
}

// compareVersions orders numeric versions by value without parsing, so
// 14-digit timestamps and short sequence numbers both sort correctly.
func compareVersions(a, b string) int {
	a, b = trimLeadingZeros(a), trimLeadingZeros(b)
	switch {
	case len(a) != len(b):
		if len(a) < len(b) {
			return -1
		}
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func trimLeadingZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
