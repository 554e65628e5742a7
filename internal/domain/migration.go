package domain

import (
	"context"
	"time"
)

// Migration is one versioned SQL file from the migrations directory.
type Migration struct {
	Version    string        `json:"version"`
	Name       string        `json:"name"`
	Path       string        `json:"path"`
	Checksum   string        `json:"checksum"`
	SQL        string        `json:"-"`
	Statements []string      `json:"-"`
	Objects    SchemaObjects `json:"objects"`
	Dropped    SchemaObjects `json:"dropped"`
}

// TableRef names a relation by schema and table.
type TableRef struct {
	Schema string `json:"schema" yaml:"schema"`
	Name   string `json:"name" yaml:"name"`
}

func (t TableRef) String() string {
	return t.Schema + "." + t.Name
}

// PolicyRef names a row-level security policy on a table.
type PolicyRef struct {
	Table TableRef `json:"table" yaml:"table"`
	Name  string   `json:"name" yaml:"name"`
}

func (p PolicyRef) String() string {
	return p.Table.String() + ":" + p.Name
}

// SchemaObjects are the objects a set of statements declares.
type SchemaObjects struct {
	Tables    []TableRef  `json:"tables,omitempty"`
	RLSTables []TableRef  `json:"rls_tables,omitempty"`
	Policies  []PolicyRef `json:"policies,omitempty"`
	Buckets   []string    `json:"buckets,omitempty"`
}

// Merge appends other's objects, skipping ones already present.
func (s *SchemaObjects) Merge(other SchemaObjects) {
	s.Tables = appendUniqueTables(s.Tables, other.Tables...)
	s.RLSTables = appendUniqueTables(s.RLSTables, other.RLSTables...)
	for _, p := range other.Policies {
		found := false
		for _, existing := range s.Policies {
			if existing == p {
				found = true
				break
			}
		}
		if !found {
			s.Policies = append(s.Policies, p)
		}
	}
	for _, b := range other.Buckets {
		found := false
		for _, existing := range s.Buckets {
			if existing == b {
				found = true
				break
			}
		}
		if !found {
			s.Buckets = append(s.Buckets, b)
		}
	}
}

func appendUniqueTables(dst []TableRef, refs ...TableRef) []TableRef {
	for _, ref := range refs {
		found := false
		for _, existing := range dst {
			if existing == ref {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, ref)
		}
	}
	return dst
}

// MigrationExecutor runs migrations against the remote database and reads
// its migration history.
type MigrationExecutor interface {
	Name() string
	EnsureHistory(ctx context.Context) error
	AppliedVersions(ctx context.Context) (map[string]bool, error)
	Apply(ctx context.Context, m *Migration) error
	Query(ctx context.Context, sql string) ([]map[string]interface{}, error)
	Close() error
}

// RunStatus is the outcome of one migration attempt.
type RunStatus string

const (
	RunStatusApplied RunStatus = "applied"
	RunStatusFailed  RunStatus = "failed"
)

// MigrationRun is one attempt recorded in the local ledger.
type MigrationRun struct {
	ID         string     `json:"id"`
	Version    string     `json:"version"`
	Name       string     `json:"name"`
	Checksum   string     `json:"checksum"`
	Executor   string     `json:"executor"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunLedger persists migration attempts locally.
type RunLedger interface {
	Record(ctx context.Context, run *MigrationRun) error
	LatestApplied(ctx context.Context, version string) (*MigrationRun, error)
	List(ctx context.Context, limit int) ([]*MigrationRun, error)
	Close() error
}

// TableProber reads from a table through the client SDK.
type TableProber interface {
	Probe(ctx context.Context, table string) error
}

// ApplyOptions controls a migration apply.
type ApplyOptions struct {
	Dir    string
	Target string
	DryRun bool
	Probes []string
}

// ApplyResult lists what an apply did.
type ApplyResult struct {
	Applied []string     `json:"applied"`
	Skipped []string     `json:"skipped"`
	Pending []*Migration `json:"pending,omitempty"`
	Failed  string       `json:"failed,omitempty"`
}

// MigrationStatus pairs a local migration with its remote state.
type MigrationStatus struct {
	Migration *Migration `json:"migration"`
	Applied   bool       `json:"applied"`
}

// Remove deletes other's objects from s. Dropping a table also drops its
// policies and its RLS expectation.
func (s *SchemaObjects) Remove(other SchemaObjects) {
	s.Tables = removeTables(s.Tables, other.Tables)
	s.RLSTables = removeTables(s.RLSTables, other.Tables)
	s.RLSTables = removeTables(s.RLSTables, other.RLSTables)

	kept := make([]PolicyRef, 0, len(s.Policies))
	for _, p := range s.Policies {
		dropped := false
		for _, t := range other.Tables {
			if p.Table == t {
				dropped = true
			}
		}
		for _, d := range other.Policies {
			if p == d {
				dropped = true
			}
		}
		if !dropped {
			kept = append(kept, p)
		}
	}
	s.Policies = kept

	buckets := make([]string, 0, len(s.Buckets))
	for _, b := range s.Buckets {
		dropped := false
		for _, d := range other.Buckets {
			if b == d {
				dropped = true
			}
		}
		if !dropped {
			buckets = append(buckets, b)
		}
	}
	s.Buckets = buckets
}

// Empty reports whether no objects are listed.
func (s SchemaObjects) Empty() bool {
	return len(s.Tables) == 0 && len(s.RLSTables) == 0 && len(s.Policies) == 0 && len(s.Buckets) == 0
}

func removeTables(list []TableRef, drop []TableRef) []TableRef {
	kept := make([]TableRef, 0, len(list))
	for _, t := range list {
		dropped := false
		for _, d := range drop {
			if t == d {
				dropped = true
				break
			}
		}
		if !dropped {
			kept = append(kept, t)
		}
	}
	return kept
}

// MigrationStatusReader lists local migrations with their remote state.
type MigrationStatusReader interface {
	Status(ctx context.Context, dir string) ([]MigrationStatus, error)
}
