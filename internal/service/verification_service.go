package service

import (
	"context"
	"fmt"
	"os"
	"sort"

	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// VerificationService compares local migrations with the remote project.
type VerificationService struct {
	loader    *MigrationLoader
	inspector domain.SchemaInspector
	buckets   domain.BucketLister
	prober    domain.TableProber
	ledger    domain.RunLedger
	logger    domain.Logger
}

func NewVerificationService(
	loader *MigrationLoader,
	inspector domain.SchemaInspector,
	buckets domain.BucketLister,
	prober domain.TableProber,
	ledger domain.RunLedger,
	logger domain.Logger,
) *VerificationService {
	return &VerificationService{
		loader:    loader,
		inspector: inspector,
		buckets:   buckets,
		prober:    prober,
		ledger:    ledger,
		logger:    logger,
	}
}

// LoadManifest reads a YAML verification manifest.
func LoadManifest(path string) (*domain.Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m domain.Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.NewValidationError("invalid manifest", err.Error())
	}
	return &m, nil
}

type remoteState struct {
	versions map[string]bool
	tables   map[domain.TableRef]bool
	rls      map[domain.TableRef]bool
	policies map[domain.PolicyRef]bool
	buckets  map[string]bool

	historyErr error
}

// Verify returns one finding per expectation. An error is returned only
// when remote state cannot be read at all.
func (s *VerificationService) Verify(ctx context.Context, opts domain.VerifyOptions) (*domain.VerificationReport, error) {
	migrations, err := s.loader.Load(opts.Dir)
	if err != nil {
		return nil, err
	}

	expected := DeclaredObjects(migrations)
	probes := append([]string{}, opts.Probes...)
	if opts.Manifest != nil {
		expected.Merge(domain.SchemaObjects{
			Tables:    opts.Manifest.Tables,
			RLSTables: opts.Manifest.RLSTables,
			Policies:  opts.Manifest.Policies,
			Buckets:   opts.Manifest.Buckets,
		})
		probes = append(probes, opts.Manifest.Probes...)
	}

	state, err := s.fetchRemote(ctx, len(expected.Buckets) > 0)
	if err != nil {
		return nil, err
	}

	report := &domain.VerificationReport{}
	add := func(check, subject string, status domain.CheckStatus, detail string) {
		report.Findings = append(report.Findings, domain.Finding{Check: check, Subject: subject, Status: status, Detail: detail})
	}

	if state.historyErr != nil {
		add("history", "supabase_migrations.schema_migrations", domain.CheckWarning, state.historyErr.Error())
	}

	local := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		local[m.Version] = true
		subject := m.Version + "_" + m.Name
		if state.versions[m.Version] {
			add("migration", subject, domain.CheckOK, "")
		} else {
			add("migration", subject, domain.CheckMissing, "not recorded in supabase_migrations.schema_migrations")
		}
	}
	var remoteOnly []string
	for v := range state.versions {
		if !local[v] {
			remoteOnly = append(remoteOnly, v)
		}
	}
	sort.Strings(remoteOnly)
	for _, v := range remoteOnly {
		add("migration", v, domain.CheckWarning, "applied remotely but no local file")
	}

	for _, t := range expected.Tables {
		add("table", t.String(), presence(state.tables[t]), "")
	}
	for _, t := range expected.RLSTables {
		switch enabled, ok := state.rls[t]; {
		case !ok:
			add("rls", t.String(), domain.CheckMissing, "table not found")
		case !enabled:
			add("rls", t.String(), domain.CheckMissing, "row level security disabled")
		default:
			add("rls", t.String(), domain.CheckOK, "")
		}
	}
	for _, p := range expected.Policies {
		add("policy", p.String(), presence(state.policies[p]), "")
	}
	for _, b := range expected.Buckets {
		add("bucket", b, presence(state.buckets[b]), "")
	}

	if s.ledger != nil {
		for _, m := range migrations {
			run, err := s.ledger.LatestApplied(ctx, m.Version)
			if err != nil {
				add("checksum", m.Version, domain.CheckError, err.Error())
				continue
			}
			if run != nil && run.Checksum != m.Checksum {
				add("checksum", m.Version, domain.CheckDrift,
					fmt.Sprintf("file changed since it was applied (%.12s -> %.12s)", run.Checksum, m.Checksum))
			}
		}
	}

	for _, table := range probes {
		if s.prober == nil {
			add("probe", table, domain.CheckError, "no client configured")
			continue
		}
		if err := s.prober.Probe(ctx, table); err != nil {
			add("probe", table, domain.CheckError, err.Error())
			continue
		}
		add("probe", table, domain.CheckOK, "")
	}

	s.logger.Info("Verification finished",
		"findings", len(report.Findings),
		"missing", report.Count(domain.CheckMissing),
		"drift", report.Count(domain.CheckDrift),
		"errors", report.Count(domain.CheckError),
	)
	return report, nil
}

// fetchRemote reads the catalog and bucket list concurrently.
func (s *VerificationService) fetchRemote(ctx context.Context, needBuckets bool) (*remoteState, error) {
	state := &remoteState{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := s.inspector.AppliedVersions(gctx)
		if err != nil {
			// A fresh project has no history table yet.
			s.logger.Warn("Could not read migration history, assuming none applied", "error", err)
			state.versions = map[string]bool{}
			state.historyErr = err
			return nil
		}
		state.versions = v
		return nil
	})
	g.Go(func() error {
		t, err := s.inspector.Tables(gctx)
		if err != nil {
			return fmt.Errorf("read tables: %w", err)
		}
		state.tables = t
		return nil
	})
	g.Go(func() error {
		r, err := s.inspector.RLSEnabled(gctx)
		if err != nil {
			return fmt.Errorf("read rls state: %w", err)
		}
		state.rls = r
		return nil
	})
	g.Go(func() error {
		p, err := s.inspector.Policies(gctx)
		if err != nil {
			return fmt.Errorf("read policies: %w", err)
		}
		state.policies = p
		return nil
	})
	if needBuckets {
		g.Go(func() error {
			if s.buckets == nil {
				return apperrors.NewValidationError("bucket checks need SUPABASE_URL and a key")
			}
			ids, err := s.buckets.ListBuckets(gctx)
			if err != nil {
				return fmt.Errorf("list buckets: %w", err)
			}
			state.buckets = make(map[string]bool, len(ids))
			for _, id := range ids {
				state.buckets[id] = true
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

func presence(found bool) domain.CheckStatus {
	if found {
		return domain.CheckOK
	}
	return domain.CheckMissing
}
