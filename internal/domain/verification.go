package domain

import "context"

// CheckStatus is the outcome of a single verification check.
type CheckStatus string

const (
	CheckOK      CheckStatus = "ok"
	CheckMissing CheckStatus = "missing"
	CheckDrift   CheckStatus = "drift"
	CheckError   CheckStatus = "error"
	CheckWarning CheckStatus = "warning"
)

// Finding is one verification check result.
type Finding struct {
	Check   string      `json:"check"`
	Subject string      `json:"subject"`
	Status  CheckStatus `json:"status"`
	Detail  string      `json:"detail,omitempty"`
}

// VerificationReport is the result of comparing local migrations with the
// remote project.
type VerificationReport struct {
	Findings []Finding `json:"findings"`
}

// OK reports whether every finding is ok or a warning.
func (r *VerificationReport) OK() bool {
	for _, f := range r.Findings {
		if f.Status != CheckOK && f.Status != CheckWarning {
			return false
		}
	}
	return true
}

// Count returns how many findings have the given status.
func (r *VerificationReport) Count(status CheckStatus) int {
	n := 0
	for _, f := range r.Findings {
		if f.Status == status {
			n++
		}
	}
	return n
}

// Manifest lists extra objects to verify beyond what migrations declare.
type Manifest struct {
	Tables    []TableRef  `yaml:"tables"`
	RLSTables []TableRef  `yaml:"rls_tables"`
	Policies  []PolicyRef `yaml:"policies"`
	Buckets   []string    `yaml:"buckets"`
	Probes    []string    `yaml:"probes"`
}

// VerifyOptions controls a verification run.
type VerifyOptions struct {
	Dir      string
	Manifest *Manifest
	Probes   []string
}

// BucketLister lists storage buckets through the client SDK.
type BucketLister interface {
	ListBuckets(ctx context.Context) ([]string, error)
}

// SchemaInspector reads remote catalog state.
type SchemaInspector interface {
	Tables(ctx context.Context) (map[TableRef]bool, error)
	RLSEnabled(ctx context.Context) (map[TableRef]bool, error)
	Policies(ctx context.Context) (map[PolicyRef]bool, error)
	AppliedVersions(ctx context.Context) (map[string]bool, error)
}

// Verifier checks the remote project against local expectations.
type Verifier interface {
	Verify(ctx context.Context, opts VerifyOptions) (*VerificationReport, error)
}
