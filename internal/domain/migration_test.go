package domain

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSchemaObjects_MergeSkipsDuplicates(t *testing.T) {
	vehicles := TableRef{Schema: "public", Name: "vehicles"}
	var s SchemaObjects
	s.Merge(SchemaObjects{Tables: []TableRef{vehicles}, Buckets: []string{"photos"}})
	s.Merge(SchemaObjects{Tables: []TableRef{vehicles}, Buckets: []string{"photos", "exports"}})

	if len(s.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(s.Tables))
	}
	if len(s.Buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %v", s.Buckets)
	}
}

func TestSchemaObjects_RemoveTableDropsItsPolicies(t *testing.T) {
	vehicles := TableRef{Schema: "public", Name: "vehicles"}
	owners := TableRef{Schema: "public", Name: "owners"}
	s := SchemaObjects{
		Tables:    []TableRef{vehicles, owners},
		RLSTables: []TableRef{vehicles},
		Policies: []PolicyRef{
			{Table: vehicles, Name: "read"},
			{Table: owners, Name: "read"},
		},
	}

	s.Remove(SchemaObjects{Tables: []TableRef{vehicles}})

	if len(s.Tables) != 1 || s.Tables[0] != owners {
		t.Fatalf("expected only owners to remain, got %v", s.Tables)
	}
	if len(s.RLSTables) != 0 {
		t.Fatalf("expected rls expectation to be dropped, got %v", s.RLSTables)
	}
	if len(s.Policies) != 1 || s.Policies[0].Table != owners {
		t.Fatalf("expected owners policy to remain, got %v", s.Policies)
	}
	if s.Empty() {
		t.Fatalf("expected objects to remain")
	}
}

func TestVerificationReport_OK(t *testing.T) {
	report := &VerificationReport{Findings: []Finding{
		{Check: "table", Status: CheckOK},
		{Check: "migration", Status: CheckWarning},
	}}
	if !report.OK() {
		t.Fatalf("warnings should not fail the report")
	}

	report.Findings = append(report.Findings, Finding{Check: "policy", Status: CheckMissing})
	if report.OK() {
		t.Fatalf("missing findings should fail the report")
	}
	if report.Count(CheckMissing) != 1 {
		t.Fatalf("expected 1 missing finding")
	}
}

func TestManifest_UnmarshalYAML(t *testing.T) {
	doc := `
tables:
  - vehicles
  - storage.objects
  - {schema: fleet, name: trucks}
policies:
  - table: vehicles
    name: Vehicles are readable
buckets: [vehicle-photos]
probes: [vehicles]
`
	var m Manifest
	if err := yaml.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []TableRef{
		{Schema: "public", Name: "vehicles"},
		{Schema: "storage", Name: "objects"},
		{Schema: "fleet", Name: "trucks"},
	}
	if len(m.Tables) != len(want) {
		t.Fatalf("expected %d tables, got %v", len(want), m.Tables)
	}
	for i := range want {
		if m.Tables[i] != want[i] {
			t.Fatalf("table %d: expected %v, got %v", i, want[i], m.Tables[i])
		}
	}
	if m.Policies[0].String() != "public.vehicles:Vehicles are readable" {
		t.Fatalf("unexpected policy %s", m.Policies[0])
	}
	if m.Buckets[0] != "vehicle-photos" || m.Probes[0] != "vehicles" {
		t.Fatalf("unexpected buckets/probes %v %v", m.Buckets, m.Probes)
	}
}

func TestManifest_RejectsEmptyTable(t *testing.T) {
	var m Manifest
	err := yaml.Unmarshal([]byte("tables:\n  - {schema: public}\n"), &m)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for table without name, got %v", err)
	}
	if verr.Message != "table name is empty" {
		t.Fatalf("unexpected message %q", verr.Message)
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name:    "Error with field and message",
			err:     &ValidationError{Field: "line 3", Message: "table name is empty"},
			wantMsg: "line 3: table name is empty",
		},
		{
			name:    "Error with only message",
			err:     &ValidationError{Message: "validation failed"},
			wantMsg: "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %v, want %v", got, tt.wantMsg)
			}
		})
	}
}
