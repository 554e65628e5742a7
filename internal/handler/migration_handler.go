package handler

import (
	"net/http"
	"strconv"

	"vehicle-data-tools/internal/domain"
)

const maxRunsLimit = 500

// MigrationHandler serves read-only migration state
type MigrationHandler struct {
	status   domain.MigrationStatusReader
	verifier domain.Verifier
	ledger   domain.RunLedger
	verify   domain.VerifyOptions
	logger   domain.Logger
}

// NewMigrationHandler creates a new migration handler. verify holds the
// directory, manifest and probes used by the verify endpoint.
func NewMigrationHandler(
	status domain.MigrationStatusReader,
	verifier domain.Verifier,
	ledger domain.RunLedger,
	verify domain.VerifyOptions,
	logger domain.Logger,
) *MigrationHandler {
	return &MigrationHandler{
		status:   status,
		verifier: verifier,
		ledger:   ledger,
		verify:   verify,
		logger:   logger,
	}
}

type migrationItem struct {
	Version  string `json:"version"`
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Applied  bool   `json:"applied"`
}

// ListMigrations returns local migrations with their applied state
func (h *MigrationHandler) ListMigrations(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.status.Status(r.Context(), h.verify.Dir)
	if err != nil {
		writeAppError(w, h.logger, "Failed to read migration status", err)
		return
	}

	items := make([]migrationItem, len(statuses))
	pending := 0
	for i, s := range statuses {
		items[i] = migrationItem{
			Version:  s.Migration.Version,
			Name:     s.Migration.Name,
			Checksum: s.Migration.Checksum,
			Applied:  s.Applied,
		}
		if !s.Applied {
			pending++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"migrations": items,
		"total":      len(items),
		"pending":    pending,
	})
}

// ListRuns returns ledger rows, newest first
func (h *MigrationHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := h.ledger.List(r.Context(), limit)
	if err != nil {
		writeAppError(w, h.logger, "Failed to read migration runs", err)
		return
	}
	if runs == nil {
		runs = []*domain.MigrationRun{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Verify runs a verification and responds 409 when it finds problems
func (h *MigrationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	caller := "anonymous"
	if user, ok := GetUserFromContext(r); ok && user != nil {
		caller = user.ID
	}
	h.logger.Info("Verification requested", "user_id", caller)

	report, err := h.verifier.Verify(r.Context(), h.verify)
	if err != nil {
		writeAppError(w, h.logger, "Verification failed", err)
		return
	}

	status := http.StatusOK
	if !report.OK() {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]interface{}{
		"ok":       report.OK(),
		"findings": report.Findings,
		"missing":  report.Count(domain.CheckMissing),
		"drift":    report.Count(domain.CheckDrift),
		"errors":   report.Count(domain.CheckError),
	})
}
