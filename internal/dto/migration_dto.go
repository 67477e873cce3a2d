package dto

// Migration kinds, also used as path segment and queue payload tag.
const (
	MigrationProjection   = "projection"
	MigrationSearchTokens = "search-tokens"
	MigrationCanonical    = "canonical"
)

// ValidMigrationKind reports whether kind names a known migration.
func ValidMigrationKind(kind string) bool {
	switch kind {
	case MigrationProjection, MigrationSearchTokens, MigrationCanonical:
		return true
	}
	return false
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type PageRequest struct {
	Cursor   string `json:"cursor"   validate:"max=1500"`
	PageSize int    `json:"pageSize" validate:"min=0"`
	DryRun   bool   `json:"dryRun"`
}

type BackfillRequest struct {
	Cursor    string `json:"cursor"    validate:"max=1500"`
	BatchSize int    `json:"batchSize" validate:"min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// RecordError is one skipped record. DocID is set by migrations, Row by imports.
type RecordError struct {
	DocID  string `json:"docId,omitempty"`
	Row    int    `json:"row,omitempty"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
}

type MigrateResult struct {
	Scanned       int           `json:"scanned"`
	Processed     int           `json:"processed"`
	WrittenPublic int           `json:"writtenPublic"`
	WrittenAdmin  int           `json:"writtenAdmin"`
	LastDocID     string        `json:"lastDocId"`
	HasMore       bool          `json:"hasMore"`
	DryRun        bool          `json:"dryRun"`
	Errors        []RecordError `json:"errors"`
}

type CanonicalizeResult struct {
	Scanned       int           `json:"scanned"`
	Candidates    int           `json:"candidates"`
	WrittenMaster int           `json:"writtenMaster"`
	LastDocID     string        `json:"lastDocId"`
	HasMore       bool          `json:"hasMore"`
	DryRun        bool          `json:"dryRun"`
	Errors        []RecordError `json:"errors"`
}

type BackfillResult struct {
	Processed int    `json:"processed"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	LastDocID string `json:"lastDocId"`
	HasMore   bool   `json:"hasMore"`
}

// PageOutcome is the kind-independent part of a page result, used by the
// worker to decide whether to continue.
type PageOutcome struct {
	Kind      string `json:"kind"`
	LastDocID string `json:"lastDocId"`
	HasMore   bool   `json:"hasMore"`
	Errors    int    `json:"errors"`
}

type CheckpointResponse struct {
	Kind   string `json:"kind"`
	Cursor string `json:"cursor"`
}
