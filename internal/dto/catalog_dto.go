package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SearchRequest struct {
	Q     string `form:"q"     validate:"required,min=1,max=200"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=50"`
}

type ImportOptions struct {
	Source string
	DryRun bool
	// HeaderAliases adds spreadsheet header names per canonical field,
	// tried before the built-in ones.
	HeaderAliases map[string][]string
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	DryRun   bool          `json:"dryRun"`
	Errors   []RecordError `json:"errors"`
}

type PrendaResponse struct {
	DocID string         `json:"docId"`
	Data  map[string]any `json:"data"`
}

type SearchResponse struct {
	Query   string           `json:"query"`
	Tokens  []string         `json:"tokens"`
	Results []PrendaResponse `json:"results"`
}

// SKUCounter is the highest sequence seen for one provider/type pair.
// Next is what the following code of that pair should use.
type SKUCounter struct {
	Key            string     `json:"key"`
	LastSeq        int        `json:"lastSeq"`
	Next           int        `json:"next"`
	TotalCodesSeen int        `json:"totalCodesSeen,omitempty"`
	SampleLastCode string     `json:"sampleLastCode,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

type CounterSeedResult struct {
	TotalRows  int           `json:"totalRows"`
	ValidCodes int           `json:"validCodes"`
	Counters   []SKUCounter  `json:"counters"`
	Written    int           `json:"written"`
	DryRun     bool          `json:"dryRun"`
	Errors     []RecordError `json:"errors"`
}
