// Package search builds the token index stored on every master record and
// decides when that index is stale.
package search

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
)

// Version is bumped whenever tokenization changes; records below it are rebuilt.
const Version = 1

// Stored index field names.
const (
	FieldCodigoLower      = "codigoLower"
	FieldDescripcionLower = "descripcionLower"
	FieldTokens           = "searchTokens"
	FieldVersion          = "searchVersion"
	FieldUpdatedAt        = "searchUpdatedAt"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	stopwords = map[string]struct{}{
		"de": {}, "la": {}, "el": {}, "los": {}, "las": {}, "y": {}, "o": {},
		"en": {}, "para": {}, "con": {}, "sin": {}, "un": {}, "una": {},
	}
)

// Tokenize returns the deduplicated, stopword-free tokens of text.
// The result is sorted so that stored token sets compare byte-for-byte;
// callers must still treat it as a set.
func Tokenize(text string) []string {
	normalized := nonAlnum.ReplaceAllString(normalize.NormalizeText(text), " ")
	seen := make(map[string]struct{})
	tokens := []string{}
	for _, tok := range strings.Fields(normalized) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// IndexFields is the search index derived from a record's raw fields.
type IndexFields struct {
	CodigoLower      string
	DescripcionLower string
	Tokens           []string
}

// Compute derives the index from a record. docID stands in for a missing code.
func Compute(docID string, rec map[string]any) IndexFields {
	codigo := normalize.ResolveString(rec, normalize.FieldCodigo)
	if codigo == "" {
		codigo = normalize.FromSafeDocID(docID)
	}
	descripcion := normalize.NormalizeText(normalize.ResolveString(rec, normalize.FieldDescripcion))
	return IndexFields{
		CodigoLower:      normalize.NormalizeSku(codigo),
		DescripcionLower: descripcion,
		Tokens:           Tokenize(descripcion),
	}
}

// Map renders the fields as a merge payload.
func (f IndexFields) Map(now time.Time) map[string]any {
	return map[string]any{
		FieldCodigoLower:      f.CodigoLower,
		FieldDescripcionLower: f.DescripcionLower,
		FieldTokens:           f.Tokens,
		FieldVersion:          Version,
		FieldUpdatedAt:        now,
	}
}

// NeedsUpdate reports whether the stored index is outdated by version, is
// missing, or no longer matches the record's current code/description.
func NeedsUpdate(docID string, rec map[string]any) bool {
	version, _ := normalize.ToInt(rec[FieldVersion])
	if version < Version {
		return true
	}
	if len(StoredTokens(rec)) == 0 {
		return true
	}
	fresh := Compute(docID, rec)
	if normalize.Stringify(rec[FieldCodigoLower]) != fresh.CodigoLower {
		return true
	}
	return normalize.Stringify(rec[FieldDescripcionLower]) != fresh.DescripcionLower
}

// StoredTokens reads the token array regardless of how the store decoded it.
func StoredTokens(rec map[string]any) []string {
	switch v := rec[FieldTokens].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ContainsAll reports whether every query token is present in the record's tokens.
func ContainsAll(rec map[string]any, query []string) bool {
	have := make(map[string]struct{})
	for _, t := range StoredTokens(rec) {
		have[t] = struct{}{}
	}
	for _, q := range query {
		if _, ok := have[q]; !ok {
			return false
		}
	}
	return true
}
