package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/search"
)

// MemoryDocumentRepository keeps the catalog in process memory. It backs
// CATALOG_STORE=memory for local runs and the service tests.
type MemoryDocumentRepository struct {
	mu   sync.RWMutex
	cols Collections
	docs map[string]map[string]map[string]any

	// FailCommits makes the next N CommitMerge calls fail without writing.
	FailCommits int
	// Commits counts successful CommitMerge calls.
	Commits int
}

var _ DocumentRepository = (*MemoryDocumentRepository)(nil)

func NewMemoryDocumentRepository(cols Collections) (*MemoryDocumentRepository, error) {
	if err := cols.Validate(); err != nil {
		return nil, err
	}
	docs := make(map[string]map[string]map[string]any, 3)
	for _, c := range cols.All() {
		docs[c] = make(map[string]map[string]any)
	}
	return &MemoryDocumentRepository{cols: cols, docs: docs}, nil
}

func (r *MemoryDocumentRepository) Get(_ context.Context, collection, id string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	col, ok := r.docs[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	data, ok := col[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &Document{ID: id, Data: copyMap(data)}, nil
}

func (r *MemoryDocumentRepository) PageAfter(_ context.Context, collection, cursor string, limit int) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	col, ok := r.docs[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	out := []Document{}
	for _, id := range sortedKeys(col) {
		if id <= cursor {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, Document{ID: id, Data: copyMap(col[id])})
	}
	return out, nil
}

func (r *MemoryDocumentRepository) SearchTokens(_ context.Context, collection string, tokens []string, limit int) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	col, ok := r.docs[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	var out []Document
	for _, id := range sortedKeys(col) {
		if len(out) == limit {
			break
		}
		if search.ContainsAll(col[id], tokens) {
			out = append(out, Document{ID: id, Data: copyMap(col[id])})
		}
	}
	return out, nil
}

func (r *MemoryDocumentRepository) CommitMerge(_ context.Context, writes []DocWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCommits > 0 {
		r.FailCommits--
		return fmt.Errorf("commit rejected")
	}
	for _, w := range writes {
		if _, ok := r.docs[w.Collection]; !ok {
			return fmt.Errorf("unknown collection %q", w.Collection)
		}
	}
	for _, w := range writes {
		col := r.docs[w.Collection]
		cur, exists := col[w.ID]
		if !exists {
			cur = copyMap(w.OnCreate)
		}
		for k, v := range w.Data {
			cur[k] = v
		}
		col[w.ID] = cur
	}
	r.Commits++
	return nil
}

// Put stores a raw document, replacing any previous one.
func (r *MemoryDocumentRepository) Put(collection, id string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[collection][id] = copyMap(data)
}

// Len returns the number of documents in a collection.
func (r *MemoryDocumentRepository) Len(collection string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs[collection])
}

func sortedKeys(m map[string]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
