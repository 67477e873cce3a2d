package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDocumentNotFound is returned by Get when the key does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// Collections names the three fixed catalog collections.
type Collections struct {
	Master string
	Public string
	Admin  string
}

var collectionName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate rejects empty, duplicate or non-identifier names. Postgres uses
// the names as table identifiers, so this is also the injection guard.
func (c Collections) Validate() error {
	names := []string{c.Master, c.Public, c.Admin}
	seen := map[string]bool{}
	for _, n := range names {
		if !collectionName.MatchString(n) {
			return fmt.Errorf("invalid collection name %q", n)
		}
		if seen[n] {
			return fmt.Errorf("duplicate collection name %q", n)
		}
		seen[n] = true
	}
	return nil
}

// Has reports whether name is one of the three catalog collections.
func (c Collections) Has(name string) bool {
	return name != "" && (name == c.Master || name == c.Public || name == c.Admin)
}

// All returns the names in master, public, admin order.
func (c Collections) All() []string { return []string{c.Master, c.Public, c.Admin} }

// Document is a catalog document with its key.
type Document struct {
	ID   string
	Data map[string]any
}

// DocWrite is a merge write: keys in Data replace stored keys, absent keys are
// left untouched. OnCreate keys are written only when the document is new.
type DocWrite struct {
	Collection string
	ID         string
	Data       map[string]any
	OnCreate   map[string]any
}

// DocumentRepository is the catalog document store contract.
type DocumentRepository interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	// PageAfter returns up to limit documents with id strictly greater than
	// cursor, ordered by id ascending. An empty cursor starts from the beginning.
	PageAfter(ctx context.Context, collection, cursor string, limit int) ([]Document, error)
	// SearchTokens returns documents whose searchTokens contain every token.
	SearchTokens(ctx context.Context, collection string, tokens []string, limit int) ([]Document, error)
	// CommitMerge applies all writes atomically: all land or none do.
	CommitMerge(ctx context.Context, writes []DocWrite) error
}

type documentoRepo struct {
	db   *gorm.DB
	cols Collections
	now  func() time.Time
}

// NewDocumentRepository returns the Postgres jsonb implementation.
func NewDocumentRepository(db *gorm.DB, cols Collections) (DocumentRepository, error) {
	if err := cols.Validate(); err != nil {
		return nil, err
	}
	return &documentoRepo{db: db, cols: cols, now: time.Now}, nil
}

func (r *documentoRepo) table(collection string) (string, error) {
	if !r.cols.Has(collection) {
		return "", fmt.Errorf("unknown collection %q", collection)
	}
	return collection, nil
}

func (r *documentoRepo) Get(ctx context.Context, collection, id string) (*Document, error) {
	t, err := r.table(collection)
	if err != nil {
		return nil, err
	}
	var d model.Documento
	err = r.db.WithContext(ctx).Table(t).Where("doc_id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", t, id, err)
	}
	return &Document{ID: d.DocID, Data: map[string]any(d.Data)}, nil
}

// PageAfter compares ids with the C collation so ordering is bytewise, the
// same order Firestore uses for document ids.
func (r *documentoRepo) PageAfter(ctx context.Context, collection, cursor string, limit int) ([]Document, error) {
	t, err := r.table(collection)
	if err != nil {
		return nil, err
	}
	var rows []model.Documento
	err = r.db.WithContext(ctx).Table(t).
		Where(`doc_id COLLATE "C" > ?`, cursor).
		Order(`doc_id COLLATE "C" ASC`).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("page %s after %q: %w", t, cursor, err)
	}
	return toDocuments(rows), nil
}

func (r *documentoRepo) SearchTokens(ctx context.Context, collection string, tokens []string, limit int) ([]Document, error) {
	t, err := r.table(collection)
	if err != nil {
		return nil, err
	}
	needle, err := json.Marshal(tokens)
	if err != nil {
		return nil, err
	}
	var rows []model.Documento
	err = r.db.WithContext(ctx).Table(t).
		Where(`data->'searchTokens' @> ?::jsonb`, string(needle)).
		Order(`doc_id COLLATE "C" ASC`).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", t, err)
	}
	return toDocuments(rows), nil
}

// CommitMerge upserts every write in one transaction. On conflict the stored
// jsonb is merged with the new keys (data || excluded) so fields absent from
// the write survive.
func (r *documentoRepo) CommitMerge(ctx context.Context, writes []DocWrite) error {
	if len(writes) == 0 {
		return nil
	}
	now := r.now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range writes {
			t, err := r.table(w.Collection)
			if err != nil {
				return err
			}
			insert := make(map[string]any, len(w.Data)+len(w.OnCreate))
			for k, v := range w.OnCreate {
				insert[k] = v
			}
			for k, v := range w.Data {
				insert[k] = v
			}
			row := model.Documento{DocID: w.ID, Data: datatypes.JSONMap(insert), CreatedAt: now, UpdatedAt: now}
			err = tx.Table(t).Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "doc_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"data":       gorm.Expr(t+".data || ?::jsonb", datatypes.JSONMap(w.Data)),
					"updated_at": now,
				}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("merge %s/%s: %w", t, w.ID, err)
			}
		}
		return nil
	})
}

func toDocuments(rows []model.Documento) []Document {
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, Document{ID: row.DocID, Data: map[string]any(row.Data)})
	}
	return docs
}
