package repository

import (
	"context"
	"fmt"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/search"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreWriteLimit is the per-transaction write ceiling of the platform.
const FirestoreWriteLimit = 500

type firestoreDocumentoRepo struct {
	client *firestore.Client
	cols   Collections
}

// NewFirestoreDocumentRepository stores the catalog in Firestore collections.
func NewFirestoreDocumentRepository(client *firestore.Client, cols Collections) (DocumentRepository, error) {
	if err := cols.Validate(); err != nil {
		return nil, err
	}
	return &firestoreDocumentoRepo{client: client, cols: cols}, nil
}

func (r *firestoreDocumentoRepo) collection(name string) (*firestore.CollectionRef, error) {
	if !r.cols.Has(name) {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	return r.client.Collection(name), nil
}

func (r *firestoreDocumentoRepo) Get(ctx context.Context, collection, id string) (*Document, error) {
	col, err := r.collection(collection)
	if err != nil {
		return nil, err
	}
	snap, err := col.Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return &Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (r *firestoreDocumentoRepo) PageAfter(ctx context.Context, collection, cursor string, limit int) ([]Document, error) {
	col, err := r.collection(collection)
	if err != nil {
		return nil, err
	}
	q := col.OrderBy(firestore.DocumentID, firestore.Asc)
	if cursor != "" {
		q = q.StartAfter(cursor)
	}
	snaps, err := q.Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("page %s after %q: %w", collection, cursor, err)
	}
	return snapshotsToDocuments(snaps), nil
}

// SearchTokens filters on the first token server side (Firestore allows one
// array-contains per query) and on the rest in memory.
func (r *firestoreDocumentoRepo) SearchTokens(ctx context.Context, collection string, tokens []string, limit int) ([]Document, error) {
	col, err := r.collection(collection)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	iter := col.Where("searchTokens", "array-contains", tokens[0]).Documents(ctx)
	defer iter.Stop()

	var out []Document
	for len(out) < limit {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("search %s: %w", collection, err)
		}
		data := snap.Data()
		if search.ContainsAll(data, tokens[1:]) {
			out = append(out, Document{ID: snap.Ref.ID, Data: data})
		}
	}
	return out, nil
}

// CommitMerge runs in a transaction so OnCreate fields can be decided from a
// consistent read; Firestore requires every read before the first write.
func (r *firestoreDocumentoRepo) CommitMerge(ctx context.Context, writes []DocWrite) error {
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > FirestoreWriteLimit {
		return fmt.Errorf("batch of %d writes exceeds limit %d", len(writes), FirestoreWriteLimit)
	}
	refs := make([]*firestore.DocumentRef, len(writes))
	for i, w := range writes {
		col, err := r.collection(w.Collection)
		if err != nil {
			return err
		}
		refs[i] = col.Doc(w.ID)
	}
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var snaps []*firestore.DocumentSnapshot
		if needsExistence(writes) {
			var err error
			if snaps, err = tx.GetAll(refs); err != nil {
				return err
			}
		}
		for i, w := range writes {
			data := make(map[string]interface{}, len(w.Data)+len(w.OnCreate))
			if len(w.OnCreate) > 0 && snaps != nil && !snaps[i].Exists() {
				for k, v := range w.OnCreate {
					data[k] = v
				}
			}
			for k, v := range w.Data {
				data[k] = v
			}
			if err := tx.Set(refs[i], data, firestore.MergeAll); err != nil {
				return err
			}
		}
		return nil
	})
}

func needsExistence(writes []DocWrite) bool {
	for _, w := range writes {
		if len(w.OnCreate) > 0 {
			return true
		}
	}
	return false
}

func snapshotsToDocuments(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, s := range snaps {
		docs = append(docs, Document{ID: s.Ref.ID, Data: s.Data()})
	}
	return docs
}
