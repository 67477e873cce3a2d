package infra

import (
	"context"
	"fmt"
	"io"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/config"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Catalog store backends.
const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// CatalogCollections reads the three collection names from config.
func CatalogCollections(cfg *config.Config) repository.Collections {
	return repository.Collections{
		Master: cfg.MasterCollection,
		Public: cfg.PublicCollection,
		Admin:  cfg.AdminCollection,
	}
}

// OpenCatalogStore builds the document repository selected by CATALOG_STORE.
// The returned closer releases backend clients and is never nil.
func OpenCatalogStore(ctx context.Context, cfg *config.Config, db *gorm.DB, app *firebase.App) (repository.DocumentRepository, io.Closer, error) {
	cols := CatalogCollections(cfg)
	switch cfg.CatalogStore {
	case StorePostgres, "":
		if db == nil {
			return nil, nopCloser{}, fmt.Errorf("catalog store postgres: sin conexión a la base")
		}
		repo, err := repository.NewDocumentRepository(db, cols)
		return repo, nopCloser{}, err
	case StoreFirestore:
		if app == nil {
			return nil, nopCloser{}, fmt.Errorf("catalog store firestore: FIREBASE_PROJECT_ID requerido")
		}
		client, err := NewFirestore(ctx, app)
		if err != nil {
			return nil, nopCloser{}, err
		}
		repo, err := repository.NewFirestoreDocumentRepository(client, cols)
		if err != nil {
			_ = client.Close()
			return nil, nopCloser{}, err
		}
		return repo, client, nil
	case StoreMemory:
		log.Warn().Msg("catalog store en memoria: los datos se pierden al reiniciar")
		repo, err := repository.NewMemoryDocumentRepository(cols)
		return repo, nopCloser{}, err
	default:
		return nil, nopCloser{}, fmt.Errorf("CATALOG_STORE desconocido: %q", cfg.CatalogStore)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FirebaseAppFor returns nil when neither the catalog store nor the identity
// provider uses Firebase.
func FirebaseAppFor(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	if cfg.CatalogStore != StoreFirestore && cfg.IdentityProvider != IdentityFirebase {
		return nil, nil
	}
	return NewFirebaseApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredsFile)
}

// NewIdentityVerifier builds the verifier selected by IDENTITY_PROVIDER.
// Returns nil when no secret is configured so bearer auth is refused.
func NewIdentityVerifier(ctx context.Context, cfg *config.Config, app *firebase.App) (IdentityVerifier, error) {
	switch cfg.IdentityProvider {
	case IdentityFirebase:
		if app == nil {
			return nil, fmt.Errorf("identity firebase: app no inicializada")
		}
		return NewFirebaseVerifier(ctx, app)
	case IdentityJWT, "":
		if cfg.AdminJWTSecret == "" {
			log.Warn().Msg("ADMIN_JWT_SECRET vacío: acceso admin solo por sesión")
			return nil, nil
		}
		return NewJWTVerifier(cfg.AdminJWTSecret), nil
	default:
		return nil, fmt.Errorf("IDENTITY_PROVIDER desconocido: %q", cfg.IdentityProvider)
	}
}
