package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultSessionTTL applies when no TTL is configured.
const DefaultSessionTTL = 12 * time.Hour

// AdminService is the admin gate: identity tokens checked against an email
// allowlist, or password-derived sessions stored with an explicit expiry.
type AdminService interface {
	CreateSession(ctx context.Context, password string) (*dto.SessionResponse, error)
	VerifySession(ctx context.Context, sessionID string) (*dto.AdminIdentity, error)
	RevokeSession(ctx context.Context, sessionID string) error
	AuthorizeBearer(ctx context.Context, idToken string) (*dto.AdminIdentity, error)
}

// AdminGateConfig carries the gate secrets and policy.
type AdminGateConfig struct {
	PasswordHash string
	Allowlist    []string
	SessionTTL   time.Duration
}

type adminService struct {
	repo     repository.AdminSessionRepository
	verifier infra.IdentityVerifier
	cfg      AdminGateConfig
	allowed  map[string]bool
	now      func() time.Time
}

func NewAdminService(repo repository.AdminSessionRepository, verifier infra.IdentityVerifier, cfg AdminGateConfig, now func() time.Time) AdminService {
	if now == nil {
		now = time.Now
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	allowed := make(map[string]bool, len(cfg.Allowlist))
	for _, e := range cfg.Allowlist {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			allowed[e] = true
		}
	}
	return &adminService{repo: repo, verifier: verifier, cfg: cfg, allowed: allowed, now: now}
}

func (s *adminService) CreateSession(ctx context.Context, password string) (*dto.SessionResponse, error) {
	if s.cfg.PasswordHash == "" {
		return nil, apierror.New(apierror.FailedPrecondition, "Falta configurar ADMIN_PASSWORD_HASH")
	}
	if strings.TrimSpace(password) == "" {
		return nil, apierror.New(apierror.InvalidArgument, "Contraseña requerida")
	}
	err := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		log.Warn().Msg("admin: contraseña incorrecta")
		return nil, apierror.New(apierror.PermissionDenied, "Contraseña incorrecta")
	}
	if err != nil {
		return nil, apierror.Wrap(apierror.FailedPrecondition, "ADMIN_PASSWORD_HASH inválido", err)
	}

	now := s.now().UTC()
	sess := &model.AdminSession{
		ID:        uuid.New(),
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo crear la sesión", err)
	}
	return &dto.SessionResponse{SessionID: sess.ID.String(), ExpiresAt: sess.ExpiresAt}, nil
}

// VerifySession accepts a session up to and including its expiry instant.
func (s *adminService) VerifySession(ctx context.Context, sessionID string) (*dto.AdminIdentity, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apierror.New(apierror.Unauthenticated, "Sesión requerida")
	}
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, apierror.New(apierror.PermissionDenied, "Sesión inválida")
	}
	sess, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.New(apierror.PermissionDenied, "Sesión inválida")
	}
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo validar la sesión", err)
	}
	if sess.RevokedAt != nil {
		return nil, apierror.New(apierror.PermissionDenied, "Sesión cerrada")
	}
	if s.now().After(sess.ExpiresAt) {
		return nil, apierror.New(apierror.PermissionDenied, "Sesión expirada")
	}
	return &dto.AdminIdentity{SessionID: sess.ID.String()}, nil
}

func (s *adminService) RevokeSession(ctx context.Context, sessionID string) error {
	id, err := uuid.Parse(strings.TrimSpace(sessionID))
	if err != nil {
		return apierror.New(apierror.InvalidArgument, "Sesión inválida")
	}
	err = s.repo.Revoke(ctx, id, s.now().UTC())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.New(apierror.NotFound, "Sesión no encontrada")
	}
	if err != nil {
		return apierror.Wrap(apierror.Internal, "No se pudo cerrar la sesión", err)
	}
	return nil
}

func (s *adminService) AuthorizeBearer(ctx context.Context, idToken string) (*dto.AdminIdentity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, apierror.New(apierror.Unauthenticated, "Token requerido")
	}
	if s.verifier == nil || len(s.allowed) == 0 {
		return nil, apierror.New(apierror.FailedPrecondition, "Acceso por identidad no configurado")
	}
	ident, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		log.Debug().Err(err).Msg("admin: token rechazado")
		return nil, apierror.Wrap(apierror.PermissionDenied, "Token inválido o expirado", err)
	}
	if !s.allowed[strings.ToLower(ident.Email)] {
		log.Warn().Str("email", ident.Email).Msg("admin: email fuera de la lista permitida")
		return nil, apierror.New(apierror.PermissionDenied, "No autorizado")
	}
	return &dto.AdminIdentity{UID: ident.UID, Email: ident.Email}, nil
}
