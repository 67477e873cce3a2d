package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.AdminSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[uuid.UUID]model.AdminSession{}}
}

func (r *memSessionRepo) Create(_ context.Context, s *model.AdminSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.AdminSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memSessionRepo) Revoke(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.RevokedAt = &at
	r.sessions[id] = s
	return nil
}

const (
	testPassword  = "haruja-2025"
	testJWTSecret = "test-secret-with-enough-bytes-123"
)

type adminFixture struct {
	svc   AdminService
	clock time.Time
}

func newAdminFixture(t *testing.T, cfg AdminGateConfig) *adminFixture {
	t.Helper()
	if cfg.PasswordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
		require.NoError(t, err)
		cfg.PasswordHash = string(hash)
	}
	f := &adminFixture{clock: testNow}
	f.svc = NewAdminService(newMemSessionRepo(), infra.NewJWTVerifier(testJWTSecret), cfg, func() time.Time { return f.clock })
	return f
}

func codeOf(err error) apierror.Code {
	return apierror.From(err).Code
}

func TestCreateSession_PasswordChecks(t *testing.T) {
	f := newAdminFixture(t, AdminGateConfig{SessionTTL: time.Hour})
	ctx := context.Background()

	_, err := f.svc.CreateSession(ctx, "")
	assert.Equal(t, apierror.InvalidArgument, codeOf(err))

	_, err = f.svc.CreateSession(ctx, "otra")
	assert.Equal(t, apierror.PermissionDenied, codeOf(err))

	sess, err := f.svc.CreateSession(ctx, testPassword)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), sess.ExpiresAt)
	_, err = uuid.Parse(sess.SessionID)
	assert.NoError(t, err)
}

func TestCreateSession_BadHashConfig(t *testing.T) {
	f := newAdminFixture(t, AdminGateConfig{PasswordHash: "not-a-bcrypt-hash"})
	_, err := f.svc.CreateSession(context.Background(), testPassword)
	assert.Equal(t, apierror.FailedPrecondition, codeOf(err))
}

func TestVerifySession_ExpiryBoundary(t *testing.T) {
	f := newAdminFixture(t, AdminGateConfig{SessionTTL: time.Hour})
	ctx := context.Background()
	sess, err := f.svc.CreateSession(ctx, testPassword)
	require.NoError(t, err)

	f.clock = sess.ExpiresAt.Add(-time.Millisecond)
	_, err = f.svc.VerifySession(ctx, sess.SessionID)
	assert.NoError(t, err)

	f.clock = sess.ExpiresAt
	_, err = f.svc.VerifySession(ctx, sess.SessionID)
	assert.NoError(t, err, "valid at exactly expiresAt")

	f.clock = sess.ExpiresAt.Add(time.Millisecond)
	_, err = f.svc.VerifySession(ctx, sess.SessionID)
	assert.Equal(t, apierror.PermissionDenied, codeOf(err))
}

func TestVerifySession_Rejections(t *testing.T) {
	f := newAdminFixture(t, AdminGateConfig{})
	ctx := context.Background()

	_, err := f.svc.VerifySession(ctx, "")
	assert.Equal(t, apierror.Unauthenticated, codeOf(err))
	_, err = f.svc.VerifySession(ctx, "not-a-uuid")
	assert.Equal(t, apierror.PermissionDenied, codeOf(err))
	_, err = f.svc.VerifySession(ctx, uuid.NewString())
	assert.Equal(t, apierror.PermissionDenied, codeOf(err))

	sess, err := f.svc.CreateSession(ctx, testPassword)
	require.NoError(t, err)
	require.NoError(t, f.svc.RevokeSession(ctx, sess.SessionID))
	_, err = f.svc.VerifySession(ctx, sess.SessionID)
	assert.Equal(t, apierror.PermissionDenied, codeOf(err))

	assert.Equal(t, apierror.NotFound, codeOf(f.svc.RevokeSession(ctx, uuid.NewString())))
}

func TestAuthorizeBearer_Allowlist(t *testing.T) {
	f := newAdminFixture(t, AdminGateConfig{Allowlist: []string{" Admin@Haruja.mx ", ""}})
	ctx := context.Background()

	tok, err := infra.IssueAdminToken(testJWTSecret, "uid-1", "admin@HARUJA.mx", time.Hour)
	require.NoError(t, err)
	ident, err := f.svc.AuthorizeBearer(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", ident.UID)
	assert.Equal(t, "admin@HARUJA.mx", ident.Email)

	outsider, err := infra.IssueAdminToken(testJWTSecret, "uid-2", "intruso@haruja.mx", time.Hour)
	require.NoError(t, err)
	_, err = f.svc.AuthorizeBearer(ctx, outsider)
	assert.Equal(t, apierror.PermissionDenied, codeOf(err))

	forged, err := infra.IssueAdminToken("other-secret-other-secret-123456", "uid-1", "admin@haruja.mx", time.Hour)
	require.NoError(t, err)
	_, err = f.svc.AuthorizeBearer(ctx, forged)
	assert.Equal(t, apierror.PermissionDenied, codeOf(err))

	expired, err := infra.IssueAdminToken(testJWTSecret, "uid-1", "admin@haruja.mx", -time.Minute)
	require.NoError(t, err)
	_, err = f.svc.AuthorizeBearer(ctx, expired)
	assert.Equal(t, apierror.PermissionDenied, codeOf(err))

	_, err = f.svc.AuthorizeBearer(ctx, "")
	assert.Equal(t, apierror.Unauthenticated, codeOf(err))
}

func TestAuthorizeBearer_NotConfigured(t *testing.T) {
	f := newAdminFixture(t, AdminGateConfig{})
	_, err := f.svc.AuthorizeBearer(context.Background(), "whatever")
	assert.Equal(t, apierror.FailedPrecondition, codeOf(err))
}
