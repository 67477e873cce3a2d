package infra

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/config"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// ── Circuit breaker ──────────────────────────────────────────────────────────

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return clock }
	boom := errors.New("boom")

	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, CBOpen, cb.State())

	called := false
	assert.ErrorIs(t, cb.Execute(func() error { called = true; return nil }), ErrCircuitOpen)
	assert.False(t, called)

	clock = clock.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, CBOpen, cb.State(), "a failed trial call reopens")

	clock = clock.Add(time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

// ── Spreadsheets ─────────────────────────────────────────────────────────────

func TestReadRows_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Código", "Descripción", "Fecha Alta"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"HA4A001/AM-M", "Blusa", 45356}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	rows, err := ReadRows(&buf, "Inventario.XLSX")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Código", rows[0][0])
	assert.Equal(t, "HA4A001/AM-M", rows[1][0])
	assert.Equal(t, "45356", rows[1][2], "dates arrive as raw serials")
}

func TestReadRows_CSV(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("\xef\xbb\xbfCódigo;Precio\nHA4A001/AM-M;\"1,200.00\"\n"), "inv.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Código", rows[0][0])
	assert.Equal(t, "1,200.00", rows[1][1])

	rows, err = ReadRows(strings.NewReader("codigo,precio\nHA4A001/AM-M,10\nHA4A002/AM-M\n"), "inv.csv")
	require.NoError(t, err)
	assert.Len(t, rows, 3, "ragged rows are accepted")
}

func TestReadRows_Unsupported(t *testing.T) {
	_, err := ReadRows(strings.NewReader("x"), "inventario.ods")
	assert.ErrorIs(t, err, ErrUnsupportedSpreadsheet)
}

// ── Labels ───────────────────────────────────────────────────────────────────

func TestZPLLabel(t *testing.T) {
	zpl := ZPLLabel("HA4A001/AM-M^XZ", 349.5)
	assert.True(t, strings.HasPrefix(zpl, "^XA\n"))
	assert.True(t, strings.HasSuffix(zpl, "^XZ\n"))
	assert.Contains(t, zpl, "^FD$349.50^FS")
	assert.Contains(t, zpl, "^FDHA4A001/AM-MXZ^FS", "command characters are stripped")
	assert.Equal(t, 1, strings.Count(zpl, "^XZ"))
}

// ── Identity ─────────────────────────────────────────────────────────────────

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier("secret-secret-secret-secret-1234")
	ctx := context.Background()

	tok, err := IssueAdminToken("secret-secret-secret-secret-1234", "uid-7", "admin@haruja.mx", time.Hour)
	require.NoError(t, err)
	ident, err := v.VerifyIDToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-7", ident.UID)
	assert.Equal(t, "admin@haruja.mx", ident.Email)

	noEmail, err := IssueAdminToken("secret-secret-secret-secret-1234", "uid-7", "", time.Hour)
	require.NoError(t, err)
	_, err = v.VerifyIDToken(ctx, noEmail)
	assert.ErrorIs(t, err, ErrTokenWithoutEmail)

	_, err = v.VerifyIDToken(ctx, "not.a.jwt")
	assert.Error(t, err)
}

func TestNewIdentityVerifier(t *testing.T) {
	ctx := context.Background()

	v, err := NewIdentityVerifier(ctx, &config.Config{IdentityProvider: IdentityJWT, AdminJWTSecret: "s"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &JWTVerifier{}, v)

	v, err = NewIdentityVerifier(ctx, &config.Config{IdentityProvider: IdentityJWT}, nil)
	require.NoError(t, err)
	assert.Nil(t, v, "no secret disables bearer access")

	_, err = NewIdentityVerifier(ctx, &config.Config{IdentityProvider: "ldap"}, nil)
	assert.Error(t, err)
}

// ── Loyalty card PDF ─────────────────────────────────────────────────────────

func TestGenerateLoyaltyCardPDF(t *testing.T) {
	c := &model.LoyaltyClient{
		ClientID:       "HCL-0042",
		Name:           "Ángela Ruiz",
		Points:         320,
		Level:          "Plata",
		TotalPurchases: decimal.RequireFromString("3200.00"),
		QRLink:         "https://haruja.example.com/tarjeta-lealtad.html?token=abc",
	}
	pdf, err := GenerateLoyaltyCardPDF(c, []string{"* 10% descuento", "* $120 descuento", "  $250 descuento"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

// ── Catalog store selection ──────────────────────────────────────────────────

func TestOpenCatalogStore_Memory(t *testing.T) {
	cfg := &config.Config{
		CatalogStore:     StoreMemory,
		MasterCollection: "prendas",
		PublicCollection: "prendas_public",
		AdminCollection:  "prendas_admin",
	}
	docs, closer, err := OpenCatalogStore(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, docs)
	assert.NoError(t, closer.Close())

	cfg.CatalogStore = "mongo"
	_, _, err = OpenCatalogStore(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
