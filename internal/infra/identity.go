package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

// IDENTITY_PROVIDER values.
const (
	IdentityJWT      = "jwt"
	IdentityFirebase = "firebase"
)

// Identity is the verified caller behind an ID token.
type Identity struct {
	UID   string
	Email string
}

// IdentityVerifier turns an opaque ID token into a verified identity.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*Identity, error)
}

var ErrTokenWithoutEmail = errors.New("token sin email")

// ── HMAC JWT ──────────────────────────────────────────────────────────────────

// AdminClaims are the claims carried by locally issued admin tokens.
type AdminClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) VerifyIDToken(_ context.Context, tokenStr string) (*Identity, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.Email == "" {
		return nil, ErrTokenWithoutEmail
	}
	return &Identity{UID: claims.Subject, Email: claims.Email}, nil
}

// IssueAdminToken signs a token the JWTVerifier accepts.
func IssueAdminToken(secret, uid, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ── Firebase Auth ─────────────────────────────────────────────────────────────

// FirebaseVerifier validates Firebase Auth ID tokens.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, app *firebase.App) (*FirebaseVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	email, _ := tok.Claims["email"].(string)
	if email == "" {
		return nil, ErrTokenWithoutEmail
	}
	return &Identity{UID: tok.UID, Email: email}, nil
}
