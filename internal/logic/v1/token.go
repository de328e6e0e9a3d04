package v1

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes the two bearer token flavors.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// tokenClaims is the signed claim set: standard sub/exp plus the token kind.
type tokenClaims struct {
	jwt.RegisteredClaims
	TokenType TokenKind `json:"type"`
}

// signer issues and validates tokens of exactly one kind with its own
// secret. Keeping access and refresh as two separate signers makes
// wrong-secret rejection structural: a refresh token can never verify
// against the access signer, whatever its claims say.
type signer struct {
	kind   TokenKind
	secret []byte
	ttl    time.Duration
	method jwt.SigningMethod
}

func (s signer) issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(s.method, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		TokenType: s.kind,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", s.kind, err)
	}

	return signed, nil
}

func (s signer) validate(tokenString string) (string, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse %s token: %w", s.kind, ErrInvalidToken)
	}
	if !token.Valid || claims.Subject == "" || claims.TokenType != s.kind {
		return "", fmt.Errorf("validate %s token claims: %w", s.kind, ErrInvalidToken)
	}

	return claims.Subject, nil
}

// TokenService mints and validates the stateless bearer tokens that gate
// every request. Validity is fully determined by signature and expiry;
// there is no server-side revocation list.
type TokenService struct {
	access  signer
	refresh signer
}

// NewTokenService builds the two signers from process-wide immutable
// configuration. The algorithm applies to both kinds; the secrets and TTLs
// are independent.
func NewTokenService(algorithm string, accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *TokenService {
	method := jwt.GetSigningMethod(algorithm)

	return &TokenService{
		access:  signer{kind: TokenKindAccess, secret: accessSecret, ttl: accessTTL, method: method},
		refresh: signer{kind: TokenKindRefresh, secret: refreshSecret, ttl: refreshTTL, method: method},
	}
}

// AccessTTL returns the access token lifetime, used for cookie max-age.
func (t *TokenService) AccessTTL() time.Duration { return t.access.ttl }

// RefreshTTL returns the refresh token lifetime, used for cookie max-age.
func (t *TokenService) RefreshTTL() time.Duration { return t.refresh.ttl }

// Issue mints a fresh access/refresh token pair for the user.
func (t *TokenService) Issue(userID string) (accessToken, refreshToken string, err error) {
	accessToken, err = t.access.issue(userID)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = t.refresh.issue(userID)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// IssueAccess mints only an access token. Used on refresh so the refresh
// token's lifetime is never extended.
func (t *TokenService) IssueAccess(userID string) (string, error) {
	return t.access.issue(userID)
}

// Validate verifies the token against the secret for the expected kind and
// returns the subject user id. Any failure — bad signature, expiry, missing
// subject, or kind mismatch — surfaces as ErrInvalidToken.
func (t *TokenService) Validate(tokenString string, kind TokenKind) (string, error) {
	if kind == TokenKindRefresh {
		return t.refresh.validate(tokenString)
	}
	return t.access.validate(tokenString)
}
