package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims issued by the hosted auth provider.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Tokens issues and decodes HS256 access tokens. With an empty secret, Parse
// decodes without verifying the signature; that is only useful for reading
// the expiry of tokens the provider already vouched for.
type Tokens struct {
	secret []byte
	issuer string
}

// NewTokens builds a token helper for the project JWT secret.
func NewTokens(secret []byte, issuer string) *Tokens {
	return &Tokens{secret: secret, issuer: issuer}
}

// Issue signs an access token for userID valid for ttl from now.
func (t *Tokens) Issue(userID, email string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, errors.New("token secret not configured")
	}
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
		Role:  "authenticated",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// Parse decodes an access token. Expiry is not enforced here; callers decide
// whether an expired token should be refreshed or rejected.
func (t *Tokens) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	if len(t.secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("decode access token: %w", err)
		}
		return claims, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	return claims, nil
}

// ExpiresAt returns the token's exp claim, or the zero time when absent.
func (t *Tokens) ExpiresAt(token string) (time.Time, error) {
	claims, err := t.Parse(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
