// Package ssotoken mints the signed artifact the LMS login endpoint
// consumes. The engine only supplies identity fields; any collaborator
// implementing Minter can replace this default.
package ssotoken

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"coursebridge/pkg/domain"
)

// Minter turns a resolved identity into a login URL for the LMS.
type Minter interface {
	LoginURL(identity domain.ResolvedIdentity) (string, error)
}

// JWTMinter signs identity claims with HMAC-SHA256 and appends the token to
// a configured LMS login URL.
type JWTMinter struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	loginURL string
}

// Config holds JWTMinter settings.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
	LoginURL string
}

// New constructs a JWTMinter.
func New(cfg Config) (*JWTMinter, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("sso token secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &JWTMinter{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		loginURL: cfg.LoginURL,
	}, nil
}

// Claims is the identity payload the LMS login endpoint expects.
type Claims struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	jwt.RegisteredClaims
}

// Mint signs a short-lived token carrying the resolved identity.
func (m *JWTMinter) Mint(identity domain.ResolvedIdentity) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Username:  identity.Username,
		Email:     identity.LoginEmail,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			Subject:   fmt.Sprintf("%d", identity.LMSUserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign sso token: %w", err)
	}
	return signed, nil
}

// LoginURL mints a token and builds the URL the browser is redirected to.
func (m *JWTMinter) LoginURL(identity domain.ResolvedIdentity) (string, error) {
	signed, err := m.Mint(identity)
	if err != nil {
		return "", err
	}
	if m.loginURL == "" {
		return signed, nil
	}
	parsed, err := url.Parse(m.loginURL)
	if err != nil {
		return "", fmt.Errorf("parse login url: %w", err)
	}
	q := parsed.Query()
	q.Set("token", signed)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// Parse verifies a token this minter produced. Used by tests and by the
// LMS-side plugin during local development.
func (m *JWTMinter) Parse(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	return claims, nil
}
