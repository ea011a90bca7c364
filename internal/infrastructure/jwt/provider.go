package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-verify-nosql/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into every token and required on verification.
const Issuer = "go-verify-nosql"

// Claims is the bearer token payload. Subject carries the user id.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 bearer tokens.
type Provider struct {
	signKey   *rsa.PrivateKey
	verifyKey *rsa.PublicKey
	ttl       time.Duration
	now       func() time.Time
}

// NewProvider loads the PEM key pair named in cfg.
func NewProvider(cfg *config.Config) (*Provider, error) {
	priv, err := loadPEM(cfg.JWTPrivateKeyPath, jwt.ParseRSAPrivateKeyFromPEM)
	if err != nil {
		return nil, fmt.Errorf("jwt private key: %w", err)
	}
	pub, err := loadPEM(cfg.JWTPublicKeyPath, jwt.ParseRSAPublicKeyFromPEM)
	if err != nil {
		return nil, fmt.Errorf("jwt public key: %w", err)
	}
	return NewProviderFromKeys(priv, pub, cfg.JWTExpiry), nil
}

func loadPEM[K any](path string, parse func([]byte) (K, error)) (K, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		var zero K
		return zero, err
	}
	return parse(raw)
}

// NewProviderFromKeys builds a Provider from already parsed keys.
func NewProviderFromKeys(priv *rsa.PrivateKey, pub *rsa.PublicKey, ttl time.Duration) *Provider {
	return &Provider{signKey: priv, verifyKey: pub, ttl: ttl, now: time.Now}
}

// Sign issues a token binding userID to sessionID.
func (p *Provider) Sign(userID, sessionID string) (string, error) {
	issued := p.now()
	return jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(p.ttl)),
		},
	}).SignedString(p.signKey)
}

// Verify checks signature, issuer and expiry and returns the claims.
func (p *Provider) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return p.verifyKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, errors.New("jwt: token has no session")
	}
	return claims, nil
}
