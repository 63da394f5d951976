package jwtinfra

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/farmgate/farmgate-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of a short-lived access token.
type AccessClaims struct {
	FarmerID string `json:"farmer_id"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token. It carries the
// farmer id only; everything else is re-read from the store on rotation.
type RefreshClaims struct {
	FarmerID string `json:"farmer_id"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs. Access and refresh tokens use
// distinct secrets and TTLs, so a leaked access secret cannot mint refresh
// tokens.
type Provider struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewProvider validates the signing configuration eagerly so a missing or
// shared secret fails at startup instead of on the first login.
func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.AccessTokenSecret == "" {
		return nil, errors.New("ACCESS_TOKEN_SECRET is not set")
	}
	if cfg.RefreshTokenSecret == "" {
		return nil, errors.New("REFRESH_TOKEN_SECRET is not set")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	return &Provider{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}, nil
}

// AccessTTL reports the access token lifetime, used for cookie expiry.
func (p *Provider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL reports the refresh token lifetime, used for cookie expiry.
func (p *Provider) RefreshTTL() time.Duration { return p.refreshTTL }

func (p *Provider) SignAccess(farmerID, phone, email string) (string, error) {
	now := p.now()
	claims := AccessClaims{
		FarmerID: farmerID,
		Phone:    phone,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(p.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.accessSecret)
}

// SignRefresh mints a refresh token. The jti keeps consecutive tokens for
// the same farmer distinct even within one second, so a rotation always
// changes the persisted slot value.
func (p *Provider) SignRefresh(farmerID string) (string, error) {
	jti, err := newJTI()
	if err != nil {
		return "", err
	}
	now := p.now()
	claims := RefreshClaims{
		FarmerID: farmerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.refreshSecret)
}

func (p *Provider) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := p.verify(tokenStr, claims, p.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (p *Provider) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := p.verify(tokenStr, claims, p.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (p *Provider) verify(tokenStr string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token claims")
	}
	return nil
}

func newJTI() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
