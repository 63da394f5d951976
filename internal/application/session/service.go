package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/farmgate/farmgate-api/internal/domain"
	jwtinfra "github.com/farmgate/farmgate-api/internal/infrastructure/jwt"
	"github.com/golang-jwt/jwt/v5"
)

// TokenPair is an access/refresh credential pair for one farmer.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FarmerStore is the slice of the farmer repository the token service needs.
// RotateRefreshToken must be atomic per farmer: compare the slot to the
// presented value and overwrite it as one indivisible operation.
type FarmerStore interface {
	Get(ctx context.Context, farmerID string) (*domain.Farmer, error)
	SetRefreshToken(ctx context.Context, farmerID, token string) error
	RotateRefreshToken(ctx context.Context, farmerID, presented, next string) error
	ClearRefreshToken(ctx context.Context, farmerID string) error
}

// Service mints, rotates, and revokes token pairs. A farmer holds at most
// one live refresh token; every issue or rotation overwrites the slot, which
// is what makes stale-token reuse detectable without a blacklist.
type Service interface {
	Issue(ctx context.Context, f *domain.Farmer) (*TokenPair, error)
	Refresh(ctx context.Context, presented string) (*TokenPair, error)
	Revoke(ctx context.Context, farmerID string) error
}

type service struct {
	farmers  FarmerStore
	provider *jwtinfra.Provider
}

func NewService(farmers FarmerStore, provider *jwtinfra.Provider) Service {
	return &service{farmers: farmers, provider: provider}
}

func (s *service) Issue(ctx context.Context, f *domain.Farmer) (*TokenPair, error) {
	pair, err := s.mint(f)
	if err != nil {
		return nil, err
	}
	if err := s.farmers.SetRefreshToken(ctx, f.FarmerID, pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

// Refresh validates the presented refresh token, then swaps the persisted
// slot from the presented value to a fresh one. The swap is a conditional
// write in the store, so with N concurrent calls holding the same token at
// most one wins; the rest surface ErrTokenReused and get no credentials.
func (s *service) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	claims, err := s.provider.VerifyRefresh(presented)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	f, err := s.farmers.Get(ctx, claims.FarmerID)
	if err != nil {
		return nil, fmt.Errorf("no farmer for refresh token: %w", domain.ErrNotFound)
	}
	pair, err := s.mint(f)
	if err != nil {
		return nil, err
	}
	if err := s.farmers.RotateRefreshToken(ctx, f.FarmerID, presented, pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

// Revoke clears the farmer's refresh slot (logout). Any refresh attempt with
// a previously issued token then fails its slot comparison.
func (s *service) Revoke(ctx context.Context, farmerID string) error {
	return s.farmers.ClearRefreshToken(ctx, farmerID)
}

func (s *service) mint(f *domain.Farmer) (*TokenPair, error) {
	access, err := s.provider.SignAccess(f.FarmerID, deref(f.Phone), deref(f.Email))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.provider.SignRefresh(f.FarmerID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
