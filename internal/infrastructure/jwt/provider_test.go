package jwtinfra

import (
	"testing"
	"time"

	"github.com/farmgate/farmgate-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    7 * 24 * time.Hour,
	}
}

func TestNewProvider_MissingAccessSecret(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenSecret = ""
	_, err := NewProvider(cfg)
	assert.ErrorContains(t, err, "ACCESS_TOKEN_SECRET")
}

func TestNewProvider_MissingRefreshSecret(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTokenSecret = ""
	_, err := NewProvider(cfg)
	assert.ErrorContains(t, err, "REFRESH_TOKEN_SECRET")
}

func TestNewProvider_SharedSecret(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTokenSecret = cfg.AccessTokenSecret
	_, err := NewProvider(cfg)
	assert.ErrorContains(t, err, "must differ")
}

func TestAccessToken_RoundTrip(t *testing.T) {
	p, err := NewProvider(testConfig())
	require.NoError(t, err)

	token, err := p.SignAccess("f1", "+923001234567", "ali@example.com")
	require.NoError(t, err)

	claims, err := p.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "f1", claims.FarmerID)
	assert.Equal(t, "+923001234567", claims.Phone)
	assert.Equal(t, "ali@example.com", claims.Email)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	p, err := NewProvider(testConfig())
	require.NoError(t, err)

	token, err := p.SignRefresh("f1")
	require.NoError(t, err)

	claims, err := p.VerifyRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, "f1", claims.FarmerID)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokens_AreUnique(t *testing.T) {
	p, err := NewProvider(testConfig())
	require.NoError(t, err)

	t1, err := p.SignRefresh("f1")
	require.NoError(t, err)
	t2, err := p.SignRefresh("f1")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)
}

func TestVerify_WrongSecretFamily(t *testing.T) {
	p, err := NewProvider(testConfig())
	require.NoError(t, err)

	// A refresh token must not verify as an access token.
	refresh, err := p.SignRefresh("f1")
	require.NoError(t, err)
	_, err = p.VerifyAccess(refresh)
	assert.Error(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	p, err := NewProvider(testConfig())
	require.NoError(t, err)

	token, err := p.SignRefresh("f1")
	require.NoError(t, err)

	// Move the provider clock past the refresh TTL.
	p.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = p.VerifyRefresh(token)
	assert.Error(t, err)
}

func TestVerify_Tampered(t *testing.T) {
	p, err := NewProvider(testConfig())
	require.NoError(t, err)

	token, err := p.SignAccess("f1", "", "")
	require.NoError(t, err)
	_, err = p.VerifyAccess(token + "x")
	assert.Error(t, err)
}
