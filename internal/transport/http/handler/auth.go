package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/farmgate/farmgate-api/internal/application/auth"
	"github.com/farmgate/farmgate-api/internal/application/session"
	"github.com/farmgate/farmgate-api/internal/domain"
	"github.com/farmgate/farmgate-api/internal/transport/http/middleware"
)

// AuthHandler handles the passwordless registration and login endpoints.
type AuthHandler struct {
	auth       auth.Service
	sessions   session.Service
	accessTTL  time.Duration
	refreshTTL time.Duration
	secure     bool
}

type AuthHandlerDeps struct {
	Auth       auth.Service
	Sessions   session.Service
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secure     bool
}

func NewAuthHandler(deps AuthHandlerDeps) *AuthHandler {
	return &AuthHandler{
		auth:       deps.Auth,
		sessions:   deps.Sessions,
		accessTTL:  deps.AccessTTL,
		refreshTTL: deps.RefreshTTL,
		secure:     deps.Secure,
	}
}

type verifyRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

func (h *AuthHandler) RequestRegisterOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.auth.RequestRegistration(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OTPEnvelope{
		Message:    "verification code sent",
		Identifier: res.Identifier,
		Channel:    string(res.Channel),
	})
}

func (h *AuthHandler) VerifyRegister(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.auth.VerifyRegistration(r.Context(), req.Identifier, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeAuthResult(w, http.StatusCreated, res)
}

func (h *AuthHandler) RequestLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.auth.RequestLogin(r.Context(), req.Identifier)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OTPEnvelope{
		Message:    "verification code sent",
		Identifier: res.Identifier,
		Channel:    string(res.Channel),
	})
}

func (h *AuthHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.auth.VerifyLogin(r.Context(), req.Identifier, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.writeAuthResult(w, http.StatusOK, res)
}

// Refresh rotates the refresh token. The token is read from the cookie
// first, then from the JSON body, so both browser and API clients work.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		presented = c.Value
	} else {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		writeError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	setAuthCookies(w, pair.AccessToken, pair.RefreshToken, h.accessTTL, h.refreshTTL, h.secure)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.sessions.Revoke(r.Context(), claims.FarmerID); err != nil {
		writeDomainError(w, err)
		return
	}
	clearAuthCookies(w, h.secure)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

func (h *AuthHandler) writeAuthResult(w http.ResponseWriter, status int, res *auth.AuthResult) {
	setAuthCookies(w, res.Pair.AccessToken, res.Pair.RefreshToken, h.accessTTL, h.refreshTTL, h.secure)
	writeJSON(w, status, AuthEnvelope{
		AccessToken:  res.Pair.AccessToken,
		RefreshToken: res.Pair.RefreshToken,
		Farmer:       res.Farmer.PublicProfile(),
	})
}
