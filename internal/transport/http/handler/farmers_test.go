package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/farmgate/farmgate-api/internal/application/farmer"
	"github.com/farmgate/farmgate-api/internal/domain"
	jwtinfra "github.com/farmgate/farmgate-api/internal/infrastructure/jwt"
	"github.com/farmgate/farmgate-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFarmerSvc struct{ mock.Mock }

func (m *mockFarmerSvc) GetProfile(ctx context.Context, farmerID string) (*domain.Farmer, error) {
	args := m.Called(ctx, farmerID)
	if f, _ := args.Get(0).(*domain.Farmer); f != nil {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFarmerSvc) UpdateProfile(ctx context.Context, farmerID string, req *domain.UpdateFarmerRequest) (*domain.Farmer, error) {
	args := m.Called(ctx, farmerID, req)
	if f, _ := args.Get(0).(*domain.Farmer); f != nil {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFarmerSvc) UpdateMarketplace(ctx context.Context, farmerID string, req *domain.UpdateMarketplaceRequest) (*domain.Farmer, error) {
	args := m.Called(ctx, farmerID, req)
	if f, _ := args.Get(0).(*domain.Farmer); f != nil {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFarmerSvc) AddProduct(ctx context.Context, farmerID string, req *domain.CreateProductRequest) (*domain.Product, error) {
	args := m.Called(ctx, farmerID, req)
	if p, _ := args.Get(0).(*domain.Product); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFarmerSvc) UpdateProduct(ctx context.Context, farmerID, productID string, req *domain.UpdateProductRequest) (*domain.Product, error) {
	args := m.Called(ctx, farmerID, productID, req)
	if p, _ := args.Get(0).(*domain.Product); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFarmerSvc) DeleteProduct(ctx context.Context, farmerID, productID string) error {
	return m.Called(ctx, farmerID, productID).Error(0)
}

func (m *mockFarmerSvc) ListProducts(ctx context.Context, farmerID string) ([]domain.Product, error) {
	args := m.Called(ctx, farmerID)
	if p, _ := args.Get(0).([]domain.Product); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFarmerSvc) UploadProductImage(ctx context.Context, farmerID, productID, filename string, r io.Reader) (string, error) {
	args := m.Called(ctx, farmerID, productID, filename, r)
	return args.String(0), args.Error(1)
}

func (m *mockFarmerSvc) ListSellers(ctx context.Context, limit int32, cursor string) (*farmer.SellerPage, error) {
	args := m.Called(ctx, limit, cursor)
	if p, _ := args.Get(0).(*farmer.SellerPage); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFarmerSvc) SellerProducts(ctx context.Context, sellerID, category string) ([]domain.Product, error) {
	args := m.Called(ctx, sellerID, category)
	if p, _ := args.Get(0).([]domain.Product); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func authedRequest(method, target string, body []byte, farmerID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	claims := &jwtinfra.AccessClaims{FarmerID: farmerID}
	return req.WithContext(context.WithValue(req.Context(), middleware.ClaimsKey, claims))
}

// --- profile ---

func TestGetProfile_ReturnsPublicShape(t *testing.T) {
	svc := &mockFarmerSvc{}
	token := "secret-slot"
	svc.On("GetProfile", mock.Anything, "f1").Return(&domain.Farmer{
		FarmerID:     "f1",
		Name:         "Ali Khan",
		Verified:     true,
		RefreshToken: &token,
	}, nil)

	h := NewFarmerHandler(svc)
	rr := httptest.NewRecorder()
	h.GetProfile(rr, authedRequest(http.MethodGet, "/v1/farmers/me", nil, "f1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret-slot")

	var profile domain.PublicProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "f1", profile.FarmerID)
	assert.True(t, profile.Verified)
}

func TestGetProfile_NoClaims401(t *testing.T) {
	h := NewFarmerHandler(&mockFarmerSvc{})
	rr := httptest.NewRecorder()
	h.GetProfile(rr, httptest.NewRequest(http.MethodGet, "/v1/farmers/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdateProfile_EmailConflict400(t *testing.T) {
	svc := &mockFarmerSvc{}
	svc.On("UpdateProfile", mock.Anything, "f1", mock.Anything).Return(nil, domain.ErrConflict)

	h := NewFarmerHandler(svc)
	body, _ := json.Marshal(map[string]string{"email": "taken@example.com"})
	rr := httptest.NewRecorder()
	h.UpdateProfile(rr, authedRequest(http.MethodPatch, "/v1/farmers/me", body, "f1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- products ---

func TestAddProduct_Created(t *testing.T) {
	svc := &mockFarmerSvc{}
	svc.On("AddProduct", mock.Anything, "f1", mock.MatchedBy(func(r *domain.CreateProductRequest) bool {
		return r.Name == "Wheat" && r.Price == 1200
	})).Return(&domain.Product{ProductID: "p1", Name: "Wheat", Price: 1200}, nil)

	h := NewFarmerHandler(svc)
	body, _ := json.Marshal(map[string]interface{}{"name": "Wheat", "price": 1200})
	rr := httptest.NewRecorder()
	h.AddProduct(rr, authedRequest(http.MethodPost, "/v1/farmers/me/products", body, "f1"))

	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestUpdateProduct_NotFound404(t *testing.T) {
	svc := &mockFarmerSvc{}
	svc.On("UpdateProduct", mock.Anything, "f1", "ghost", mock.Anything).Return(nil, domain.ErrNotFound)

	h := NewFarmerHandler(svc)
	body, _ := json.Marshal(map[string]interface{}{"price": 10})

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "ghost")
	req := authedRequest(http.MethodPut, "/v1/farmers/me/products/ghost", body, "f1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	h.UpdateProduct(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListProducts_EmptyIsArray(t *testing.T) {
	svc := &mockFarmerSvc{}
	svc.On("ListProducts", mock.Anything, "f1").Return(nil, nil)

	h := NewFarmerHandler(svc)
	rr := httptest.NewRecorder()
	h.ListProducts(rr, authedRequest(http.MethodGet, "/v1/farmers/me/products", nil, "f1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

// --- sellers ---

func TestSellers_List(t *testing.T) {
	svc := &mockFarmerSvc{}
	svc.On("ListSellers", mock.Anything, int32(0), "").Return(&farmer.SellerPage{
		Sellers: []*domain.PublicProfile{{FarmerID: "f1", IsSeller: true}},
	}, nil)

	h := NewSellerHandler(svc)
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/v1/sellers", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var page farmer.SellerPage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Sellers, 1)
}

func TestSellers_BadLimit400(t *testing.T) {
	h := NewSellerHandler(&mockFarmerSvc{})
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/v1/sellers?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
