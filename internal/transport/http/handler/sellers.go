package handler

import (
	"net/http"
	"strconv"

	"github.com/farmgate/farmgate-api/internal/application/farmer"
	"github.com/farmgate/farmgate-api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// SellerHandler serves the public marketplace listing.
type SellerHandler struct {
	svc farmer.Service
}

func NewSellerHandler(svc farmer.Service) *SellerHandler {
	return &SellerHandler{svc: svc}
}

func (h *SellerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := int32(0)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = int32(n)
	}
	page, err := h.svc.ListSellers(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *SellerHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.SellerProducts(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("category"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}
