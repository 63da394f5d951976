package farmer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/farmgate/farmgate-api/internal/domain"
	"github.com/farmgate/farmgate-api/internal/pkg/id"
	"github.com/farmgate/farmgate-api/internal/pkg/validate"
)

// FarmerStore is the repository surface behind profile and marketplace
// operations. Update patches individual attributes; Put rewrites the whole
// item and is used by product mutations on the embedded marketplace document.
type FarmerStore interface {
	Get(ctx context.Context, farmerID string) (*domain.Farmer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Farmer, error)
	Put(ctx context.Context, f *domain.Farmer) error
	Update(ctx context.Context, farmerID string, updates map[string]interface{}) error
	ScanSellers(ctx context.Context, limit int32, cursor string) ([]domain.Farmer, string, error)
}

// ObjectStore uploads product images and returns a stable URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// SellerPage is one page of the public seller listing.
type SellerPage struct {
	Sellers    []*domain.PublicProfile `json:"sellers"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

type Service interface {
	GetProfile(ctx context.Context, farmerID string) (*domain.Farmer, error)
	UpdateProfile(ctx context.Context, farmerID string, req *domain.UpdateFarmerRequest) (*domain.Farmer, error)
	UpdateMarketplace(ctx context.Context, farmerID string, req *domain.UpdateMarketplaceRequest) (*domain.Farmer, error)
	AddProduct(ctx context.Context, farmerID string, req *domain.CreateProductRequest) (*domain.Product, error)
	UpdateProduct(ctx context.Context, farmerID, productID string, req *domain.UpdateProductRequest) (*domain.Product, error)
	DeleteProduct(ctx context.Context, farmerID, productID string) error
	ListProducts(ctx context.Context, farmerID string) ([]domain.Product, error)
	UploadProductImage(ctx context.Context, farmerID, productID, filename string, r io.Reader) (string, error)
	ListSellers(ctx context.Context, limit int32, cursor string) (*SellerPage, error)
	SellerProducts(ctx context.Context, sellerID, category string) ([]domain.Product, error)
}

type ServiceDeps struct {
	Farmers FarmerStore
	Objects ObjectStore
	Now     func() time.Time
}

type service struct {
	farmers FarmerStore
	objects ObjectStore
	now     func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{farmers: deps.Farmers, objects: deps.Objects, now: deps.Now}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) GetProfile(ctx context.Context, farmerID string) (*domain.Farmer, error) {
	return s.farmers.Get(ctx, farmerID)
}

// UpdateProfile patches name, email, and location. A changed email must not
// belong to another account.
func (s *service) UpdateProfile(ctx context.Context, farmerID string, req *domain.UpdateFarmerRequest) (*domain.Farmer, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		other, err := s.farmers.GetByEmail(ctx, *req.Email)
		if err == nil && other.FarmerID != farmerID {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		updates["email"] = *req.Email
	}
	if req.Location != nil {
		updates["location"] = req.Location
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}

	if err := s.farmers.Update(ctx, farmerID, updates); err != nil {
		return nil, err
	}
	return s.farmers.Get(ctx, farmerID)
}

// UpdateMarketplace toggles seller mode and patches shop metadata. Products
// are untouched; disabling seller mode hides the shop but keeps its catalog.
func (s *service) UpdateMarketplace(ctx context.Context, farmerID string, req *domain.UpdateMarketplaceRequest) (*domain.Farmer, error) {
	f, err := s.farmers.Get(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	if req.IsSeller != nil {
		f.Marketplace.IsSeller = *req.IsSeller
	}
	if req.ShopName != nil {
		f.Marketplace.ShopName = *req.ShopName
	}
	if req.ContactInfo != nil {
		f.Marketplace.ContactInfo = req.ContactInfo
	}
	f.UpdatedAt = s.now()
	if err := s.farmers.Put(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// AddProduct appends a product to the farmer's catalog. Seller mode must be
// on, and product names are unique per shop (case-insensitive).
func (s *service) AddProduct(ctx context.Context, farmerID string, req *domain.CreateProductRequest) (*domain.Product, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	f, err := s.farmers.Get(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	if !f.Marketplace.IsSeller {
		return nil, fmt.Errorf("seller mode is not enabled: %w", domain.ErrBadRequest)
	}
	for _, p := range f.Marketplace.Products {
		if strings.EqualFold(p.Name, req.Name) {
			return nil, fmt.Errorf("product %q already listed: %w", req.Name, domain.ErrConflict)
		}
	}

	product := domain.Product{
		ProductID:   id.New(),
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Description: req.Description,
		Images:      req.Images,
		CreatedAt:   s.now(),
	}
	f.Marketplace.Products = append(f.Marketplace.Products, product)
	f.UpdatedAt = s.now()
	if err := s.farmers.Put(ctx, f); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *service) UpdateProduct(ctx context.Context, farmerID, productID string, req *domain.UpdateProductRequest) (*domain.Product, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	f, err := s.farmers.Get(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	idx := productIndex(f.Marketplace.Products, productID)
	if idx < 0 {
		return nil, fmt.Errorf("product not found: %w", domain.ErrNotFound)
	}

	p := &f.Marketplace.Products[idx]
	if req.Name != nil {
		for i, other := range f.Marketplace.Products {
			if i != idx && strings.EqualFold(other.Name, *req.Name) {
				return nil, fmt.Errorf("product %q already listed: %w", *req.Name, domain.ErrConflict)
			}
		}
		p.Name = *req.Name
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Images != nil {
		p.Images = req.Images
	}

	f.UpdatedAt = s.now()
	if err := s.farmers.Put(ctx, f); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, farmerID, productID string) error {
	f, err := s.farmers.Get(ctx, farmerID)
	if err != nil {
		return err
	}
	idx := productIndex(f.Marketplace.Products, productID)
	if idx < 0 {
		return fmt.Errorf("product not found: %w", domain.ErrNotFound)
	}
	f.Marketplace.Products = append(f.Marketplace.Products[:idx], f.Marketplace.Products[idx+1:]...)
	f.UpdatedAt = s.now()
	return s.farmers.Put(ctx, f)
}

func (s *service) ListProducts(ctx context.Context, farmerID string) ([]domain.Product, error) {
	f, err := s.farmers.Get(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	return f.Marketplace.Products, nil
}

// UploadProductImage stores the image and appends its URL to the product.
func (s *service) UploadProductImage(ctx context.Context, farmerID, productID, filename string, r io.Reader) (string, error) {
	f, err := s.farmers.Get(ctx, farmerID)
	if err != nil {
		return "", err
	}
	idx := productIndex(f.Marketplace.Products, productID)
	if idx < 0 {
		return "", fmt.Errorf("product not found: %w", domain.ErrNotFound)
	}

	key := fmt.Sprintf("products/%s/%s/%s", farmerID, productID, filename)
	url, err := s.objects.Upload(ctx, key, r, contentTypeFor(filename))
	if err != nil {
		return "", fmt.Errorf("upload product image: %w", err)
	}

	f.Marketplace.Products[idx].Images = append(f.Marketplace.Products[idx].Images, url)
	f.UpdatedAt = s.now()
	if err := s.farmers.Put(ctx, f); err != nil {
		return "", err
	}
	return url, nil
}

// ListSellers returns a public page of seller profiles.
func (s *service) ListSellers(ctx context.Context, limit int32, cursor string) (*SellerPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	farmers, next, err := s.farmers.ScanSellers(ctx, limit, cursor)
	if err != nil {
		return nil, err
	}
	page := &SellerPage{NextCursor: next, Sellers: make([]*domain.PublicProfile, 0, len(farmers))}
	for i := range farmers {
		page.Sellers = append(page.Sellers, farmers[i].PublicProfile())
	}
	return page, nil
}

// SellerProducts lists a seller's catalog, optionally filtered by category.
func (s *service) SellerProducts(ctx context.Context, sellerID, category string) ([]domain.Product, error) {
	f, err := s.farmers.Get(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if !f.Marketplace.IsSeller {
		return nil, fmt.Errorf("farmer is not a seller: %w", domain.ErrNotFound)
	}
	if category == "" {
		return f.Marketplace.Products, nil
	}
	filtered := make([]domain.Product, 0, len(f.Marketplace.Products))
	for _, p := range f.Marketplace.Products {
		if strings.EqualFold(p.Category, category) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func productIndex(products []domain.Product, productID string) int {
	for i := range products {
		if products[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func contentTypeFor(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
