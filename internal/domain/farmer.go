package domain

import "time"

// Location is a GeoJSON-style point with an optional readable address.
type Location struct {
	Type        string    `json:"type" dynamodbav:"type"`
	Coordinates []float64 `json:"coordinates" dynamodbav:"coordinates"`
	Address     string    `json:"address,omitempty" dynamodbav:"address"`
}

type ContactInfo struct {
	Phone string `json:"phone,omitempty" dynamodbav:"phone"`
	Email string `json:"email,omitempty" dynamodbav:"email"`
}

type Product struct {
	ProductID   string    `json:"id" dynamodbav:"product_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Category    string    `json:"category,omitempty" dynamodbav:"category"`
	Price       float64   `json:"price" dynamodbav:"price"`
	Description string    `json:"description,omitempty" dynamodbav:"description"`
	Images      []string  `json:"images,omitempty" dynamodbav:"images"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
}

type Marketplace struct {
	IsSeller    bool         `json:"is_seller" dynamodbav:"is_seller"`
	ShopName    string       `json:"shop_name,omitempty" dynamodbav:"shop_name"`
	ContactInfo *ContactInfo `json:"contact_info,omitempty" dynamodbav:"contact_info"`
	Products    []Product    `json:"products,omitempty" dynamodbav:"products"`
}

// Farmer is the account record. RefreshToken is the single live refresh
// slot: issuing a new pair always overwrites it, which implicitly
// invalidates every previously issued refresh token.
type Farmer struct {
	FarmerID     string      `json:"id" dynamodbav:"farmer_id"`
	Name         string      `json:"name" dynamodbav:"name"`
	Phone        *string     `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Email        *string     `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Location     *Location   `json:"location,omitempty" dynamodbav:"location"`
	Marketplace  Marketplace `json:"marketplace" dynamodbav:"marketplace"`
	Verified     bool        `json:"verified" dynamodbav:"verified"`
	RefreshToken *string     `json:"-" dynamodbav:"refresh_token,omitempty"`
	CreatedAt    time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time   `json:"updated" dynamodbav:"updated_at"`
}

// PublicProfile is the farmer shape returned by the API. The refresh token
// slot and other internal fields never leave the service.
type PublicProfile struct {
	FarmerID  string    `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Location  *Location `json:"location,omitempty"`
	IsSeller  bool      `json:"is_seller"`
	ShopName  string    `json:"shop_name,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created"`
}

func (f *Farmer) PublicProfile() *PublicProfile {
	return &PublicProfile{
		FarmerID:  f.FarmerID,
		Name:      f.Name,
		Phone:     f.Phone,
		Email:     f.Email,
		Location:  f.Location,
		IsSeller:  f.Marketplace.IsSeller,
		ShopName:  f.Marketplace.ShopName,
		Verified:  f.Verified,
		CreatedAt: f.CreatedAt,
	}
}

type RegisterRequest struct {
	Name        string       `json:"name" validate:"required"`
	Phone       *string      `json:"phone"`
	Email       *string      `json:"email" validate:"omitempty,email"`
	Location    *Location    `json:"location"`
	Marketplace *Marketplace `json:"marketplace"`
}

type UpdateFarmerRequest struct {
	Name     *string   `json:"name"`
	Email    *string   `json:"email" validate:"omitempty,email"`
	Location *Location `json:"location"`
}

type UpdateMarketplaceRequest struct {
	IsSeller    *bool        `json:"is_seller"`
	ShopName    *string      `json:"shop_name"`
	ContactInfo *ContactInfo `json:"contact_info"`
}

type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required"`
	Category    string   `json:"category"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Description *string  `json:"description"`
	Images      []string `json:"images"`
}
