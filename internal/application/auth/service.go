package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farmgate/farmgate-api/internal/application/otp"
	"github.com/farmgate/farmgate-api/internal/application/session"
	"github.com/farmgate/farmgate-api/internal/domain"
	"github.com/farmgate/farmgate-api/internal/pkg/id"
	"github.com/farmgate/farmgate-api/internal/pkg/validate"
)

// FarmerStore is the slice of the farmer repository the auth flow needs.
type FarmerStore interface {
	Create(ctx context.Context, f *domain.Farmer) error
	Get(ctx context.Context, farmerID string) (*domain.Farmer, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Farmer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Farmer, error)
}

// OTPRequested is the response to a successful challenge request.
type OTPRequested struct {
	Identifier string         `json:"identifier"`
	Channel    domain.Channel `json:"channel"`
}

// AuthResult is the outcome of a verified OTP: the farmer plus a fresh
// token pair.
type AuthResult struct {
	Farmer *domain.Farmer
	Pair   *session.TokenPair
}

// Service orchestrates the passwordless registration and login flows. An
// account is only created, and tokens only issued, after the OTP round trip
// completes.
type Service interface {
	RequestRegistration(ctx context.Context, req *domain.RegisterRequest) (*OTPRequested, error)
	VerifyRegistration(ctx context.Context, identifier, code string) (*AuthResult, error)
	RequestLogin(ctx context.Context, identifier string) (*OTPRequested, error)
	VerifyLogin(ctx context.Context, identifier, code string) (*AuthResult, error)
}

type ServiceDeps struct {
	Farmers  FarmerStore
	OTP      otp.Manager
	Sessions session.Service
	Now      func() time.Time
}

type service struct {
	farmers  FarmerStore
	otp      otp.Manager
	sessions session.Service
	now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		farmers:  deps.Farmers,
		otp:      deps.OTP,
		sessions: deps.Sessions,
		now:      deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// RequestRegistration validates the pending account, checks the identifier
// is not already taken, and opens an OTP challenge carrying the registration
// payload. No farmer record exists until the code is verified.
func (s *service) RequestRegistration(ctx context.Context, req *domain.RegisterRequest) (*OTPRequested, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	identifier, channel, err := pickIdentifier(req.Phone, req.Email)
	if err != nil {
		return nil, err
	}

	// Conflicts are reported before any code is sent, so a taken phone or
	// email never costs the caller an SMS round trip.
	if req.Phone != nil && *req.Phone != "" {
		if _, err := s.farmers.GetByPhone(ctx, *req.Phone); err == nil {
			return nil, fmt.Errorf("phone already registered: %w", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := s.farmers.GetByEmail(ctx, *req.Email); err == nil {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	payload := domain.ChallengePayload{
		Registration: &domain.RegistrationPayload{
			Name:        req.Name,
			Phone:       req.Phone,
			Email:       req.Email,
			Location:    req.Location,
			Marketplace: req.Marketplace,
		},
	}
	if err := s.otp.Request(ctx, domain.PurposeRegistration, identifier, channel, payload); err != nil {
		return nil, err
	}
	return &OTPRequested{Identifier: identifier, Channel: channel}, nil
}

// VerifyRegistration consumes the registration challenge and creates the
// farmer record from its payload, already marked verified.
func (s *service) VerifyRegistration(ctx context.Context, identifier, code string) (*AuthResult, error) {
	payload, err := s.otp.Verify(ctx, identifier, code, domain.PurposeRegistration)
	if err != nil {
		return nil, err
	}
	if payload.Registration == nil {
		return nil, fmt.Errorf("challenge has no registration payload: %w", domain.ErrInternal)
	}

	reg := payload.Registration
	now := s.now()
	f := &domain.Farmer{
		FarmerID:  id.New(),
		Name:      reg.Name,
		Phone:     reg.Phone,
		Email:     reg.Email,
		Location:  reg.Location,
		Verified:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if reg.Marketplace != nil {
		f.Marketplace = *reg.Marketplace
	}
	if err := s.farmers.Create(ctx, f); err != nil {
		return nil, err
	}

	pair, err := s.sessions.Issue(ctx, f)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Farmer: f, Pair: pair}, nil
}

// RequestLogin resolves the identifier to an existing farmer and opens a
// login challenge. Unknown identifiers fail before any code is sent.
func (s *service) RequestLogin(ctx context.Context, identifier string) (*OTPRequested, error) {
	if identifier == "" {
		return nil, fmt.Errorf("identifier required: %w", domain.ErrBadRequest)
	}
	channel := channelFor(identifier)

	var (
		f   *domain.Farmer
		err error
	)
	if channel == domain.ChannelEmail {
		f, err = s.farmers.GetByEmail(ctx, identifier)
	} else {
		f, err = s.farmers.GetByPhone(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("farmer not registered: %w", domain.ErrNotFound)
		}
		return nil, err
	}

	payload := domain.ChallengePayload{Login: &domain.LoginPayload{FarmerID: f.FarmerID}}
	if err := s.otp.Request(ctx, domain.PurposeLogin, identifier, channel, payload); err != nil {
		return nil, err
	}
	return &OTPRequested{Identifier: identifier, Channel: channel}, nil
}

// VerifyLogin consumes the login challenge and issues a token pair for the
// farmer resolved at request time.
func (s *service) VerifyLogin(ctx context.Context, identifier, code string) (*AuthResult, error) {
	payload, err := s.otp.Verify(ctx, identifier, code, domain.PurposeLogin)
	if err != nil {
		return nil, err
	}
	if payload.Login == nil {
		return nil, fmt.Errorf("challenge has no login payload: %w", domain.ErrInternal)
	}

	f, err := s.farmers.Get(ctx, payload.Login.FarmerID)
	if err != nil {
		return nil, err
	}
	pair, err := s.sessions.Issue(ctx, f)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Farmer: f, Pair: pair}, nil
}

// pickIdentifier selects the OTP destination for a registration: phone wins
// when both are present.
func pickIdentifier(phone, email *string) (string, domain.Channel, error) {
	if phone != nil && *phone != "" {
		return *phone, domain.ChannelSMS, nil
	}
	if email != nil && *email != "" {
		return *email, domain.ChannelEmail, nil
	}
	return "", "", fmt.Errorf("phone or email required: %w", domain.ErrBadRequest)
}

func channelFor(identifier string) domain.Channel {
	if strings.Contains(identifier, "@") {
		return domain.ChannelEmail
	}
	return domain.ChannelSMS
}
