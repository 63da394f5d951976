package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/farmgate/farmgate-api/internal/domain"
)

// ChallengeStore is the key-value abstraction behind pending challenges.
// Consume must perform its read-check-delete as one atomic step per
// identifier; the production implementation is Redis with a Lua script.
type ChallengeStore interface {
	Put(ctx context.Context, c *domain.OTPChallenge) error
	Consume(ctx context.Context, identifier, code string, purpose domain.ChallengePurpose, now time.Time) (*domain.ChallengePayload, error)
	Delete(ctx context.Context, identifier string) error
}

// Dispatcher delivers an OTP message to an identifier over a channel.
type Dispatcher interface {
	Send(ctx context.Context, channel domain.Channel, identifier, message string) error
}

// CodeGenerator produces a fixed-width numeric OTP code.
type CodeGenerator func() (string, error)

// NewCodeGenerator returns a crypto/rand generator for codes of the given
// number of digits. The default 4-digit space mirrors the product's current
// behavior; it is deliberately not widened here (see DESIGN.md).
func NewCodeGenerator(digits int) CodeGenerator {
	if digits <= 0 {
		digits = 4
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	return func() (string, error) {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate otp code: %w", err)
		}
		return fmt.Sprintf("%0*d", digits, n.Int64()), nil
	}
}

// Manager owns the OTP challenge lifecycle: it issues codes, dispatches
// them, and consumes them on verification.
type Manager interface {
	Request(ctx context.Context, purpose domain.ChallengePurpose, identifier string, channel domain.Channel, payload domain.ChallengePayload) error
	Verify(ctx context.Context, identifier, code string, purpose domain.ChallengePurpose) (*domain.ChallengePayload, error)
}

type ManagerDeps struct {
	Store           ChallengeStore
	Dispatcher      Dispatcher
	GenerateCode    CodeGenerator
	TTL             time.Duration
	DispatchTimeout time.Duration
	Now             func() time.Time
}

type manager struct {
	store           ChallengeStore
	dispatcher      Dispatcher
	generateCode    CodeGenerator
	ttl             time.Duration
	dispatchTimeout time.Duration
	now             func() time.Time
}

func NewManager(deps ManagerDeps) Manager {
	m := &manager{
		store:           deps.Store,
		dispatcher:      deps.Dispatcher,
		generateCode:    deps.GenerateCode,
		ttl:             deps.TTL,
		dispatchTimeout: deps.DispatchTimeout,
		now:             deps.Now,
	}
	if m.generateCode == nil {
		m.generateCode = NewCodeGenerator(4)
	}
	if m.ttl <= 0 {
		m.ttl = 10 * time.Minute
	}
	if m.dispatchTimeout <= 0 {
		m.dispatchTimeout = 5 * time.Second
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Request creates a challenge for identifier (overwriting any pending one)
// and dispatches the code. A dispatch failure rolls the challenge back so no
// orphaned entry is left behind that the client could never verify.
func (m *manager) Request(ctx context.Context, purpose domain.ChallengePurpose, identifier string, channel domain.Channel, payload domain.ChallengePayload) error {
	if identifier == "" {
		return fmt.Errorf("identifier required: %w", domain.ErrBadRequest)
	}
	code, err := m.generateCode()
	if err != nil {
		return err
	}
	c := &domain.OTPChallenge{
		Identifier: identifier,
		Code:       code,
		Purpose:    purpose,
		ExpiresAt:  m.now().Add(m.ttl).Unix(),
		Payload:    payload,
	}
	if err := m.store.Put(ctx, c); err != nil {
		return err
	}

	msg := fmt.Sprintf("Your FarmGate verification code is %s. It expires in %d minutes.", code, int(m.ttl.Minutes()))
	dctx, cancel := context.WithTimeout(ctx, m.dispatchTimeout)
	defer cancel()
	if err := m.dispatcher.Send(dctx, channel, identifier, msg); err != nil {
		if derr := m.store.Delete(ctx, identifier); derr != nil {
			slog.Warn("failed to roll back challenge after dispatch failure", "identifier", identifier, "err", derr)
		}
		return fmt.Errorf("send otp over %s: %v: %w", channel, err, domain.ErrDispatchFailed)
	}
	return nil
}

// Verify consumes the challenge for identifier. The store guarantees a code
// is matched at most once; expiry is judged against the injected clock.
func (m *manager) Verify(ctx context.Context, identifier, code string, purpose domain.ChallengePurpose) (*domain.ChallengePayload, error) {
	if identifier == "" || code == "" {
		return nil, fmt.Errorf("identifier and code required: %w", domain.ErrBadRequest)
	}
	return m.store.Consume(ctx, identifier, code, purpose, m.now())
}
