package otp

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/farmgate/farmgate-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, c *domain.OTPChallenge) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockStore) Consume(ctx context.Context, identifier, code string, purpose domain.ChallengePurpose, now time.Time) (*domain.ChallengePayload, error) {
	args := m.Called(ctx, identifier, code, purpose, now)
	if p, _ := args.Get(0).(*domain.ChallengePayload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) Delete(ctx context.Context, identifier string) error {
	return m.Called(ctx, identifier).Error(0)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Send(ctx context.Context, channel domain.Channel, identifier, message string) error {
	return m.Called(ctx, channel, identifier, message).Error(0)
}

func fixedCode(code string) CodeGenerator {
	return func() (string, error) { return code, nil }
}

// --- Request ---

func TestRequest_EmptyIdentifier(t *testing.T) {
	m := NewManager(ManagerDeps{Store: &mockStore{}, Dispatcher: &mockDispatcher{}})
	err := m.Request(context.Background(), domain.PurposeLogin, "", domain.ChannelSMS, domain.ChallengePayload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRequest_HappyPath_StoresAndDispatches(t *testing.T) {
	st := &mockStore{}
	disp := &mockDispatcher{}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	st.On("Put", mock.Anything, mock.MatchedBy(func(c *domain.OTPChallenge) bool {
		return c.Identifier == "+923001234567" &&
			c.Code == "4242" &&
			c.Purpose == domain.PurposeLogin &&
			c.ExpiresAt == base.Add(10*time.Minute).Unix()
	})).Return(nil)
	disp.On("Send", mock.Anything, domain.ChannelSMS, "+923001234567", mock.MatchedBy(func(msg string) bool {
		return regexp.MustCompile(`\b4242\b`).MatchString(msg)
	})).Return(nil)

	m := NewManager(ManagerDeps{
		Store:        st,
		Dispatcher:   disp,
		GenerateCode: fixedCode("4242"),
		TTL:          10 * time.Minute,
		Now:          func() time.Time { return base },
	})
	err := m.Request(context.Background(), domain.PurposeLogin, "+923001234567", domain.ChannelSMS, domain.ChallengePayload{
		Login: &domain.LoginPayload{FarmerID: "f1"},
	})

	require.NoError(t, err)
	st.AssertExpectations(t)
	disp.AssertExpectations(t)
}

func TestRequest_DispatchFailure_RollsBackChallenge(t *testing.T) {
	st := &mockStore{}
	disp := &mockDispatcher{}

	st.On("Put", mock.Anything, mock.Anything).Return(nil)
	disp.On("Send", mock.Anything, domain.ChannelSMS, "+923001234567", mock.Anything).Return(errors.New("sns throttled"))
	st.On("Delete", mock.Anything, "+923001234567").Return(nil)

	m := NewManager(ManagerDeps{Store: st, Dispatcher: disp, GenerateCode: fixedCode("4242")})
	err := m.Request(context.Background(), domain.PurposeLogin, "+923001234567", domain.ChannelSMS, domain.ChallengePayload{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDispatchFailed))
	st.AssertCalled(t, "Delete", mock.Anything, "+923001234567")
}

func TestRequest_StoreFailure_NoDispatch(t *testing.T) {
	st := &mockStore{}
	disp := &mockDispatcher{}
	st.On("Put", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	m := NewManager(ManagerDeps{Store: st, Dispatcher: disp, GenerateCode: fixedCode("4242")})
	err := m.Request(context.Background(), domain.PurposeLogin, "+923001234567", domain.ChannelSMS, domain.ChallengePayload{})

	require.Error(t, err)
	disp.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Verify ---

func TestVerify_MissingArgs(t *testing.T) {
	m := NewManager(ManagerDeps{Store: &mockStore{}, Dispatcher: &mockDispatcher{}})
	_, err := m.Verify(context.Background(), "", "4242", domain.PurposeLogin)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	_, err = m.Verify(context.Background(), "+923001234567", "", domain.PurposeLogin)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestVerify_PassesClockToStore(t *testing.T) {
	st := &mockStore{}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	want := &domain.ChallengePayload{Login: &domain.LoginPayload{FarmerID: "f1"}}
	st.On("Consume", mock.Anything, "+923001234567", "4242", domain.PurposeLogin, base).Return(want, nil)

	m := NewManager(ManagerDeps{
		Store:      st,
		Dispatcher: &mockDispatcher{},
		Now:        func() time.Time { return base },
	})
	got, err := m.Verify(context.Background(), "+923001234567", "4242", domain.PurposeLogin)

	require.NoError(t, err)
	assert.Equal(t, want, got)
	st.AssertExpectations(t)
}

// --- CodeGenerator ---

func TestNewCodeGenerator_Width(t *testing.T) {
	gen := NewCodeGenerator(4)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := gen()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{4}$`, code)
		seen[code] = true
	}
	// 50 draws from a 10k space virtually never collapse to one value.
	assert.Greater(t, len(seen), 1)
}

func TestNewCodeGenerator_SixDigits(t *testing.T) {
	gen := NewCodeGenerator(6)
	code, err := gen()
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, code)
}
