package domain

// ChallengePurpose discriminates what a verified OTP unlocks.
type ChallengePurpose string

const (
	PurposeRegistration ChallengePurpose = "registration"
	PurposeLogin        ChallengePurpose = "login"
)

// Channel is the delivery transport for an OTP message.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// RegistrationPayload carries the pending account fields between an OTP
// request and its verification. The farmer record is only created once the
// code is confirmed.
type RegistrationPayload struct {
	Name        string       `json:"name"`
	Phone       *string      `json:"phone,omitempty"`
	Email       *string      `json:"email,omitempty"`
	Location    *Location    `json:"location,omitempty"`
	Marketplace *Marketplace `json:"marketplace,omitempty"`
}

// LoginPayload carries the already-resolved account id.
type LoginPayload struct {
	FarmerID string `json:"farmer_id"`
}

// ChallengePayload is a tagged union: exactly one branch is set, matching
// the challenge purpose.
type ChallengePayload struct {
	Registration *RegistrationPayload `json:"registration,omitempty"`
	Login        *LoginPayload        `json:"login,omitempty"`
}

// OTPChallenge is the short-lived state behind a pending code, keyed by
// identifier. At most one challenge exists per identifier at any time; a new
// request overwrites the previous one. Expiry is enforced lazily by
// comparing ExpiresAt at verification time.
type OTPChallenge struct {
	Identifier string           `json:"identifier"`
	Code       string           `json:"code"`
	Purpose    ChallengePurpose `json:"purpose"`
	ExpiresAt  int64            `json:"expires_at"` // Unix seconds
	Payload    ChallengePayload `json:"payload"`
}
