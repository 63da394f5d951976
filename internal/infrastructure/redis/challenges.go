package redisinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/farmgate/farmgate-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ChallengeStore keeps OTP challenges in Redis, one key per identifier.
// Consume runs as a Lua script so the read-check-delete step is a single
// atomic operation per key: two concurrent verifications of the same code
// can never both succeed, on one instance or many.
type ChallengeStore struct {
	client *redis.Client
	prefix string
}

func NewChallengeStore(client *redis.Client) *ChallengeStore {
	return &ChallengeStore{client: client, prefix: "otp:"}
}

// Keys outlive expires_at by this much so verification can still report
// "expired" (and delete the entry) before Redis garbage-collects it.
// Correctness never depends on the TTL; expiry is checked in the script.
const expiryGrace = time.Hour

const (
	consumeStatusNotFound     int64 = 0
	consumeStatusExpired      int64 = 1
	consumeStatusMismatch     int64 = 2
	consumeStatusWrongPurpose int64 = 3
	consumeStatusOK           int64 = 4
	consumeStatusCorrupt      int64 = 5
)

// Check order follows the verification contract: expiry deletes the entry,
// a wrong code or purpose leaves it in place so the client may retry.
const consumeScript = `
local raw = redis.call("GET", KEYS[1])
if not raw then
  return {0}
end
local ok, c = pcall(cjson.decode, raw)
if not ok or type(c) ~= "table" then
  redis.call("DEL", KEYS[1])
  return {5}
end
if tonumber(ARGV[3]) > tonumber(c.expires_at) then
  redis.call("DEL", KEYS[1])
  return {1}
end
if c.code ~= ARGV[1] then
  return {2}
end
if c.purpose ~= ARGV[2] then
  return {3}
end
redis.call("DEL", KEYS[1])
return {4, raw}
`

var consumeLua = redis.NewScript(consumeScript)

// Put stores the challenge, overwriting any prior challenge for the same
// identifier.
func (s *ChallengeStore) Put(ctx context.Context, c *domain.OTPChallenge) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	ttl := time.Until(time.Unix(c.ExpiresAt, 0)) + expiryGrace
	if ttl <= 0 {
		ttl = expiryGrace
	}
	return s.client.Set(ctx, s.key(c.Identifier), raw, ttl).Err()
}

// Consume atomically validates and deletes the challenge for identifier.
// On success it returns the stored payload; failures map to the OTP sentinel
// errors in domain.
func (s *ChallengeStore) Consume(ctx context.Context, identifier, code string, purpose domain.ChallengePurpose, now time.Time) (*domain.ChallengePayload, error) {
	res, err := consumeLua.Run(ctx, s.client,
		[]string{s.key(identifier)},
		code, string(purpose), now.Unix(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("consume challenge: empty script reply: %w", domain.ErrInternal)
	}
	status, _ := res[0].(int64)
	switch status {
	case consumeStatusNotFound:
		return nil, fmt.Errorf("no pending challenge for identifier: %w", domain.ErrOTPNotFound)
	case consumeStatusExpired:
		return nil, fmt.Errorf("challenge past its expiry: %w", domain.ErrOTPExpired)
	case consumeStatusMismatch:
		return nil, fmt.Errorf("code does not match: %w", domain.ErrOTPMismatch)
	case consumeStatusWrongPurpose:
		return nil, fmt.Errorf("challenge was issued for a different flow: %w", domain.ErrOTPWrongPurpose)
	case consumeStatusCorrupt:
		return nil, fmt.Errorf("stored challenge is not decodable: %w", domain.ErrInternal)
	case consumeStatusOK:
		raw, ok := res[1].(string)
		if !ok {
			return nil, fmt.Errorf("script reply missing challenge blob: %w", domain.ErrInternal)
		}
		var c domain.OTPChallenge
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("unmarshal challenge: %w", err)
		}
		return &c.Payload, nil
	default:
		return nil, fmt.Errorf("unknown consume status %d: %w", status, domain.ErrInternal)
	}
}

// Delete removes the challenge for identifier. Used to roll back a challenge
// whose code was never delivered.
func (s *ChallengeStore) Delete(ctx context.Context, identifier string) error {
	return s.client.Del(ctx, s.key(identifier)).Err()
}

func (s *ChallengeStore) key(identifier string) string {
	return s.prefix + identifier
}
