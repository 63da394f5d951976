package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")
)

// OTP verification failures. All four map to the same HTTP status but stay
// distinct so callers can tell a consumed challenge from a bad code.
var (
	ErrOTPNotFound     = errors.New("otp challenge not found")
	ErrOTPExpired      = errors.New("otp expired")
	ErrOTPMismatch     = errors.New("otp code mismatch")
	ErrOTPWrongPurpose = errors.New("otp purpose mismatch")
)

// ErrDispatchFailed is returned when the OTP message could not be delivered.
// The challenge is rolled back before this error surfaces, so the client can
// simply request a new code.
var ErrDispatchFailed = errors.New("otp dispatch failed")

// ErrTokenReused is returned when a presented refresh token no longer matches
// the farmer's persisted slot: either a replayed token, or one invalidated by
// a later rotation or logout. It must never lead to new credentials.
var ErrTokenReused = errors.New("refresh token reused")
