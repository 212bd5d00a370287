package domain

import "errors"

var (
	// ErrRequestValidation covers malformed input and missing required headers.
	// It is surfaced before any store lookup so bad requests never touch state.
	ErrRequestValidation = errors.New("request validation failed")
	// ErrForbidden deliberately does not distinguish "resource does not exist"
	// from "resource is not yours"; collapsing both closes an enumeration side channel.
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("resource not found")
	ErrConflict  = errors.New("conflict")
	// ErrIdempotencyConflict means the same idempotency key was replayed with a
	// different payload. The stored record is never overwritten.
	ErrIdempotencyConflict   = errors.New("idempotency conflict")
	ErrBusinessRuleViolation = errors.New("business rule violation")
	ErrComplianceViolation   = errors.New("compliance violation")
	ErrDecryptionFailed      = errors.New("decryption failed")
	// ErrUnavailable marks transient infrastructure failures (lock timeout,
	// store unavailable). Callers may retry; handlers never swallow it.
	ErrUnavailable = errors.New("service unavailable")
)
