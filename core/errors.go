package core

import "errors"

var (
	ErrChallengeExpired    = errors.New("challenge has expired")
	ErrNonceConsumed       = errors.New("nonce has already been used")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidAddress      = errors.New("invalid solana address")
	ErrInvalidPayload      = errors.New("invalid sign-in payload")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrInvalidSession      = errors.New("invalid session")
	ErrSessionExpired      = errors.New("session has expired")
	ErrInconsistentSession = errors.New("inconsistent session state")
	ErrBackendUnavailable  = errors.New("backend unavailable")
)
