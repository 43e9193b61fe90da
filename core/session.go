package core

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Cookie names shared between the issuing handlers and the request gate.
const (
	WalletSessionCookie = "wallet-session"
	MFASessionCookie    = "mfa-session"
	AdminFlagCookie     = "admin-flag"
)

const (
	// SessionPayloadVersion is the current wallet/MFA cookie schema version.
	SessionPayloadVersion = 1

	// SessionTTL bounds how long a wallet session is honored after issuance.
	SessionTTL = 24 * time.Hour
)

// WalletSession is the payload of the wallet-session cookie. It asserts that
// this browser proved control of PublicKey at IssuedAt.
type WalletSession struct {
	Version   int    `json:"v"`
	PublicKey string `json:"publicKey"`
	IssuedAt  int64  `json:"issuedAt"` // epoch milliseconds
}

// NewWalletSession creates a wallet session payload for the given public key,
// issued at the provided instant.
func NewWalletSession(publicKey string, issuedAt time.Time) WalletSession {
	return WalletSession{
		Version:   SessionPayloadVersion,
		PublicKey: publicKey,
		IssuedAt:  issuedAt.UnixMilli(),
	}
}

// ParseWalletSession decodes a wallet-session cookie value. Anything that is
// not a well-formed current-version payload is an error; callers treat the
// error as "cookie absent".
func ParseWalletSession(raw string) (WalletSession, error) {
	var s WalletSession
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return WalletSession{}, ErrInvalidSession
	}
	if s.Version != SessionPayloadVersion || s.PublicKey == "" || s.IssuedAt <= 0 {
		return WalletSession{}, ErrInvalidSession
	}
	return s, nil
}

// Encode serializes the payload for storage in a cookie.
func (s WalletSession) Encode() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ValidAt reports whether the session is live at the given instant.
func (s WalletSession) ValidAt(now time.Time) bool {
	if s.PublicKey == "" || s.IssuedAt <= 0 {
		return false
	}
	issued := time.UnixMilli(s.IssuedAt)
	if now.Before(issued) {
		return false
	}
	return now.Sub(issued) < SessionTTL
}

// MFASession is the payload of the mfa-session cookie. Exactly one of Token
// (a backend-issued bearer token with an embedded expiry claim) or Record (an
// opaque verification payload) is populated.
type MFASession struct {
	Version int             `json:"v"`
	Token   string          `json:"token,omitempty"`
	Record  json.RawMessage `json:"record,omitempty"`
}

// NewMFASessionToken wraps a backend bearer token in an MFA session payload.
func NewMFASessionToken(token string) MFASession {
	return MFASession{Version: SessionPayloadVersion, Token: token}
}

// NewMFASessionRecord wraps an opaque backend verification record.
func NewMFASessionRecord(record json.RawMessage) MFASession {
	return MFASession{Version: SessionPayloadVersion, Record: record}
}

// ParseMFASession decodes an mfa-session cookie value, failing closed on
// anything malformed or empty.
func ParseMFASession(raw string) (MFASession, error) {
	var s MFASession
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return MFASession{}, ErrInvalidSession
	}
	if s.Version != SessionPayloadVersion {
		return MFASession{}, ErrInvalidSession
	}
	if s.Token == "" && len(s.Record) == 0 {
		return MFASession{}, ErrInvalidSession
	}
	return s, nil
}

// Encode serializes the payload for storage in a cookie.
func (s MFASession) Encode() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ValidAt reports whether the MFA session is live at the given instant. For
// the token variant the token's exp claim is authoritative; the token is
// issued and signed by the backend, so only its expiry is inspected here. The
// record variant has no embedded expiry and relies on the cookie MaxAge.
func (s MFASession) ValidAt(now time.Time) bool {
	if s.Token == "" {
		return len(s.Record) > 0
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.Before(exp.Time)
}

// BearerToken returns the backend bearer token, or "" for the record variant.
func (s MFASession) BearerToken() string {
	return s.Token
}
