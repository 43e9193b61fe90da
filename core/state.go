package core

import "time"

// AuthState is the authentication level of a request, derived fresh from the
// cookie set on every evaluation. There is no stored transition history.
type AuthState int

const (
	// Disconnected means no valid wallet session.
	Disconnected AuthState = iota

	// WalletAuthenticated means the wallet session is valid but the email
	// one-time-code step has not been completed.
	WalletAuthenticated

	// FullyAuthenticated means both wallet and MFA sessions are valid.
	FullyAuthenticated

	// FullyAuthenticatedAdmin additionally carries the admin flag.
	FullyAuthenticatedAdmin
)

func (s AuthState) String() string {
	switch s {
	case WalletAuthenticated:
		return "wallet_authenticated"
	case FullyAuthenticated:
		return "fully_authenticated"
	case FullyAuthenticatedAdmin:
		return "fully_authenticated_admin"
	default:
		return "disconnected"
	}
}

// SessionView is the one-shot evaluation of a request's cookie set. It is
// computed once per request and shared by every middleware stage so that no
// two stages can diverge on how a cookie parses.
type SessionView struct {
	Wallet   WalletSession
	WalletOK bool

	MFA   MFASession
	MFAOK bool

	Admin bool

	// Inconsistent is set when an mfa-session cookie is present while the
	// wallet session it depends on is invalid or absent. The gate clears
	// both cookies when it sees this.
	Inconsistent bool
}

// ResolveSession computes a SessionView from raw cookie values. Empty strings
// stand for absent cookies; malformed values are treated identically to
// absent ones.
func ResolveSession(walletRaw, mfaRaw, adminRaw string, now time.Time) SessionView {
	var view SessionView

	if walletRaw != "" {
		if w, err := ParseWalletSession(walletRaw); err == nil && w.ValidAt(now) {
			view.Wallet = w
			view.WalletOK = true
		}
	}

	if mfaRaw != "" {
		if !view.WalletOK {
			// MFA without wallet auth is meaningless; the cookie is stale
			// or forged and must not be honored.
			view.Inconsistent = true
		} else if m, err := ParseMFASession(mfaRaw); err == nil && m.ValidAt(now) {
			view.MFA = m
			view.MFAOK = true
		}
	}

	view.Admin = adminRaw == "true"

	return view
}

// State collapses the view into the state machine's current state.
func (v SessionView) State() AuthState {
	switch {
	case !v.WalletOK:
		return Disconnected
	case !v.MFAOK:
		return WalletAuthenticated
	case v.Admin:
		return FullyAuthenticatedAdmin
	default:
		return FullyAuthenticated
	}
}

// FullyAuthed reports whether both factors are currently valid.
func (v SessionView) FullyAuthed() bool {
	return v.WalletOK && v.MFAOK
}

// IsAdmin reports admin privilege. The flag alone grants nothing; it is only
// meaningful on top of full authentication.
func (v SessionView) IsAdmin() bool {
	return v.Admin && v.FullyAuthed()
}
