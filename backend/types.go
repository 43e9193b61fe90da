package backend

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error is a backend-reported failure, carrying the upstream status code and
// message so handlers can propagate them instead of fabricating their own.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}

// envelope is the backend's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e envelope) errorMessage() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return "request failed"
}

// VerifyResult is the outcome of an OTP verification. AccessToken is set when
// the backend issues a bearer token; Data carries the opaque verification
// record otherwise.
type VerifyResult struct {
	Verified    bool            `json:"verified"`
	AccessToken string          `json:"accessToken,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// College is a linkable institution.
type College struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Mint   string `json:"mint,omitempty"`
	Active bool   `json:"active"`
}

// LeaderboardEntry is one row of the token-contribution leaderboard.
type LeaderboardEntry struct {
	Rank        int             `json:"rank"`
	CollegeID   string          `json:"collegeId"`
	CollegeName string          `json:"collegeName"`
	Contributed decimal.Decimal `json:"contributed"`
	Holders     int             `json:"holders"`
}

// Balance is a wallet's token balance as reported by the backend.
type Balance struct {
	Wallet    string          `json:"wallet"`
	Amount    decimal.Decimal `json:"amount"`
	UIAmount  decimal.Decimal `json:"uiAmount"`
	Mint      string          `json:"mint"`
	UpdatedAt int64           `json:"updatedAt"`
}
