// Package backend is the typed HTTP client for the D1C backend REST API. The
// backend owns persistence, OTP delivery, admin assignment, and everything
// token-economic; this layer only calls it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/d1c-app/d1c-gateway/core"
)

const (
	defaultTimeout   = 10 * time.Second
	collegesCacheTTL = 5 * time.Minute
)

// Client talks to the D1C backend.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger

	collegesMu      sync.Mutex
	colleges        []College
	collegesFetched time.Time
}

// New creates a backend client.
func New(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log.With().Str("component", "backend").Logger(),
	}
}

// SendOTP asks the backend to email a one-time code to the given address.
// The backend's response envelope is passed through untouched.
func (c *Client) SendOTP(ctx context.Context, email, walletAddress string) (json.RawMessage, error) {
	env, err := c.post(ctx, "/otp/send", map[string]string{
		"email":         email,
		"walletAddress": walletAddress,
	})
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// VerifyOTP submits a one-time code for verification. A non-success envelope
// comes back as *Error; network failures as ErrBackendUnavailable.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (VerifyResult, error) {
	env, err := c.post(ctx, "/otp/verify", map[string]string{
		"email": email,
		"code":  code,
	})
	if err != nil {
		return VerifyResult{}, err
	}

	var result VerifyResult
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return VerifyResult{}, fmt.Errorf("failed to decode verify result: %w", err)
		}
	}
	result.Verified = true
	if result.AccessToken == "" && len(result.Data) == 0 {
		result.Data = env.Data
	}
	return result, nil
}

// Colleges returns the college list, cached for a short TTL since it is
// read-mostly reference data.
func (c *Client) Colleges(ctx context.Context) ([]College, error) {
	c.collegesMu.Lock()
	defer c.collegesMu.Unlock()

	if c.colleges != nil && time.Since(c.collegesFetched) < collegesCacheTTL {
		return c.colleges, nil
	}

	env, err := c.get(ctx, "/colleges", "")
	if err != nil {
		return nil, err
	}

	var colleges []College
	if err := json.Unmarshal(env.Data, &colleges); err != nil {
		return nil, fmt.Errorf("failed to decode colleges: %w", err)
	}

	c.colleges = colleges
	c.collegesFetched = time.Now()
	return colleges, nil
}

// Leaderboard returns the contribution leaderboard.
func (c *Client) Leaderboard(ctx context.Context, bearer string) ([]LeaderboardEntry, error) {
	env, err := c.get(ctx, "/leaderboard", bearer)
	if err != nil {
		return nil, err
	}

	var entries []LeaderboardEntry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return entries, nil
}

// Balance looks up a wallet's token balance. Balance lookups authenticate
// with the backend API key rather than a user bearer token.
func (c *Client) Balance(ctx context.Context, wallet string) (Balance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/balances/"+wallet, nil)
	if err != nil {
		return Balance{}, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	env, err := c.do(req)
	if err != nil {
		return Balance{}, err
	}

	var balance Balance
	if err := json.Unmarshal(env.Data, &balance); err != nil {
		return Balance{}, fmt.Errorf("failed to decode balance: %w", err)
	}
	return balance, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return envelope{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) get(ctx context.Context, path, bearer string) (envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return envelope{}, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("path", req.URL.Path).Msg("backend request failed")
		return envelope{}, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return envelope{}, fmt.Errorf("%w: malformed response", core.ErrBackendUnavailable)
		}
		return envelope{}, &Error{Status: resp.StatusCode, Message: "request failed"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		status := resp.StatusCode
		if status >= 200 && status < 300 {
			status = http.StatusBadRequest
		}
		return envelope{}, &Error{Status: status, Message: env.errorMessage()}
	}

	return env, nil
}
