package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/d1c-app/d1c-gateway/backend"
	"github.com/d1c-app/d1c-gateway/core"
	"github.com/d1c-app/d1c-gateway/ports"
	"github.com/d1c-app/d1c-gateway/siws"
)

// Statement shown by wallets when rendering the sign-in message.
const SignInStatement = "Sign in to D1C to manage your college token contributions."

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// AuthService handles the authentication pipeline: SIWS challenge issuance
// and verification, wallet-session issuance, email OTP relay, and logout.
type AuthService struct {
	nonces  ports.NonceStore
	events  ports.EventPublisher
	backend *backend.Client

	domain  string
	origin  string
	chainID string

	now func() time.Time
	log zerolog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	nonces ports.NonceStore,
	events ports.EventPublisher,
	backendClient *backend.Client,
	domain, origin, chainID string,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		nonces:  nonces,
		events:  events,
		backend: backendClient,
		domain:  domain,
		origin:  origin,
		chainID: chainID,
		now:     time.Now,
		log:     log.With().Str("component", "auth").Logger(),
	}
}

// CreateChallenge generates a fresh sign-in challenge for a wallet address.
func (s *AuthService) CreateChallenge(address string) (siws.SignInInput, error) {
	if address != "" {
		if err := siws.ValidateAddress(address); err != nil {
			return siws.SignInInput{}, err
		}
	}

	input, err := siws.CreateChallenge(siws.ChallengeParams{
		Domain:    s.domain,
		URI:       s.origin,
		Statement: SignInStatement,
		ChainID:   s.chainID,
		Address:   address,
	}, s.now())
	if err != nil {
		return siws.SignInInput{}, fmt.Errorf("failed to create challenge: %w", err)
	}

	return input, nil
}

// VerifySignIn validates a wallet's signed response against its challenge.
// The nonce is consumed before the signature check, so a replayed challenge
// fails even when its signature is valid. On success a sign-in event is
// published.
func (s *AuthService) VerifySignIn(ctx context.Context, input siws.SignInInput, output siws.SignInOutput) error {
	if input.Nonce == "" {
		return fmt.Errorf("%w: missing nonce", core.ErrInvalidPayload)
	}
	if input.Domain != s.domain {
		return fmt.Errorf("%w: domain mismatch", core.ErrInvalidPayload)
	}

	fresh, err := s.nonces.Consume(ctx, input.Nonce, siws.ChallengeTTL)
	if err != nil {
		return fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !fresh {
		return core.ErrNonceConsumed
	}

	if err := siws.Verify(input, output, s.now()); err != nil {
		return err
	}

	if err := s.events.PublishSignIn(ctx, output.Account.Address); err != nil {
		// Eventing is best-effort; the sign-in already succeeded.
		s.log.Warn().Err(err).Msg("failed to publish sign-in event")
	}

	return nil
}

// IssueWalletSession builds the wallet-session payload for a public key. The
// key must be a well-formed Solana address; anything else never reaches a
// cookie.
func (s *AuthService) IssueWalletSession(publicKey string, issuedAt time.Time) (core.WalletSession, error) {
	if err := siws.ValidateAddress(publicKey); err != nil {
		return core.WalletSession{}, err
	}
	return core.NewWalletSession(publicKey, issuedAt), nil
}

// RequestMFACode asks the backend to send a one-time code to the email.
func (s *AuthService) RequestMFACode(ctx context.Context, email, walletAddress string) (json.RawMessage, error) {
	return s.backend.SendOTP(ctx, email, walletAddress)
}

// VerifyMFACode checks the 6-digit code with the backend and, on success,
// returns the MFA session payload to store. The digit check happens before
// any network call; a malformed code never leaves the process.
func (s *AuthService) VerifyMFACode(ctx context.Context, email, code string) (core.MFASession, backend.VerifyResult, error) {
	if !codePattern.MatchString(code) {
		return core.MFASession{}, backend.VerifyResult{}, core.ErrInvalidCode
	}

	result, err := s.backend.VerifyOTP(ctx, email, code)
	if err != nil {
		return core.MFASession{}, backend.VerifyResult{}, err
	}

	var session core.MFASession
	if result.AccessToken != "" {
		session = core.NewMFASessionToken(result.AccessToken)
	} else {
		session = core.NewMFASessionRecord(result.Data)
	}

	if err := s.events.PublishMFAVerified(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish mfa event")
	}

	return session, result, nil
}

// Logout records a sign-out. Cookie clearing is the transport's job; this
// only publishes the event so other instances can react.
func (s *AuthService) Logout(ctx context.Context, address string) {
	if err := s.events.PublishLogout(ctx, address); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish logout event")
	}
}

// WithClock overrides the service clock. Test hook.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}
