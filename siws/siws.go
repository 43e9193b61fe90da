// Package siws implements the Sign In With Solana challenge/response
// protocol from the Solana Wallet Standard. A challenge (SignInInput) is sent
// to the wallet, which renders it as a text message and signs it with the
// account's Ed25519 key; verification reconstructs the message and checks the
// signature against the account's public key.
package siws

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/d1c-app/d1c-gateway/core"
)

const (
	// Version is the only SIWS message version in use.
	Version = "1"

	// NonceBytes is the entropy of a challenge nonce (hex-encoded to twice
	// this many characters).
	NonceBytes = 16

	// ChallengeTTL is how long a challenge stays signable after issuance.
	ChallengeTTL = 10 * time.Minute
)

// SignInInput is a SIWS challenge, serialized with the wallet-standard field
// names so wallets render it verbatim.
type SignInInput struct {
	Domain         string   `json:"domain"`
	Address        string   `json:"address,omitempty"`
	Statement      string   `json:"statement,omitempty"`
	URI            string   `json:"uri,omitempty"`
	Version        string   `json:"version,omitempty"`
	ChainID        string   `json:"chainId,omitempty"`
	Nonce          string   `json:"nonce"`
	IssuedAt       string   `json:"issuedAt"`
	ExpirationTime string   `json:"expirationTime,omitempty"`
	RequestID      string   `json:"requestId,omitempty"`
	Resources      []string `json:"resources,omitempty"`
}

// SignInOutput is the wallet's response to a challenge.
type SignInOutput struct {
	Account       Account `json:"account"`
	Signature     []byte  `json:"signature"`
	SignedMessage []byte  `json:"signedMessage"`
}

// Account identifies the signing wallet account.
type Account struct {
	Address   string `json:"address"`
	PublicKey []byte `json:"publicKey,omitempty"`
}

// ChallengeParams carry the deployment-specific parts of a challenge.
type ChallengeParams struct {
	Domain    string
	URI       string
	Statement string
	ChainID   string
	Address   string
}

// CreateChallenge builds a fresh challenge. The nonce comes from a
// cryptographically secure source and is never reused: every call draws new
// randomness, with no caching between calls.
func CreateChallenge(p ChallengeParams, now time.Time) (SignInInput, error) {
	nonce, err := NewNonce()
	if err != nil {
		return SignInInput{}, err
	}

	return SignInInput{
		Domain:         p.Domain,
		Address:        p.Address,
		Statement:      p.Statement,
		URI:            p.URI,
		Version:        Version,
		ChainID:        p.ChainID,
		Nonce:          nonce,
		IssuedAt:       now.UTC().Format(time.RFC3339),
		ExpirationTime: now.Add(ChallengeTTL).UTC().Format(time.RFC3339),
		RequestID:      uuid.New().String(),
	}, nil
}

// NewNonce returns a fresh hex-encoded random nonce.
func NewNonce() (string, error) {
	buf := make([]byte, NonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Verify checks a wallet's response against the exact challenge that produced
// it. It returns nil only when the addresses match, the signed message is the
// canonical rendering of the input, the challenge's validity window contains
// now, and the Ed25519 signature verifies. It fails closed: malformed input
// yields an error, never a panic.
func Verify(input SignInInput, output SignInOutput, now time.Time) error {
	pubKey, err := DecodeAddress(output.Account.Address)
	if err != nil {
		return err
	}

	if input.Address != "" && input.Address != output.Account.Address {
		return fmt.Errorf("%w: address mismatch", core.ErrInvalidPayload)
	}

	if err := checkWindow(input, now); err != nil {
		return err
	}

	if string(output.SignedMessage) != ConstructMessage(input) {
		return fmt.Errorf("%w: signed message does not match challenge", core.ErrInvalidPayload)
	}

	if len(output.Signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: bad signature length %d", core.ErrInvalidSignature, len(output.Signature))
	}

	if !ed25519.Verify(pubKey, output.SignedMessage, output.Signature) {
		return core.ErrInvalidSignature
	}

	return nil
}

// checkWindow enforces issuedAt <= now <= expirationTime. A signature over an
// expired challenge is rejected even when cryptographically valid.
func checkWindow(input SignInInput, now time.Time) error {
	issued, err := time.Parse(time.RFC3339, input.IssuedAt)
	if err != nil {
		return fmt.Errorf("%w: bad issuedAt", core.ErrInvalidPayload)
	}
	if now.Before(issued) {
		return fmt.Errorf("%w: challenge not yet valid", core.ErrInvalidPayload)
	}

	if input.ExpirationTime == "" {
		return nil
	}
	expires, err := time.Parse(time.RFC3339, input.ExpirationTime)
	if err != nil {
		return fmt.Errorf("%w: bad expirationTime", core.ErrInvalidPayload)
	}
	if now.After(expires) {
		return core.ErrChallengeExpired
	}
	return nil
}

// DecodeAddress decodes a base58 Solana address into an Ed25519 public key.
func DecodeAddress(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", core.ErrInvalidAddress, len(decoded), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}

// EncodeAddress encodes an Ed25519 public key as a base58 Solana address.
func EncodeAddress(pubKey ed25519.PublicKey) string {
	return base58.Encode(pubKey)
}

// ValidateAddress reports whether a string is a well-formed Solana address.
func ValidateAddress(address string) error {
	_, err := DecodeAddress(address)
	return err
}
