package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/d1c-app/d1c-gateway/backend"
	"github.com/d1c-app/d1c-gateway/core"
	"github.com/d1c-app/d1c-gateway/service"
	"github.com/d1c-app/d1c-gateway/siws"
)

// AuthHandlers contains HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
	secure      bool
	log         zerolog.Logger
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService, secure bool, log zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		secure:      secure,
		log:         log.With().Str("component", "http").Logger(),
	}
}

// Challenge handles sign-in challenge requests.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	input, err := h.authService.CreateChallenge(req.Address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, input)
}

// SIWS handles wallet-session issuance after a sign-in. When the raw signed
// payload accompanies the request it is re-verified server-side; otherwise
// the cookie is issued on the client's assertion alone, which is a trust
// boundary this handler logs on every use.
func (h *AuthHandlers) SIWS(c *gin.Context) {
	var req struct {
		PublicKey string             `json:"publicKey"`
		Timestamp int64              `json:"timestamp"`
		Input     *siws.SignInInput  `json:"input,omitempty"`
		Output    *siws.SignInOutput `json:"output,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.PublicKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing publicKey"})
		return
	}
	if req.Timestamp == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing timestamp"})
		return
	}

	switch {
	case req.Input != nil && req.Output != nil:
		if err := h.authService.VerifySignIn(c.Request.Context(), *req.Input, *req.Output); err != nil {
			h.log.Info().Err(err).Str("publicKey", req.PublicKey).Msg("sign-in verification failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign-in verification failed"})
			return
		}
	case req.Input != nil || req.Output != nil:
		// Half a signed payload is a broken client, not an intentional
		// assertion-only sign-in. Never downgrade the trust level silently.
		c.JSON(http.StatusBadRequest, gin.H{"error": "Incomplete sign-in payload"})
		return
	default:
		h.log.Warn().Str("publicKey", req.PublicKey).
			Msg("issuing wallet session without server-side signature re-verification")
	}

	sess, err := h.authService.IssueWalletSession(req.PublicKey, time.UnixMilli(req.Timestamp))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid publicKey"})
		return
	}

	SetSessionCookie(c, core.WalletSessionCookie, sess.Encode(), core.SessionTTL, h.secure)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Email handles one-time-code delivery requests.
func (h *AuthHandlers) Email(c *gin.Context) {
	var req struct {
		Email         string `json:"email"`
		WalletAddress string `json:"walletAddress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email"})
		return
	}
	if req.WalletAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing walletAddress"})
		return
	}

	data, err := h.authService.RequestMFACode(c.Request.Context(), req.Email, req.WalletAddress)
	if err != nil {
		h.respondBackendError(c, err, "Failed to send verification code")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// MFA handles one-time-code verification. The MFA cookie is set only on a
// backend-confirmed success; every failure path leaves the cookie set
// untouched.
func (h *AuthHandlers) MFA(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email"})
		return
	}
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code"})
		return
	}

	sess, result, err := h.authService.VerifyMFACode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification code"})
			return
		}
		h.respondBackendError(c, err, "Verification failed")
		return
	}

	SetSessionCookie(c, core.MFASessionCookie, sess.Encode(), core.SessionTTL, h.secure)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"verified": result.Verified,
		"data":     result.Data,
	})
}

// CheckAdmin derives authentication and admin booleans from the cookie set.
// Advisory for UI rendering only; state-changing admin routes re-check via
// RequireAdmin.
func (h *AuthHandlers) CheckAdmin(c *gin.Context) {
	view := SessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"isAuthenticated": view.FullyAuthed(),
		"isAdmin":         view.IsAdmin(),
	})
}

// Logout clears both session cookies. Idempotent.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if view := SessionFrom(c); view.WalletOK {
		h.authService.Logout(c.Request.Context(), view.Wallet.PublicKey)
	}

	ClearSessionCookies(c, h.secure)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// respondBackendError maps backend failures to responses: reported failures
// propagate the backend's message and status, unreachability surfaces as a
// generic 500. Internal detail never leaks to the client.
func (h *AuthHandlers) respondBackendError(c *gin.Context, err error, fallback string) {
	var backendErr *backend.Error
	if errors.As(err, &backendErr) {
		status := backendErr.Status
		if status < 400 || status >= 600 {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": backendErr.Message})
		return
	}

	h.log.Error().Err(err).Msg(fallback)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
