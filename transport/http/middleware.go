package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/d1c-app/d1c-gateway/core"
)

const sessionContextKey = "sessionView"

// Redirect targets used by the gate.
const (
	pathHome       = "/"
	pathDashboard  = "/dashboard"
	pathMFARequest = "/auth/mfa/request"
)

// SessionContext parses the cookie set exactly once per request and stashes
// the resulting view in the gin context. Every later stage reads this shared
// view, so no two stages can disagree on how a cookie parses.
func SessionContext(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		walletRaw, _ := c.Cookie(core.WalletSessionCookie)
		mfaRaw, _ := c.Cookie(core.MFASessionCookie)
		adminRaw, _ := c.Cookie(core.AdminFlagCookie)

		view := core.ResolveSession(walletRaw, mfaRaw, adminRaw, time.Now())
		if view.Inconsistent {
			log.Warn().Str("path", c.Request.URL.Path).Msg("mfa cookie present without valid wallet session")
		}

		c.Set(sessionContextKey, view)
		c.Next()
	}
}

// SessionFrom returns the request's session view. The zero view (fully
// unauthenticated) comes back if SessionContext did not run.
func SessionFrom(c *gin.Context) core.SessionView {
	if v, ok := c.Get(sessionContextKey); ok {
		if view, ok := v.(core.SessionView); ok {
			return view
		}
	}
	return core.SessionView{}
}

// RequestGate is the per-request authentication state machine. The decision
// is a pure function of (cookies, path): identical inputs always produce the
// identical allow/redirect outcome.
func RequestGate(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		view := SessionFrom(c)
		class := Classify(c.Request.URL.Path)

		// An MFA cookie outliving its wallet prerequisite is stale or
		// forged. Clear both and start over; this is self-healing, not a
		// hard failure.
		if view.Inconsistent {
			ClearSessionCookies(c, secure)
			if class != PathPublic {
				redirect(c, pathHome)
				return
			}
		}

		if class == PathPublic {
			c.Next()
			return
		}

		switch view.State() {
		case core.Disconnected:
			redirect(c, pathHome)

		case core.WalletAuthenticated:
			if class == PathMFAFlow {
				c.Next()
				return
			}
			redirect(c, pathMFARequest)

		case core.FullyAuthenticated, core.FullyAuthenticatedAdmin:
			// Forward-redirect: a completed MFA step is never re-run.
			if class == PathMFAFlow {
				redirect(c, pathDashboard)
				return
			}
			if class == PathAdmin && !view.IsAdmin() {
				redirect(c, pathDashboard)
				return
			}
			c.Next()
		}
	}
}

// BearerInjection converts the MFA session cookie into an Authorization
// header for backend-bound API routes. Requests without a bearer token are
// redirected away rather than forwarded headerless, except for paths on the
// public API allowlist.
func BearerInjection(publicAPIPaths []string) gin.HandlerFunc {
	allow := make(map[string]struct{}, len(publicAPIPaths))
	for _, p := range publicAPIPaths {
		allow[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allow[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		view := SessionFrom(c)
		token := view.MFA.BearerToken()
		if !view.FullyAuthed() || token == "" {
			redirect(c, pathHome)
			return
		}

		c.Request.Header.Set("Authorization", "Bearer "+token)
		c.Next()
	}
}

// RequireAdmin gates admin API routes on the full session view, independent
// of the advisory check-admin endpoint.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFrom(c).IsAdmin() {
			redirect(c, pathDashboard)
			return
		}
		c.Next()
	}
}

// RequestLogger emits one structured log line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// SetSessionCookie writes a session cookie with the flags every session
// cookie in this service carries: httpOnly, SameSite=Lax, path=/, Secure in
// production.
func SetSessionCookie(c *gin.Context, name, value string, maxAge time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(maxAge.Seconds()), "/", "", secure, true)
}

// ClearSessionCookies expires both session cookies.
func ClearSessionCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(core.WalletSessionCookie, "", -1, "/", "", secure, true)
	c.SetCookie(core.MFASessionCookie, "", -1, "/", "", secure, true)
}

func redirect(c *gin.Context, target string) {
	c.Redirect(http.StatusTemporaryRedirect, target)
	c.Abort()
}
