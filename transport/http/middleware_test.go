package http_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/d1c-app/d1c-gateway/core"
	transporthttp "github.com/d1c-app/d1c-gateway/transport/http"
)

const gateTestKey = "9aE476sH92Vz7DMPyq5WLPkrKWivxeuTKEFKd2sZZcde"

func gateBearerToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	signed, err := token.SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return signed
}

// addCookie attaches a cookie the way a browser would echo back a value
// written by gin's SetCookie, which query-escapes it.
func addCookie(req *http.Request, name, value string) {
	req.AddCookie(&http.Cookie{Name: name, Value: url.QueryEscape(value)})
}

func walletCookie(req *http.Request, issuedAt time.Time) {
	addCookie(req, core.WalletSessionCookie, core.NewWalletSession(gateTestKey, issuedAt).Encode())
}

func mfaCookie(t *testing.T, req *http.Request, exp time.Time) {
	addCookie(req, core.MFASessionCookie, core.NewMFASessionToken(gateBearerToken(t, exp)).Encode())
}

func adminCookie(req *http.Request) {
	addCookie(req, core.AdminFlagCookie, "true")
}

func perform(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := newCloseNotifyRecorder()
	router.ServeHTTP(w, req)
	return w.ResponseRecorder
}

func requireRedirect(t *testing.T, w *httptest.ResponseRecorder, target string) {
	t.Helper()
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	require.Equal(t, target, w.Header().Get("Location"))
}

func requireCookieCleared(t *testing.T, w *httptest.ResponseRecorder, name string) {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			require.Empty(t, c.Value)
			require.LessOrEqual(t, c.MaxAge, 0)
			return
		}
	}
	t.Fatalf("expected Set-Cookie clearing %q", name)
}

func TestRequestGate(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	t.Run("fresh browser requesting dashboard is sent home", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		requireRedirect(t, perform(t, env.router, req), "/")
	})

	t.Run("wallet-only session is sent to the MFA flow", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		walletCookie(req, now.Add(-time.Minute))
		requireRedirect(t, perform(t, env.router, req), "/auth/mfa/request")
	})

	t.Run("wallet-only session may use the MFA flow", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/mfa/request", nil)
		walletCookie(req, now.Add(-time.Minute))
		w := perform(t, env.router, req)
		require.NotEqual(t, http.StatusTemporaryRedirect, w.Code)
	})

	t.Run("fully authenticated user is forwarded past the MFA flow", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/mfa/verify", nil)
		walletCookie(req, now.Add(-time.Minute))
		mfaCookie(t, req, now.Add(time.Hour))
		requireRedirect(t, perform(t, env.router, req), "/dashboard")
	})

	t.Run("fully authenticated user may browse protected paths", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		walletCookie(req, now.Add(-time.Minute))
		mfaCookie(t, req, now.Add(time.Hour))
		w := perform(t, env.router, req)
		require.NotEqual(t, http.StatusTemporaryRedirect, w.Code)
	})

	t.Run("non-admin requesting admin path is sent to dashboard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		walletCookie(req, now.Add(-time.Minute))
		mfaCookie(t, req, now.Add(time.Hour))
		requireRedirect(t, perform(t, env.router, req), "/dashboard")
	})

	t.Run("admin flag without full auth grants nothing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		walletCookie(req, now.Add(-time.Minute))
		adminCookie(req)
		requireRedirect(t, perform(t, env.router, req), "/auth/mfa/request")
	})

	t.Run("admin with full auth may browse admin paths", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/colleges", nil)
		walletCookie(req, now.Add(-time.Minute))
		mfaCookie(t, req, now.Add(time.Hour))
		adminCookie(req)
		w := perform(t, env.router, req)
		require.NotEqual(t, http.StatusTemporaryRedirect, w.Code)
	})

	t.Run("wallet session older than 24h is invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		walletCookie(req, now.Add(-25*time.Hour))
		requireRedirect(t, perform(t, env.router, req), "/")
	})

	t.Run("mfa cookie without wallet cookie self-heals", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		mfaCookie(t, req, now.Add(time.Hour))

		w := perform(t, env.router, req)
		requireRedirect(t, w, "/")
		requireCookieCleared(t, w, core.WalletSessionCookie)
		requireCookieCleared(t, w, core.MFASessionCookie)
	})

	t.Run("expired mfa token downgrades to the MFA flow", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		walletCookie(req, now.Add(-time.Minute))
		mfaCookie(t, req, now.Add(-time.Hour))
		requireRedirect(t, perform(t, env.router, req), "/auth/mfa/request")
	})

	t.Run("malformed wallet cookie behaves as absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		addCookie(req, core.WalletSessionCookie, "{broken")
		requireRedirect(t, perform(t, env.router, req), "/")
	})

	t.Run("admincontrol is not an admin path", func(t *testing.T) {
		// Segment-boundary matching: /admincontrol is an ordinary
		// protected path, reachable without the admin flag.
		req := httptest.NewRequest(http.MethodGet, "/admincontrol", nil)
		walletCookie(req, now.Add(-time.Minute))
		mfaCookie(t, req, now.Add(time.Hour))
		w := perform(t, env.router, req)
		require.NotEqual(t, http.StatusTemporaryRedirect, w.Code)
	})

	t.Run("decisions are deterministic", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			walletCookie(req, now.Add(-time.Minute))
			requireRedirect(t, perform(t, env.router, req), "/auth/mfa/request")
		}
	})

	t.Run("health endpoint stays public", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := perform(t, env.router, req)
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want transporthttp.PathClass
	}{
		{"/", transporthttp.PathPublic},
		{"/healthz", transporthttp.PathPublic},
		{"/auth/siws", transporthttp.PathPublic},
		{"/auth/mfa", transporthttp.PathPublic},
		{"/auth/mfa/request", transporthttp.PathMFAFlow},
		{"/auth/mfa/request/", transporthttp.PathMFAFlow},
		{"/auth/mfa/verify", transporthttp.PathMFAFlow},
		{"/admin", transporthttp.PathAdmin},
		{"/admin/colleges", transporthttp.PathAdmin},
		{"/admincontrol", transporthttp.PathProtected},
		{"/admins", transporthttp.PathProtected},
		{"/dashboard", transporthttp.PathProtected},
		{"/api/leaderboard", transporthttp.PathPublic},
		{"/apix", transporthttp.PathProtected},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, transporthttp.Classify(tc.path), "path %q", tc.path)
	}
}

func TestBearerInjection(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	t.Run("unauthenticated API call is redirected away", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
		requireRedirect(t, perform(t, env.router, req), "/")
		require.Zero(t, env.backendHits("/leaderboard"))
	})

	t.Run("authenticated API call carries the bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
		walletCookie(req, now.Add(-time.Minute))
		mfaCookie(t, req, now.Add(time.Hour))

		w := perform(t, env.router, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, strings.HasPrefix(env.lastAuthHeader(), "Bearer "))
	})

	t.Run("allowlisted path needs no token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/colleges", nil)
		w := perform(t, env.router, req)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("record-variant session has no bearer and is redirected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
		walletCookie(req, now.Add(-time.Minute))
		addCookie(req, core.MFASessionCookie, core.NewMFASessionRecord([]byte(`{"ok":true}`)).Encode())
		requireRedirect(t, perform(t, env.router, req), "/")
	})
}

func TestAdminProxy(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	t.Run("non-admin is redirected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/fees", nil)
		walletCookie(req, now.Add(-time.Minute))
		mfaCookie(t, req, now.Add(time.Hour))
		requireRedirect(t, perform(t, env.router, req), "/dashboard")
		require.Zero(t, env.backendHits("/admin/fees"))
	})

	t.Run("admin request is proxied with the bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/fees/harvest", nil)
		walletCookie(req, now.Add(-time.Minute))
		mfaCookie(t, req, now.Add(time.Hour))
		adminCookie(req)

		w := perform(t, env.router, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 1, env.backendHits("/admin/fees/harvest"))
		require.True(t, strings.HasPrefix(env.lastAuthHeader(), "Bearer "))
	})
}
