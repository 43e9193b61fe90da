package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/d1c-app/d1c-gateway/adapters/events"
	"github.com/d1c-app/d1c-gateway/adapters/store"
	"github.com/d1c-app/d1c-gateway/backend"
	"github.com/d1c-app/d1c-gateway/internal/config"
	"github.com/d1c-app/d1c-gateway/service"
	transporthttp "github.com/d1c-app/d1c-gateway/transport/http"
)

// testEnv wires the router against a fake backend that records traffic.
type testEnv struct {
	router *gin.Engine

	mu       sync.Mutex
	hits     map[string]int
	authSeen string

	// verifyOTP lets a test script the backend's OTP-verify response.
	verifyOTP func(w http.ResponseWriter)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{hits: map[string]int{}}

	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.hits[r.URL.Path]++
		if auth := r.Header.Get("Authorization"); auth != "" {
			env.authSeen = auth
		}
		verify := env.verifyOTP
		env.mu.Unlock()

		switch {
		case r.URL.Path == "/otp/send":
			writeEnvelope(w, map[string]any{"sent": true})
		case r.URL.Path == "/otp/verify":
			if verify != nil {
				verify(w)
				return
			}
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"exp": time.Now().Add(time.Hour).Unix(),
			})
			signed, _ := token.SignedString([]byte("backend-secret"))
			writeEnvelope(w, map[string]any{"accessToken": signed})
		case r.URL.Path == "/colleges":
			writeEnvelope(w, []map[string]any{{"id": "c1", "name": "State University"}})
		case r.URL.Path == "/leaderboard":
			writeEnvelope(w, []map[string]any{
				{"rank": 1, "collegeId": "c1", "collegeName": "State University", "contributed": "10.5", "holders": 3},
			})
		default:
			writeEnvelope(w, map[string]any{"ok": true})
		}
	}))
	t.Cleanup(backendSrv.Close)

	cfg := &config.Config{
		Environment:    config.EnvDevelopment,
		ListenAddr:     ":0",
		Domain:         "d1c.app",
		Origin:         "https://d1c.app",
		BackendBaseURL: backendSrv.URL,
	}

	backendClient := backend.New(cfg.BackendBaseURL, cfg.BackendAPIKey, zerolog.Nop())
	authService := service.NewAuthService(
		store.NewMemoryStore(),
		events.NewNoopPublisher(),
		backendClient,
		cfg.Domain, cfg.Origin, cfg.ChainID(),
		zerolog.Nop(),
	)

	router, err := transporthttp.SetupRouter(cfg, authService, backendClient, zerolog.Nop())
	require.NoError(t, err)
	env.router = router

	return env
}

func (e *testEnv) backendHits(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits[path]
}

func (e *testEnv) lastAuthHeader() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.authSeen
}

func (e *testEnv) scriptVerifyOTP(fn func(w http.ResponseWriter)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.verifyOTP = fn
}

// closeNotifyRecorder adds CloseNotify to httptest.ResponseRecorder.
// httputil.ReverseProxy asks the writer for it through gin's unchecked
// http.CloseNotifier assertion, which a bare recorder would fail.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{
		ResponseRecorder: httptest.NewRecorder(),
		closed:           make(chan bool, 1),
	}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}
