package http

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/d1c-app/d1c-gateway/backend"
)

// ResourceHandlers front the backend's read endpoints with typed responses.
type ResourceHandlers struct {
	backend *backend.Client
}

// NewResourceHandlers creates handlers for backend-backed resources.
func NewResourceHandlers(client *backend.Client) *ResourceHandlers {
	return &ResourceHandlers{backend: client}
}

// Colleges serves the cached college list. Public reference data.
func (h *ResourceHandlers) Colleges(c *gin.Context) {
	colleges, err := h.backend.Colleges(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load colleges"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": colleges})
}

// Leaderboard serves the contribution leaderboard using the caller's bearer
// token, which BearerInjection placed on the request.
func (h *ResourceHandlers) Leaderboard(c *gin.Context) {
	bearer := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	entries, err := h.backend.Leaderboard(c.Request.Context(), bearer)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

// Balance serves a wallet's token balance. The backend call authenticates
// with the service API key, not the user's bearer token.
func (h *ResourceHandlers) Balance(c *gin.Context) {
	wallet := c.Param("wallet")

	balance, err := h.backend.Balance(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load balance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": balance})
}

// AdminProxy forwards admin API calls (college/wallet management, fee
// harvest and distribution jobs) to the backend verbatim, minus the /api
// prefix. The Authorization header is already set by BearerInjection and
// admin privilege was checked by RequireAdmin.
func AdminProxy(backendBaseURL string, log zerolog.Logger) (gin.HandlerFunc, error) {
	target, err := url.Parse(backendBaseURL)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.URL.Path = strings.TrimPrefix(req.URL.Path, "/api")
		req.Host = target.Host
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("admin proxy failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"Backend unavailable"}`))
	}

	return func(c *gin.Context) {
		proxy.ServeHTTP(c.Writer, c.Request)
	}, nil
}
