package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/d1c-app/d1c-gateway/backend"
	"github.com/d1c-app/d1c-gateway/internal/config"
	"github.com/d1c-app/d1c-gateway/service"
)

// publicAPIPaths are API routes forwarded without a bearer token.
var publicAPIPaths = []string{"/api/colleges"}

// SetupRouter sets up the Gin router with the full middleware pipeline:
// request logging, one shared session resolution, the request gate, and
// bearer injection for backend-bound routes.
func SetupRouter(
	cfg *config.Config,
	authService *service.AuthService,
	backendClient *backend.Client,
	log zerolog.Logger,
) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RequestLogger(log), gin.Recovery())
	router.Use(SessionContext(log))
	router.Use(RequestGate(cfg.IsProduction()))

	handlers := NewAuthHandlers(authService, cfg.IsProduction(), log)
	resources := NewResourceHandlers(backendClient)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/siws", handlers.SIWS)
		auth.POST("/email", handlers.Email)
		auth.POST("/mfa", handlers.MFA)
		auth.GET("/check-admin", handlers.CheckAdmin)
		auth.POST("/logout", handlers.Logout)
	}

	api := router.Group("/api")
	api.Use(BearerInjection(publicAPIPaths))
	{
		api.GET("/colleges", resources.Colleges)
		api.GET("/leaderboard", resources.Leaderboard)
		api.GET("/balance/:wallet", resources.Balance)

		proxy, err := AdminProxy(cfg.BackendBaseURL, log)
		if err != nil {
			return nil, err
		}
		admin := api.Group("/admin")
		admin.Use(RequireAdmin())
		admin.Any("/*backendPath", proxy)
	}

	return router, nil
}
