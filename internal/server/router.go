package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/app/handlers"
	"github.com/FACorreiaa/go-museumradar/internal/app/middleware"
	"github.com/FACorreiaa/go-museumradar/internal/app/session"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/config"
)

// RouterDeps are the collaborators the routes are built from.
type RouterDeps struct {
	Sessions    *session.Manager
	Enricher    handlers.Enricher
	Session     config.SessionConfig
	ServiceName string
	Logger      *zap.Logger
}

// SetupRouter configures and returns the Gin router with all middleware and routes
func SetupRouter(deps RouterDeps) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	// Create Gin router
	r := gin.New()

	// Setup middleware
	r.Use(middleware.OTELGinMiddleware(deps.ServiceName))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(gin.Recovery())
	r.Use(middleware.ObservabilityMiddleware())
	r.Use(middleware.SecurityMiddleware())
	r.Use(middleware.CORSMiddleware())

	base := handlers.NewBaseHandler(deps.Logger)
	discovery := handlers.NewDiscoveryHandlers(base, deps.Sessions, deps.Enricher)
	guide := handlers.NewGuideHandlers(base)
	withSession := middleware.SessionMiddleware(deps.Sessions,
		deps.Session.CookieName, deps.Session.TTL, deps.Session.SecureCookie)

	// Setup routes
	r.GET("/healthz", discovery.Health)

	api := r.Group("/api", withSession)
	{
		api.GET("/state", discovery.State)
		api.POST("/credentials", discovery.SelectCredential)
		api.POST("/search", discovery.Search)
		api.POST("/reset", discovery.Reset)
		api.PUT("/guide/radius", discovery.SetRadius)
		api.GET("/museums/:id", discovery.MuseumDetail)
		api.GET("/ask", guide.Ask)
	}

	r.GET("/ws/guide", withSession, guide.GuideSocket)

	return r
}
