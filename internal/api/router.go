package api

import (
	"github.com/gin-gonic/gin"

	"github.com/davec/filmscout/internal/api/handler"
	"github.com/davec/filmscout/internal/api/middleware"
	"github.com/davec/filmscout/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	agent *service.Agent,
	store *service.VectorStore,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()
	queryHandler := handler.NewQueryHandler(agent)
	searchHandler := handler.NewSearchHandler(store)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Conversational agent
		v1.POST("/query", queryHandler.Query)
		v1.GET("/sessions/:id", queryHandler.History)
		v1.DELETE("/sessions/:id", queryHandler.ClearSession)

		// Direct index access
		v1.GET("/search", searchHandler.Search)
		v1.GET("/recommend", searchHandler.Recommend)

		// Stats
		v1.GET("/stats", searchHandler.Stats)
	}

	return r
}
