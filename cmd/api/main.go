package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davec/filmscout/internal/api"
	"github.com/davec/filmscout/internal/api/middleware"
	"github.com/davec/filmscout/internal/config"
	"github.com/davec/filmscout/internal/logger"
	"github.com/davec/filmscout/internal/provider"
	"github.com/davec/filmscout/internal/provider/omdb"
	"github.com/davec/filmscout/internal/provider/tmdb"
	"github.com/davec/filmscout/internal/provider/youtube"
	"github.com/davec/filmscout/internal/repository"
	"github.com/davec/filmscout/internal/service"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}

	// Repositories
	movieRepo := repository.NewMovieRepository(db)
	vectorRepo := repository.NewVectorRepository(db, cfg.Vector.MaxEntries)

	// Services
	embeddingService := service.NewEmbeddingService(&service.EmbeddingConfig{
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	chatClient := service.NewChatClient(&service.ChatConfig{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	store := service.NewVectorStore(movieRepo, vectorRepo, embeddingService)

	// Providers
	omdbAdapter := omdb.New(&omdb.Config{
		APIKey:  cfg.Providers.OMDb.APIKey,
		BaseURL: cfg.Providers.OMDb.BaseURL,
	})
	youtubeAdapter := youtube.New(&youtube.Config{
		APIKey:  cfg.Providers.YouTube.APIKey,
		BaseURL: cfg.Providers.YouTube.BaseURL,
	})

	available := map[service.ToolName]bool{
		service.ToolMovieInfo:      true,
		service.ToolTrailerSearch:  true,
		service.ToolSemanticSearch: true,
		service.ToolRecommend:      true,
	}

	// TMDB is optional; without a key the planner degrades
	// movie_details calls to OMDb lookups.
	var tmdbAdapter *tmdb.Adapter
	if cfg.Providers.TMDB.APIKey != "" {
		tmdbAdapter = tmdb.New(&tmdb.Config{
			APIKey:  cfg.Providers.TMDB.APIKey,
			BaseURL: cfg.Providers.TMDB.BaseURL,
		})
		available[service.ToolMovieDetails] = true
	} else {
		appLogger.Warn("TMDB_API_KEY not set, detailed lookups fall back to OMDb")
	}

	planner := service.NewPlanner(chatClient, available)

	agent := service.NewAgent(planner, chatClient, store, omdbAdapter,
		movieSearcherOrNil(tmdbAdapter), youtubeAdapter,
		service.AgentOptions{
			HistoryLimit: cfg.Agent.HistoryLimit,
			DefaultTopK:  cfg.Agent.DefaultTopK,
		})

	router := api.SetupRouter(agent, store, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}

// movieSearcherOrNil avoids handing the agent a non-nil interface
// wrapping a nil adapter.
func movieSearcherOrNil(a *tmdb.Adapter) provider.MovieSearcher {
	if a == nil {
		return nil
	}
	return a
}
