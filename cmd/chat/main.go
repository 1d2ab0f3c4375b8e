package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/davec/filmscout/internal/config"
	"github.com/davec/filmscout/internal/logger"
	"github.com/davec/filmscout/internal/provider"
	"github.com/davec/filmscout/internal/provider/omdb"
	"github.com/davec/filmscout/internal/provider/tmdb"
	"github.com/davec/filmscout/internal/provider/youtube"
	"github.com/davec/filmscout/internal/repository"
	"github.com/davec/filmscout/internal/service"
)

const banner = `filmscout - movie research assistant
Ask about any movie, or use a command:
  /save <path>   save the conversation
  /load <path>   restore a saved conversation
  /clear         forget the conversation
  /quit          exit`

func main() {
	var (
		configPath  = flag.String("config", "", "Path to config file")
		sessionPath = flag.String("session", "", "Session file to restore on startup")
	)
	flag.Parse()

	if *configPath == "" {
		*configPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}

	movieRepo := repository.NewMovieRepository(db)
	vectorRepo := repository.NewVectorRepository(db, cfg.Vector.MaxEntries)

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

	var tmdbSearcher provider.MovieSearcher
	if cfg.Providers.TMDB.APIKey != "" {
		tmdbSearcher = tmdb.New(&tmdb.Config{
			APIKey:  cfg.Providers.TMDB.APIKey,
			BaseURL: cfg.Providers.TMDB.BaseURL,
		})
		available[service.ToolMovieDetails] = true
	}

	planner := service.NewPlanner(chatClient, available)
	agent := service.NewAgent(planner, chatClient, store, omdbAdapter, tmdbSearcher, youtubeAdapter,
		service.AgentOptions{
			HistoryLimit: cfg.Agent.HistoryLimit,
			DefaultTopK:  cfg.Agent.DefaultTopK,
		})

	session := service.NewSession()
	if *sessionPath != "" {
		if err := session.LoadFile(*sessionPath); err != nil {
			appLogger.Warnf("Could not restore session: %v", err)
		} else {
			fmt.Printf("Restored %d turns from %s\n", session.Len(), *sessionPath)
		}
	}

	fmt.Println(banner)
	repl(agent, session)
}

// repl reads one query at a time; the next prompt appears only after
// the current turn completes, so a single turn is in flight.
func repl(agent *service.Agent, session *service.Session) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(line, session); quit {
				return
			}
			continue
		}

		answer, err := agent.ProcessQuery(ctx, session, line)
		if err != nil {
			fmt.Printf("Sorry, that didn't work: %v\n", err)
			continue
		}

		fmt.Println(answer.Text)
		if answer.Media.PosterURL != "" {
			fmt.Printf("Poster:  %s\n", answer.Media.PosterURL)
		}
		if answer.Media.TrailerURL != "" {
			fmt.Printf("Trailer: %s\n", answer.Media.TrailerURL)
		}
		for _, e := range answer.Errors {
			fmt.Printf("(note: %s)\n", e)
		}
	}
}

func runCommand(line string, session *service.Session) (quit bool) {
	parts := strings.SplitN(line, " ", 2)
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true
	case "/clear":
		session.Clear()
		fmt.Println("Conversation cleared.")
	case "/save":
		if arg == "" {
			fmt.Println("Usage: /save <path>")
			return false
		}
		if err := session.SaveFile(arg); err != nil {
			fmt.Printf("Save failed: %v\n", err)
			return false
		}
		fmt.Printf("Saved %d turns to %s\n", session.Len(), arg)
	case "/load":
		if arg == "" {
			fmt.Println("Usage: /load <path>")
			return false
		}
		if err := session.LoadFile(arg); err != nil {
			fmt.Printf("Load failed: %v\n", err)
			return false
		}
		fmt.Printf("Restored %d turns from %s\n", session.Len(), arg)
	default:
		fmt.Println("Unknown command. Try /save, /load, /clear or /quit.")
	}
	return false
}
