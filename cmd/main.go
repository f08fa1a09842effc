package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/confabhq/confab-backend/internal/data/graph"
	"github.com/confabhq/confab-backend/internal/db"
	"github.com/confabhq/confab-backend/internal/handlers"
	"github.com/confabhq/confab-backend/internal/platform/envutil"
	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/platform/neo4jdb"
	"github.com/confabhq/confab-backend/internal/platform/openai"
	"github.com/confabhq/confab-backend/internal/platform/redisdb"
	"github.com/confabhq/confab-backend/internal/repos"
	"github.com/confabhq/confab-backend/internal/server"
	"github.com/confabhq/confab-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Neo4j (optional; recommendations degrade without it)
	neoClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed", "error", err)
	}
	if neoClient != nil {
		defer neoClient.Close(context.Background())
		graph.EnsureProfileSchema(context.Background(), neoClient, log)
	}

	// Redis (optional resolve cache)
	redisClient, err := redisdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Redis init failed", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Embeddings
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init embeddings client", "error", err)
		os.Exit(1)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	catalogRepo := repos.NewCatalogRepo(thePG, log)
	profileLinkRepo := repos.NewProfileLinkRepo(thePG, log)
	userEventRepo := repos.NewUserEventRepo(thePG, log)

	// Graph access
	profileWriter := graph.NewProfileWriter(neoClient, log)
	similarityReader := graph.NewSimilarityReader(neoClient, log)

	// Services
	log.Info("Setting up Services from main...")
	embedder, err := services.NewEmbeddingService(openaiClient, log, envutil.Int("EMBEDDING_DIM", 384))
	if err != nil {
		log.Error("Could not init EmbeddingService", "error", err)
		os.Exit(1)
	}
	canonicalizer, err := services.NewCanonicalizerService(catalogRepo, embedder, redisClient, log)
	if err != nil {
		log.Error("Could not init CanonicalizerService", "error", err)
		os.Exit(1)
	}
	peopleService, err := services.NewPeopleService(thePG, userRepo, profileLinkRepo, userEventRepo, canonicalizer, profileWriter, log)
	if err != nil {
		log.Error("Could not init PeopleService", "error", err)
		os.Exit(1)
	}
	recService, err := services.NewRecommendationService(similarityReader, services.LoadWeights(log), log)
	if err != nil {
		log.Error("Could not init RecommendationService", "error", err)
		os.Exit(1)
	}

	refresh := func(ctx context.Context) error {
		return graph.RefreshSimilarities(ctx, neoClient, log)
	}

	// Handlers
	userHandler := handlers.NewUserHandler(peopleService)
	recHandler := handlers.NewRecommendationHandler(recService)
	adminHandler := handlers.NewAdminHandler(refresh, log)

	// Background similarity refresh (0 disables)
	refreshMinutes := envutil.Int("SIMILARITY_REFRESH_MINUTES", 0)
	if refreshMinutes > 0 && neoClient != nil {
		go func() {
			ticker := time.NewTicker(time.Duration(refreshMinutes) * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				if err := refresh(context.Background()); err != nil {
					log.Warn("Scheduled similarity refresh failed", "error", err)
				}
			}
		}()
		log.Info("Scheduled similarity refresh", "interval_minutes", refreshMinutes)
	}

	// Router
	router := server.NewRouter(server.RouterConfig{
		UserHandler:           userHandler,
		RecommendationHandler: recHandler,
		AdminHandler:          adminHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
