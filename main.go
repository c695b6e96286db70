package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"multihorizon/ai"
	"multihorizon/auth"
	"multihorizon/client"
	"multihorizon/config"
	"multihorizon/database"
	"multihorizon/handlers"
	"multihorizon/insights"
	"multihorizon/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	ctx := context.Background()

	api := client.New(cfg.APIBaseURL,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithSavePath(cfg.SavePath))

	var tokens auth.TokenStore = auth.NewMemoryTokenStore()
	if cfg.TokenFile != "" {
		tokens = auth.NewFileTokenStore(cfg.TokenFile)
	}

	// Insights need a history source; without a database the endpoint answers NoDataAvailable.
	var history insights.HistoryProvider
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer database.Close()
		history = database.NewSalesHistory(pool, cfg.HistoryDays)
	} else {
		log.Println("DATABASE_URL is not set, insights handoff is disabled")
	}

	builderOpts := []insights.Option{}
	if cfg.GeminiAPIKey != "" {
		narrator, err := ai.NewGeminiNarrator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Printf("Gemini narrator disabled: %v", err)
		} else {
			defer narrator.Close()
			builderOpts = append(builderOpts, insights.WithNarrator(narrator))
		}
	}

	h := handlers.New(api, tokens, cfg, handlers.WithInsights(insights.NewBuilder(history, builderOpts...)))
	defer h.Close()
	if err := h.Restore(ctx); err != nil {
		log.Printf("Could not restore previous session: %v", err)
	}

	app := fiber.New()

	app.Use(recover.New())

	// Add CORS middleware
	app.Use(cors.New())

	// Setup routes
	routes.SetupRoutes(app, h)

	// Start server
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
