package routes

import (
	"github.com/gofiber/fiber/v2"

	"multihorizon/handlers"
	"multihorizon/middleware"
)

// SetupRoutes defines all the routes for the application.
func SetupRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	// --- Authentication Routes ---
	auth := api.Group("/auth")
	auth.Post("/register", h.HandleRegister)
	auth.Post("/login", h.HandleLogin)
	auth.Post("/logout", h.HandleLogout)

	// --- Forecast Session Routes ---
	forecast := api.Group("/forecast", middleware.SessionRequired(h.HasSession))
	forecast.Get("/session", h.HandleGetSession)
	forecast.Post("/refresh", h.HandleRefresh)
	forecast.Post("/save", h.HandleSave)

	// Regressors and identity
	forecast.Get("/regressors", h.HandleGetRegressors)
	forecast.Put("/horizon", h.HandleSetHorizon)
	forecast.Post("/toggles/:vector/:day", h.HandleToggle)
	forecast.Put("/item", h.HandleSetItem)

	// Downstream views
	forecast.Get("/insights", h.HandleGetInsights)
	forecast.Post("/uploads", h.HandleUploadHistory)
	forecast.Get("/predictions", h.HandleListPredictions)
}
