package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"multihorizon/auth"
	"multihorizon/models"
)

// HandleRegister creates an account on the forecasting service.
// POST /api/v1/auth/register
func (h *Handler) HandleRegister(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request: %v", err)
		return badRequest(c, "Cannot parse JSON")
	}
	if req.Email == "" || req.Password == "" || req.StoreName == "" {
		return badRequest(c, "Missing required fields (email, password, store_name)")
	}

	msg, err := h.api.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "message": msg})
}

// HandleLogin exchanges credentials for a token, stores it and opens a session.
// POST /api/v1/auth/login
func (h *Handler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	token, err := h.api.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.tokens.Set(auth.TokenKey, token); err != nil {
		log.Printf("Error storing access token for %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Could not store access token"})
	}

	ctrl, err := h.openSession(auth.NewContext(token))
	if err != nil {
		log.Printf("Error opening forecast session for %s: %v", req.Email, err)
		return respondError(c, err)
	}
	// Identity failures land on the snapshot; the login itself succeeded.
	_ = ctrl.ResolveIdentity(c.UserContext())

	return c.JSON(fiber.Map{"status": "success", "data": ctrl.Snapshot()})
}

// HandleLogout closes the session and forgets the stored token.
// POST /api/v1/auth/logout
func (h *Handler) HandleLogout(c *fiber.Ctx) error {
	h.Close()
	if err := h.tokens.Delete(auth.TokenKey); err != nil {
		log.Printf("Error deleting access token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Could not clear access token"})
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Logged out"})
}
