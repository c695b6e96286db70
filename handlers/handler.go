package handlers

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"multihorizon/auth"
	"multihorizon/client"
	"multihorizon/config"
	"multihorizon/insights"
	"multihorizon/models"
	"multihorizon/regressors"
	"multihorizon/session"
)

// Handler serves the host API. It holds at most one open forecast session.
type Handler struct {
	api      *client.Client
	tokens   auth.TokenStore
	cfg      config.Config
	insights *insights.Builder
	logger   *log.Logger

	mu      sync.Mutex
	current *session.Controller
}

// Option configures a Handler.
type Option func(*Handler)

// WithInsights sets the builder handed to every session.
func WithInsights(b *insights.Builder) Option {
	return func(h *Handler) { h.insights = b }
}

// WithLogger sets the logger shared with sessions.
func WithLogger(l *log.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Handler.
func New(api *client.Client, tokens auth.TokenStore, cfg config.Config, opts ...Option) *Handler {
	h := &Handler{
		api:    api,
		tokens: tokens,
		cfg:    cfg,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HasSession reports whether a session is open.
func (h *Handler) HasSession() bool {
	return h.session() != nil
}

// Restore reopens a session from a stored token that has not expired.
func (h *Handler) Restore(ctx context.Context) error {
	authCtx, err := auth.LoadContext(h.tokens)
	if err != nil {
		return err
	}
	if err := authCtx.Check(time.Now()); err != nil {
		h.logger.Printf("[SESSION] no usable stored token: %v", err)
		return nil
	}
	ctrl, err := h.openSession(authCtx)
	if err != nil {
		return err
	}
	if err := ctrl.ResolveIdentity(ctx); err != nil {
		h.logger.Printf("[SESSION] restored session could not resolve identity: %v", err)
	}
	return nil
}

// Close ends the open session, if any.
func (h *Handler) Close() {
	h.mu.Lock()
	ctrl := h.current
	h.current = nil
	h.mu.Unlock()
	if ctrl != nil {
		ctrl.Close()
	}
}

func (h *Handler) session() *session.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// openSession replaces the current session with a fresh one for authCtx.
func (h *Handler) openSession(authCtx auth.Context) (*session.Controller, error) {
	store, err := regressors.NewStore(h.cfg.RegressorCapacity,
		regressors.WithHorizons(h.cfg.Horizons...),
		regressors.WithInitialHorizon(h.cfg.DefaultHorizon))
	if err != nil {
		return nil, err
	}
	ctrl := session.New(h.api, store, authCtx,
		session.WithIdentity(models.Identity{ItemName: h.cfg.DefaultItem}),
		session.WithInsights(h.insights),
		session.WithLogger(h.logger),
		session.OnUnauthorized(func(info models.ErrorInfo) { h.forgetToken(info.Message) }),
	)

	h.mu.Lock()
	previous := h.current
	h.current = ctrl
	h.mu.Unlock()
	if previous != nil {
		previous.Close()
	}
	h.logger.Printf("[SESSION] opened for %q", authCtx.Subject())
	return ctrl, nil
}

func (h *Handler) forgetToken(reason string) {
	if err := h.tokens.Delete(auth.TokenKey); err != nil {
		h.logger.Printf("[SESSION] could not delete stored token: %v", err)
		return
	}
	h.logger.Printf("[SESSION] stored token cleared: %s", reason)
}

func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindUnauthorized:
		return fiber.StatusUnauthorized
	case models.KindValidationRejected:
		return fiber.StatusUnprocessableEntity
	case models.KindIndexOutOfRange, models.KindInvalidHorizon:
		return fiber.StatusBadRequest
	case models.KindNoDataAvailable, models.KindIdentityUnresolved:
		return fiber.StatusConflict
	case models.KindTransport:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err in the host error shape.
func respondError(c *fiber.Ctx, err error) error {
	info := models.InfoFromError(err)
	return c.Status(statusForKind(info.Kind)).JSON(fiber.Map{
		"status":  "error",
		"kind":    info.Kind,
		"message": info.Message,
		"reauth":  info.Kind == models.KindUnauthorized,
	})
}

// sessionError is respondError for calls made with the session token; an
// Unauthorized answer also clears the stored token.
func (h *Handler) sessionError(c *fiber.Ctx, err error) error {
	if models.KindOf(err) == models.KindUnauthorized {
		h.forgetToken(err.Error())
	}
	return respondError(c, err)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": message})
}
