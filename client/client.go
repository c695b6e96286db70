// Package client talks to the remote forecasting service.
package client

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"multihorizon/models"
)

// DefaultTimeout bounds a single exchange with the forecasting service.
const DefaultTimeout = 30 * time.Second

// Client is a stateless wrapper around the forecasting service endpoints.
// It never retries; every method performs at most one network exchange.
type Client struct {
	baseURL  string
	timeout  time.Duration
	savePath string
	logger   *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request bound after which a Transport error is returned.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSavePath sets the endpoint that persists a forecast.
func WithSavePath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.savePath = path
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  DefaultTimeout,
		savePath: "/forecast",
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id that is sent as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or a fresh one.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// exchange performs one request and classifies the outcome. On success the raw body is returned.
func (c *Client) exchange(ctx context.Context, a *fiber.Agent, method, path, token string) ([]byte, error) {
	requestID := RequestIDFromContext(ctx)

	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return nil, models.WrapError(models.KindTransport, "request cancelled before it was sent", err)
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			fiber.ReleaseAgent(a)
			return nil, models.NewError(models.KindTransport, "request deadline exceeded before it was sent")
		}
		if remaining < timeout {
			timeout = remaining
		}
	}

	a.Timeout(timeout)
	a.Set("X-Request-ID", requestID)
	if token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	start := time.Now()
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		c.logger.Printf("[FORECAST API] %s %s id=%s failed after %s: %v", method, path, requestID, time.Since(start), errs[0])
		return nil, models.WrapError(models.KindTransport, "Failed to reach the forecasting service.", errs[0])
	}
	c.logger.Printf("[FORECAST API] %s %s id=%s status=%d in %s", method, path, requestID, code, time.Since(start))

	if code >= 200 && code < 300 {
		return body, nil
	}
	return nil, classifyStatus(code, body)
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// RequestForecast asks the service for a forecast and validates the answer against req.HorizonDays.
func (c *Client) RequestForecast(ctx context.Context, req models.ForecastRequest, token string) (*models.ForecastResult, error) {
	a := fiber.Post(c.url("/forecast")).JSON(req)
	body, err := c.exchange(ctx, a, fiber.MethodPost, "/forecast", token)
	if err != nil {
		return nil, err
	}
	return decodeForecast(body, req.HorizonDays)
}

// SaveForecast re-sends req to the persistence endpoint.
func (c *Client) SaveForecast(ctx context.Context, req models.ForecastRequest, token string) error {
	a := fiber.Post(c.url(c.savePath)).JSON(req)
	_, err := c.exchange(ctx, a, fiber.MethodPost, c.savePath, token)
	return err
}

// FetchUser resolves the store the token belongs to.
func (c *Client) FetchUser(ctx context.Context, token string) (*models.UserInfo, error) {
	a := fiber.Get(c.url("/user"))
	body, err := c.exchange(ctx, a, fiber.MethodGet, "/user", token)
	if err != nil {
		return nil, err
	}
	return decodeUser(body)
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	a := fiber.Post(c.url("/login")).JSON(models.LoginRequest{Email: email, Password: password})
	body, err := c.exchange(ctx, a, fiber.MethodPost, "/login", "")
	if err != nil {
		return "", err
	}
	return decodeLogin(body)
}

// Register creates an account bound to storeName.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	a := fiber.Post(c.url("/register")).JSON(req)
	body, err := c.exchange(ctx, a, fiber.MethodPost, "/register", "")
	if err != nil {
		return "", err
	}
	return decodeMessage(body)
}

// UploadHistory sends a sales history workbook. Only .xlsx files are accepted.
func (c *Client) UploadHistory(ctx context.Context, filename string, content []byte, token string) (*models.UploadReceipt, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return nil, models.NewError(models.KindValidationRejected, "Invalid file format. Only .xlsx files are allowed")
	}
	if len(content) == 0 {
		return nil, models.NewError(models.KindValidationRejected, "No selected file")
	}
	ff := &fiber.FormFile{Fieldname: "file", Name: filename, Content: content}
	a := fiber.Post(c.url("/upload")).FileData(ff).MultipartForm(nil)
	body, err := c.exchange(ctx, a, fiber.MethodPost, "/upload", token)
	if err != nil {
		return nil, err
	}
	return decodeUpload(body)
}

// ListPredictions returns every forecast the service has saved for the account.
func (c *Client) ListPredictions(ctx context.Context, token string) ([]models.SavedForecast, error) {
	a := fiber.Get(c.url("/predictions"))
	body, err := c.exchange(ctx, a, fiber.MethodGet, "/predictions", token)
	if err != nil {
		return nil, err
	}
	return decodePredictions(body)
}
