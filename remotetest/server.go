// Package remotetest runs an in-process stand-in for the remote forecasting
// service so clients and host handlers can be exercised over real HTTP.
package remotetest

import (
	"bytes"
	"fmt"
	"math"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"multihorizon/middleware"
	"multihorizon/models"
)

// ForecastFunc computes the quantiles answered for a request.
type ForecastFunc func(req models.ForecastRequest) models.ForecastResult

type account struct {
	passwordHash []byte
	storeName    string
}

// Server is a fake forecasting service listening on a loopback port.
type Server struct {
	URL string

	app    *fiber.App
	secret []byte

	mu          sync.Mutex
	accounts    map[string]account
	uploads     map[string][]string
	predictions map[string][]models.SavedForecast
	calls       map[string]int
	forecasts   []models.ForecastRequest
	forecastFn  ForecastFunc
	delay       time.Duration
	hideStore   bool
	revoked     bool
}

// Start launches a server and stops it when the test ends.
func Start(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:      []byte("remotetest-secret"),
		accounts:    make(map[string]account),
		uploads:     make(map[string][]string),
		predictions: make(map[string][]models.SavedForecast),
		calls:       make(map[string]int),
		forecastFn:  BaselineForecast,
	}
	s.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	s.routes()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("remotetest: listen: %v", err)
	}
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.Shutdown() })

	s.URL = "http://" + ln.Addr().String()
	return s
}

func (s *Server) routes() {
	s.app.Use(func(c *fiber.Ctx) error {
		s.mu.Lock()
		s.calls[c.Path()]++
		s.mu.Unlock()
		return c.Next()
	})

	s.app.Post("/register", s.handleRegister)
	s.app.Post("/login", s.handleLogin)

	jwtRequired := middleware.JWTMiddleware(s.secret)
	s.app.Get("/user", s.checkRevoked, jwtRequired, s.handleUser)
	s.app.Post("/upload", s.checkRevoked, jwtRequired, s.handleUpload)
	s.app.Post("/forecast", s.checkRevoked, jwtRequired, s.handleForecast)
	s.app.Get("/predictions", s.checkRevoked, jwtRequired, s.handlePredictions)
}

func (s *Server) checkRevoked(c *fiber.Ctx) error {
	s.mu.Lock()
	revoked := s.revoked
	s.mu.Unlock()
	if revoked {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"msg": "Token has been revoked"})
	}
	return c.Next()
}

// AddAccount registers an account directly.
func (s *Server) AddAccount(email, password, storeName string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("remotetest: hash password: %v", err))
	}
	s.mu.Lock()
	s.accounts[email] = account{passwordHash: hash, storeName: storeName}
	s.mu.Unlock()
}

// AddUpload records a history upload for email, which /forecast requires.
func (s *Server) AddUpload(email string) {
	s.mu.Lock()
	s.uploads[email] = append(s.uploads[email], "seed.xlsx")
	s.mu.Unlock()
}

// IssueToken signs an access token for email that expires after ttl.
func (s *Server) IssueToken(email string, ttl time.Duration) string {
	now := time.Now()
	claims := models.JwtClaims{
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("remotetest: sign token: %v", err))
	}
	return token
}

// RevokeTokens makes every authenticated route answer 401, as the service does
// once it no longer honours an unexpired token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.revoked = true
	s.mu.Unlock()
}

// SetForecastFunc replaces the quantile generator.
func (s *Server) SetForecastFunc(fn ForecastFunc) {
	s.mu.Lock()
	s.forecastFn = fn
	s.mu.Unlock()
}

// SetDelay makes /forecast wait before answering.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// HideStoreName makes /user omit store_name.
func (s *Server) HideStoreName(hide bool) {
	s.mu.Lock()
	s.hideStore = hide
	s.mu.Unlock()
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// ForecastRequests returns every decoded /forecast body in arrival order.
func (s *Server) ForecastRequests() []models.ForecastRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ForecastRequest(nil), s.forecasts...)
}

// Saved returns the predictions stored for email.
func (s *Server) Saved(email string) []models.SavedForecast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SavedForecast(nil), s.predictions[email]...)
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}
	if req.StoreName == "" {
		req.StoreName = "Unknown Store"
	}
	s.mu.Lock()
	_, exists := s.accounts[req.Email]
	s.mu.Unlock()
	if exists {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User already exists"})
	}
	s.AddAccount(req.Email, req.Password, req.StoreName)
	return c.JSON(fiber.Map{"message": "User registered successfully"})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}
	s.mu.Lock()
	acc, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	return c.JSON(fiber.Map{"access_token": s.IssueToken(req.Email, 6*time.Hour)})
}

func (s *Server) handleUser(c *fiber.Ctx) error {
	email, _ := c.Locals("userEmail").(string)
	s.mu.Lock()
	acc, ok := s.accounts[email]
	hide := s.hideStore
	s.mu.Unlock()
	if hide {
		return c.JSON(fiber.Map{"username": email})
	}
	store := "Unknown Store"
	if ok {
		store = acc.storeName
	}
	return c.JSON(fiber.Map{"username": email, "store_name": store})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	email, _ := c.Locals("userEmail").(string)
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file part"})
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid file format. Only .xlsx files are allowed"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload file"})
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload file"})
	}

	name := fmt.Sprintf("upload_%s_%d.xlsx", strings.NewReplacer("@", "_", ".", "_").Replace(email), time.Now().UnixNano())
	s.mu.Lock()
	s.uploads[email] = append(s.uploads[email], name)
	s.mu.Unlock()

	return c.JSON(fiber.Map{
		"message":   "File uploaded successfully",
		"filename":  name,
		"row_count": bytes.Count(buf.Bytes(), []byte("\n")),
	})
}

func (s *Server) handleForecast(c *fiber.Ctx) error {
	email, _ := c.Locals("userEmail").(string)
	var req models.ForecastRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	s.mu.Lock()
	s.forecasts = append(s.forecasts, req)
	delay := s.delay
	fn := s.forecastFn
	files := len(s.uploads[email])
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if files == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No uploaded files found for this user"})
	}
	if req.HorizonDays <= 0 {
		req.HorizonDays = 7
	}
	if req.HorizonDays > 30 {
		req.HorizonDays = 30
	}

	result := fn(req)
	mean := 0.0
	for _, v := range result.P50 {
		mean += v
	}
	if len(result.P50) > 0 {
		mean /= float64(len(result.P50))
	}
	suggestions := []models.Suggestion{{
		Type:       "stock_adjustment",
		Message:    fmt.Sprintf("Prepare stock for ~%d units/day of %s at %s.", int(math.Round(mean)), req.ItemName, req.StoreName),
		Confidence: 0.9,
	}}

	s.mu.Lock()
	s.predictions[email] = append(s.predictions[email], models.SavedForecast{
		ItemName:    req.ItemName,
		StoreName:   req.StoreName,
		Forecast:    models.ForecastResult{P10: result.P10, P50: result.P50, P90: result.P90},
		Suggestions: suggestions,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
	s.mu.Unlock()

	return c.JSON(fiber.Map{
		"forecast":    fiber.Map{"p10": result.P10, "p50": result.P50, "p90": result.P90},
		"suggestions": suggestions,
		"store_name":  req.StoreName,
		"item_name":   req.ItemName,
	})
}

func (s *Server) handlePredictions(c *fiber.Ctx) error {
	email, _ := c.Locals("userEmail").(string)
	saved := s.Saved(email)
	if saved == nil {
		saved = []models.SavedForecast{}
	}
	return c.JSON(fiber.Map{"predictions": saved})
}

// BaselineForecast is a deterministic generator: a flat baseline raised by
// promotions and lowered by holidays, with a ±20% band.
func BaselineForecast(req models.ForecastRequest) models.ForecastResult {
	out := models.ForecastResult{
		P10: make([]float64, req.HorizonDays),
		P50: make([]float64, req.HorizonDays),
		P90: make([]float64, req.HorizonDays),
	}
	for i := 0; i < req.HorizonDays; i++ {
		p50 := 100.0 + float64(i)
		if i < len(req.OnPromotion) && req.OnPromotion[i] == 1 {
			p50 += 25
		}
		if i < len(req.IsHoliday) && req.IsHoliday[i] == 1 {
			p50 -= 15
		}
		out.P10[i] = p50 * 0.8
		out.P50[i] = p50
		out.P90[i] = p50 * 1.2
	}
	return out
}
