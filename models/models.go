package models

import (
	"github.com/golang-jwt/jwt/v4"
)

// --- JWT & Auth ---

// JwtClaims mirrors the claims issued by the forecasting service's login endpoint.
// The subject carries the account email.
type JwtClaims struct {
	Fresh bool   `json:"fresh,omitempty"`
	Type  string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	StoreName string `json:"store_name"`
}

type RegisterResponse struct {
	Message string `json:"message"`
}

// UserInfo is the answer to GET /user.
type UserInfo struct {
	Username  string `json:"username"`
	StoreName string `json:"store_name"`
}
