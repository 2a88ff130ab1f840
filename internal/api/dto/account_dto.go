package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
}

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the issued token.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   AccountResponse `json:"account"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdateAccountRequest carries optional admin edits.
type UpdateAccountRequest struct {
	Role       *domain.AccountRole   `json:"role,omitempty"`
	Department *string               `json:"department,omitempty"`
	Phone      *string               `json:"phone,omitempty"`
	Status     *domain.AccountStatus `json:"status,omitempty"`
}

// AccountResponse hides the password hash.
type AccountResponse struct {
	ID          string               `json:"id"`
	Username    string               `json:"username"`
	Role        domain.AccountRole   `json:"role"`
	Department  string               `json:"department"`
	Phone       string               `json:"phone"`
	Status      domain.AccountStatus `json:"status"`
	SolvedCount int                  `json:"solved_count"`
	AvgRating   float64              `json:"avg_rating"`
	CreatedAt   time.Time            `json:"created_at"`
}
