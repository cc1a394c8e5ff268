// Package usersvc talks to the identity/wallet service. Only the wins balance
// is ever written from here, always as a partial-field update.
package usersvc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/approva/simulado-backend/internal/clients/rest"
	"github.com/approva/simulado-backend/internal/platform/envutil"
	"github.com/approva/simulado-backend/internal/platform/logger"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Wins  *int64 `json:"wins"`
}

type Client interface {
	Me(ctx context.Context, bearer string) (*User, error)
	GetByID(ctx context.Context, bearer, userID string) (*User, error)
	AdjustWins(ctx context.Context, bearer, userID string, delta int64) (*User, error)
}

type client struct {
	log  *logger.Logger
	rest *rest.Client
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	base, err := rest.New(log, "UserServiceClient", rest.Config{
		BaseURL:    envutil.String("API_USERS_BASE", "http://localhost:8081"),
		Timeout:    time.Duration(envutil.Int("API_USERS_TIMEOUT_SECONDS", 15)) * time.Second,
		MaxRetries: envutil.Int("API_USERS_MAX_RETRIES", 2),
	})
	if err != nil {
		return nil, err
	}
	return &client{log: log.With("client", "UserServiceClient"), rest: base}, nil
}

func (c *client) Me(ctx context.Context, bearer string) (*User, error) {
	var out User
	if err := c.rest.DoJSON(ctx, http.MethodGet, "/users/me", bearer, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("user service returned empty identity")
	}
	return &out, nil
}

func (c *client) GetByID(ctx context.Context, bearer, userID string) (*User, error) {
	var out User
	if err := c.rest.DoJSON(ctx, http.MethodGet, "/users/"+userID, bearer, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdjustWins reads the current balance and writes back balance+delta. The PUT
// body carries only the wins field so other profile fields stay untouched.
func (c *client) AdjustWins(ctx context.Context, bearer, userID string, delta int64) (*User, error) {
	current, err := c.GetByID(ctx, bearer, userID)
	if err != nil {
		return nil, err
	}
	var balance int64
	if current != nil && current.Wins != nil {
		balance = *current.Wins
	}
	next := balance + delta

	patch := map[string]any{"wins": next}
	var out User
	if err := c.rest.DoJSON(ctx, http.MethodPut, "/users/"+userID, bearer, patch, &out); err != nil {
		return nil, err
	}
	c.log.Debug("wins adjusted", "user_id", userID, "delta", delta, "balance", next)
	return &out, nil
}
