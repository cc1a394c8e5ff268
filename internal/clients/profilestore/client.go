// Package profilestore talks to the mastery-profile service. Writes are
// whole-tree upserts keyed by user id.
package profilestore

import (
	"context"
	"net/http"
	"time"

	"github.com/approva/simulado-backend/internal/clients/rest"
	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/envutil"
	"github.com/approva/simulado-backend/internal/platform/logger"
)

type Client interface {
	UpsertProfileForUser(ctx context.Context, bearer, userID string, profile *domain.MasteryProfile) error
}

type client struct {
	log  *logger.Logger
	rest *rest.Client
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	base, err := rest.New(log, "ProfileStoreClient", rest.Config{
		BaseURL:    envutil.String("API_PROFILES_BASE", "http://localhost:8083"),
		Timeout:    time.Duration(envutil.Int("API_PROFILES_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries: envutil.Int("API_PROFILES_MAX_RETRIES", 2),
	})
	if err != nil {
		return nil, err
	}
	return &client{log: log.With("client", "ProfileStoreClient"), rest: base}, nil
}

func (c *client) UpsertProfileForUser(ctx context.Context, bearer, userID string, profile *domain.MasteryProfile) error {
	return c.rest.DoJSON(ctx, http.MethodPut, "/profiles/by-user/"+userID, bearer, profile, nil)
}
