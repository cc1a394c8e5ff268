// Package questionbank talks to the question-bank service, the system of
// record for QuestionItems.
package questionbank

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
	CreateItems(ctx context.Context, bearer string, items []domain.QuestionItem) ([]domain.QuestionItem, error)
	ListByRun(ctx context.Context, bearer, runID string) ([]domain.QuestionItem, error)
	ListByUser(ctx context.Context, bearer, userID string) ([]domain.QuestionItem, error)
	UpdateItem(ctx context.Context, bearer, itemID string, patch domain.AnsweredItemPatch) error
	BulkUpdate(ctx context.Context, bearer string, patches []domain.AnsweredItemPatch) error
	DeleteItem(ctx context.Context, bearer, itemID string) error
}

type client struct {
	log  *logger.Logger
	rest *rest.Client
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	base, err := rest.New(log, "QuestionBankClient", rest.Config{
		BaseURL:    envutil.String("API_QUESTIONS_BASE", "http://localhost:8082"),
		Timeout:    time.Duration(envutil.Int("API_QUESTIONS_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries: envutil.Int("API_QUESTIONS_MAX_RETRIES", 2),
	})
	if err != nil {
		return nil, err
	}
	return &client{log: log.With("client", "QuestionBankClient"), rest: base}, nil
}

func (c *client) CreateItems(ctx context.Context, bearer string, items []domain.QuestionItem) ([]domain.QuestionItem, error) {
	if len(items) == 0 {
		return []domain.QuestionItem{}, nil
	}
	var out []domain.QuestionItem
	if err := c.rest.DoJSON(ctx, http.MethodPost, "/questions", bearer, items, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) ListByRun(ctx context.Context, bearer, runID string) ([]domain.QuestionItem, error) {
	var out []domain.QuestionItem
	if err := c.rest.DoJSON(ctx, http.MethodGet, "/questions/by-run/"+runID, bearer, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) ListByUser(ctx context.Context, bearer, userID string) ([]domain.QuestionItem, error) {
	var out []domain.QuestionItem
	if err := c.rest.DoJSON(ctx, http.MethodGet, "/questions/by-user/"+userID, bearer, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) UpdateItem(ctx context.Context, bearer, itemID string, patch domain.AnsweredItemPatch) error {
	return c.rest.DoJSON(ctx, http.MethodPut, "/questions/"+itemID, bearer, patch, nil)
}

func (c *client) BulkUpdate(ctx context.Context, bearer string, patches []domain.AnsweredItemPatch) error {
	if len(patches) == 0 {
		return nil
	}
	payload := map[string]any{"questions": patches}
	return c.rest.DoJSON(ctx, http.MethodPut, "/questions/bulk-update", bearer, payload, nil)
}

func (c *client) DeleteItem(ctx context.Context, bearer, itemID string) error {
	return c.rest.DoJSON(ctx, http.MethodDelete, "/questions/"+itemID, bearer, nil, nil)
}
