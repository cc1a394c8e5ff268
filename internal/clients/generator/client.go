// Package generator talks to the AI content-generation service. Its payloads
// arrive as loosely typed question maps that assembly normalizes into
// QuestionItems.
package generator

import (
	"context"
	"net/http"
	"time"

	"github.com/approva/simulado-backend/internal/clients/rest"
	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/envutil"
	"github.com/approva/simulado-backend/internal/platform/logger"
)

// GeneratedQuestion mirrors the generator's wire shape for one question.
type GeneratedQuestion struct {
	Topic              string            `json:"topic"`
	Subskill           string            `json:"subskill"`
	Structure          string            `json:"structure"`
	Difficulty         string            `json:"difficulty"`
	Question           string            `json:"question"`
	Options            map[string]string `json:"options"`
	CorrectOption      string            `json:"correct_option"`
	SolutionEnglish    []string          `json:"solution_english"`
	SolutionPortuguese []string          `json:"solution_portugues"`
	HintEnglish        string            `json:"hint_english"`
	HintPortuguese     string            `json:"hint_portugues"`
	Figure             map[string]any    `json:"figure"`
	TargetMistakes     []string          `json:"target_mistakes"`
	Format             string            `json:"format"`
	Representation     string            `json:"representation"`
	Source             string            `json:"source"`
}

type GenerateResult struct {
	Questions []GeneratedQuestion `json:"questions"`
}

type Client interface {
	GenerateAdaptiveModule(ctx context.Context, userID string) (*GenerateResult, error)
	GenerateFixedExam(ctx context.Context, userID string) (*GenerateResult, error)
	GenerateCustomExam(ctx context.Context, planItems []domain.PlanItem) (*GenerateResult, error)
}

type client struct {
	log  *logger.Logger
	rest *rest.Client

	adaptivePath string
	fixedPath    string
	customPath   string
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	base, err := rest.New(log, "GeneratorClient", rest.Config{
		BaseURL: envutil.String("API_GENERATOR_BASE", "http://localhost:8085"),
		// Generation is slow; the caller-supplied timeout is the only bound.
		Timeout:    time.Duration(envutil.Int("API_GENERATOR_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxRetries: envutil.Int("API_GENERATOR_MAX_RETRIES", 1),
	})
	if err != nil {
		return nil, err
	}
	return &client{
		log:          log.With("client", "GeneratorClient"),
		rest:         base,
		adaptivePath: envutil.String("API_GENERATOR_ADAPTIVE_PATH", "/generateModule"),
		fixedPath:    envutil.String("API_GENERATOR_FIXED_PATH", "/generateFullExam"),
		customPath:   envutil.String("API_GENERATOR_CUSTOM_PATH", "/v1/custom_exam"),
	}, nil
}

func (c *client) GenerateAdaptiveModule(ctx context.Context, userID string) (*GenerateResult, error) {
	payload := map[string]string{"user_id": userID}
	var out GenerateResult
	if err := c.rest.DoJSON(ctx, http.MethodPost, c.adaptivePath, "", payload, &out); err != nil {
		return nil, err
	}
	c.log.Debug("adaptive module generated", "user_id", userID, "questions", len(out.Questions))
	return &out, nil
}

func (c *client) GenerateFixedExam(ctx context.Context, userID string) (*GenerateResult, error) {
	payload := map[string]string{"user_id": userID}
	var out GenerateResult
	if err := c.rest.DoJSON(ctx, http.MethodPost, c.fixedPath, "", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) GenerateCustomExam(ctx context.Context, planItems []domain.PlanItem) (*GenerateResult, error) {
	var out GenerateResult
	if err := c.rest.DoJSON(ctx, http.MethodPost, c.customPath, "", planItems, &out); err != nil {
		return nil, err
	}
	c.log.Debug("custom exam generated", "plan_items", len(planItems), "questions", len(out.Questions))
	return &out, nil
}
