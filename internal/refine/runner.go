// Package refine runs multi-round refinement: each round asks the model chosen
// by the round selector to answer or improve the previous answer.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"modelkombat/config/validation"
	"modelkombat/internal/apperrors"
	"modelkombat/internal/observability"
	"modelkombat/internal/ratings"
	"modelkombat/internal/rounds"
)

const systemPrompt = "You are one contestant in a multi-model refinement exercise. Answer clearly and completely."

// Completer is the subset of the go-openai client the runner needs
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Request describes one refinement run
type Request struct {
	ProjectID       string
	Prompt          string
	Rounds          int
	EnabledModelIDs []string
}

// Result holds the stored response of every round, in round order
type Result struct {
	ProjectID string
	Responses []ratings.Response
}

// Final returns the last round's content
func (r Result) Final() string {
	if len(r.Responses) == 0 {
		return ""
	}
	return r.Responses[len(r.Responses)-1].Content
}

// Runner executes refinement rounds and stores every response unrated
type Runner struct {
	completer Completer
	store     *ratings.Store
	validator *validation.Validator
	logger    *zap.Logger
	metrics   *observability.Metrics
	maxTokens int
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics records completions on m
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithMaxTokens caps each completion, 0 leaves it to the service
func WithMaxTokens(n int) Option {
	return func(r *Runner) { r.maxTokens = n }
}

// NewClient builds a go-openai client for an OpenAI-compatible baseURL
func NewClient(baseURL, credential string) *openai.Client {
	cfg := openai.DefaultConfig(credential)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// NewRunner creates a Runner
func NewRunner(completer Completer, store *ratings.Store, opts ...Option) *Runner {
	r := &Runner{
		completer: completer,
		store:     store,
		validator: validation.NewValidator(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes req.Rounds rounds. Round i uses the i-th model in round-robin
// order over req.EnabledModelIDs. Responses stored before a failure are kept.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, apperrors.Validation("prompt cannot be empty")
	}
	if err := r.validator.ValidateRounds(req.Rounds); err != nil {
		return Result{}, err
	}
	if req.ProjectID == "" {
		req.ProjectID = uuid.NewString()
	}

	result := Result{ProjectID: req.ProjectID}
	previous := ""
	for round, model := range rounds.Plan(req.EnabledModelIDs, req.Rounds) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		content, err := r.complete(ctx, model, messages(req.Prompt, previous, round))
		if err != nil {
			return result, fmt.Errorf("round %d (%s): %w", round+1, model, err)
		}

		resp, err := r.store.Add(ctx, ratings.Response{
			ProjectID: req.ProjectID,
			ModelID:   model,
			Round:     round,
			Content:   content,
		})
		if err != nil {
			return result, fmt.Errorf("round %d: %w", round+1, err)
		}
		result.Responses = append(result.Responses, resp)
		r.metrics.RecordModelSelection("refiner", model)
		r.logger.Info("round complete", zap.String("project", req.ProjectID), zap.Int("round", round), zap.String("model", model))

		previous = content
	}
	return result, nil
}

func (r *Runner) complete(ctx context.Context, model string, msgs []openai.ChatCompletionMessage) (string, error) {
	resp, err := r.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  msgs,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		r.metrics.RecordCompletion(model, false, 0, 0)
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403) {
			return "", fmt.Errorf("%w: %v", apperrors.ErrCredentialInvalid, err)
		}
		return "", fmt.Errorf("%w: %v", apperrors.ErrNetworkFailure, err)
	}
	if len(resp.Choices) == 0 {
		r.metrics.RecordCompletion(model, false, 0, 0)
		return "", fmt.Errorf("%w: completion returned no choices", apperrors.ErrNetworkFailure)
	}

	r.metrics.RecordCompletion(model, true, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// messages builds the conversation for a round. Round 0 answers the prompt,
// later rounds improve the previous answer.
func messages(prompt, previous string, round int) []openai.ChatCompletionMessage {
	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: systemPrompt}}
	if round == 0 || previous == "" {
		return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	}
	return append(msgs,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: previous},
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: "Improve the answer above. Reply with the improved answer only.",
		},
	)
}
