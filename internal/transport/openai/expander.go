package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/WebRenew/unicon-search/internal/domain"
	"github.com/WebRenew/unicon-search/internal/metrics"
)

// expansionSystemPrompt instructs the chat model to turn a free-form
// query into a flat list of search terms.
const expansionSystemPrompt = `You are an icon search assistant. Given a user's query about icons they need, expand it into a comprehensive list of relevant icon names and concepts.

Rules:
- Output ONLY a space-separated list of lowercase words/terms
- Include the original query terms
- Add synonyms, related concepts, and specific icon names
- Think about what icons would visually represent the concept
- Keep it concise (max 20 terms)
- No punctuation, no explanations

Example:
User: "business icons"
Output: business briefcase chart graph money dollar finance office building presentation meeting handshake analytics growth profit`

// Expander expands search queries into related terms using an
// OpenAI-compatible chat completion API.
type Expander struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ExpanderConfig holds the query expansion provider settings.
type ExpanderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewExpander creates an OpenAI-compatible chat expansion provider.
func NewExpander(cfg *ExpanderConfig) *Expander {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Expander{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Expand asks the chat model for an expanded term list. All failures
// are wrapped with domain.ErrExpansionUnavailable so callers can fall
// back to the original query.
func (x *Expander) Expand(ctx context.Context, query string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: x.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: expansionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	}

	start := time.Now()

	resp, err := x.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.ExpansionRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("expansion request failed: %w", domain.ErrExpansionUnavailable)
	}

	if len(resp.Choices) == 0 {
		metrics.ExpansionRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("empty expansion response: %w", domain.ErrExpansionUnavailable)
	}

	expanded := strings.TrimSpace(resp.Choices[0].Message.Content)
	if expanded == "" {
		metrics.ExpansionRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("blank expansion response: %w", domain.ErrExpansionUnavailable)
	}

	metrics.ExpansionRequestsTotal.WithLabelValues("success").Inc()

	x.logger.Debug("expanded query",
		zap.String("query", query),
		zap.String("expanded", expanded),
		zap.Duration("duration", time.Since(start)),
	)

	return expanded, nil
}
