package provider

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/errors"
	"github.com/scriptorlabs/corrigo/pkg/logging"
)

const defaultAnthropicModel = anthropic.ModelClaudeSonnet4_5_20250929

// AnthropicProvider asks a Claude model for a corrected sentence.
type AnthropicProvider struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// AnthropicConfig configures the Anthropic-backed provider.
type AnthropicConfig struct {
	// API key; falls back to the ANTHROPIC_API_KEY environment variable
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model ID (e.g., claude-sonnet-4-5-20250929)
	Model string `json:"model" yaml:"model"`

	// Base URL override for proxies and test servers
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Response token budget per correction
	MaxTokens int64 `json:"max_tokens" yaml:"max_tokens"`
}

// NewAnthropicProvider creates a provider backed by the Anthropic API.
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.InvalidInput, "API key is required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	model := anthropic.Model(config.Model)
	if model == "" {
		model = defaultAnthropicModel
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &AnthropicProvider{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

const correctionPrompt = `You are a sentence correction engine for the %s category.
Correct the sentence below if it contains an error in that category; otherwise repeat it unchanged.
Reply with only the corrected sentence, no explanation.
%sSentence: %s`

// Correct implements the Provider interface.
func (p *AnthropicProvider) Correct(ctx context.Context, unit corrections.Unit) (corrections.Correction, error) {
	logger := logging.GetLogger()

	if strings.TrimSpace(unit.Text) == "" {
		return corrections.Correction{}, errors.New(errors.InvalidInput, "empty text unit")
	}

	contextLine := ""
	if unit.Context != "" {
		contextLine = fmt.Sprintf("Surrounding context: %s\n", unit.Context)
	}
	prompt := fmt.Sprintf(correctionPrompt, unit.Category, contextLine, unit.Text)

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model: p.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		MaxTokens:   p.maxTokens,
		Temperature: anthropic.Float(0),
	})

	if err != nil {
		return corrections.Correction{}, classifyAnthropicError(ctx, err)
	}

	if message == nil || len(message.Content) == 0 {
		return corrections.Correction{}, errors.New(errors.ServerError, "received empty content from Anthropic API")
	}

	var corrected string
	if block := message.Content[0]; block.Type == "text" {
		corrected = strings.TrimSpace(block.Text)
	}
	if corrected == "" {
		return corrections.Correction{}, errors.New(errors.ServerError, "received non-text response from Anthropic API")
	}

	logger.Debug(ctx, "Anthropic correction: %d prompt tokens, %d completion tokens",
		message.Usage.InputTokens, message.Usage.OutputTokens)

	return corrections.Correction{
		Original:   unit.Text,
		Corrected:  corrected,
		Category:   unit.Category,
		Confidence: 1.0,
	}, nil
}

// classifyAnthropicError maps API failures onto the error taxonomy so
// the gateway can decide whether to retry.
func classifyAnthropicError(ctx context.Context, err error) error {
	if goerrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.Timeout, "Anthropic call timed out")
	}
	if goerrors.Is(err, context.Canceled) {
		return errors.Wrap(err, errors.Canceled, "Anthropic call canceled")
	}

	var apiErr *anthropic.Error
	if goerrors.As(err, &apiErr) {
		logging.GetLogger().Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return errors.Wrap(err, errors.AuthError, "Anthropic authentication failed")
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return errors.Wrap(err, errors.RateLimited, "Anthropic rate limit hit")
		case apiErr.StatusCode == http.StatusRequestTimeout:
			return errors.Wrap(err, errors.Timeout, "Anthropic request timed out")
		case apiErr.StatusCode >= 500:
			return errors.Wrap(err, errors.ServerError, "Anthropic server error")
		default:
			return errors.Wrap(err, errors.InvalidInput, "Anthropic rejected the request")
		}
	}

	// Network-level faults are worth retrying
	return errors.Wrap(err, errors.ServerError, "Anthropic call failed")
}
