package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/inkfable/storyweave/internal/generator"
	openai "github.com/sashabaranov/go-openai"
)

const defaultBackoffInitialInterval = 2 * time.Second

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIGateway calls a chat-completion API with a per-call timeout and a
// bounded exponential-backoff retry policy. Transient failures (timeouts,
// 5xx, rate limits) are retried; malformed requests and content-policy
// rejections are not.
type OpenAIGateway struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries uint64

	newBackOff func() backoff.BackOff
}

func NewOpenAIGateway(cfg OpenAIConfig) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	g := &OpenAIGateway{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: uint64(cfg.MaxRetries),
	}
	g.newBackOff = func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = defaultBackoffInitialInterval
		return bo
	}
	return g, nil
}

func (g *OpenAIGateway) Generate(ctx context.Context, spec generator.PromptSpec) (string, error) {
	system, user, err := spec.Render()
	if err != nil {
		return "", err
	}

	var out string
	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			classified := classifyError(err)
			slog.Warn("generation call failed", "role", string(spec.Role), "attempt", attempt, "error", err)
			return classified
		}
		if len(resp.Choices) == 0 {
			return errors.New("generation response contained no choices")
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return errors.New("generation response was empty")
		}
		out = text
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), g.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, generator.ErrContentRejected) {
			return "", generator.ErrContentRejected
		}
		if ctx.Err() != nil {
			// The invoking context was cancelled; the call is abandoned
			// rather than reported as an upstream outage.
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s", generator.ErrUnavailable, err)
	}
	return out, nil
}

// classifyError decides whether a failed call may be retried. Content-policy
// rejections and other 4xx responses are permanent; rate limits, 5xx, and
// transport timeouts are transient.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if isContentPolicyError(apiErr) {
			return backoff.Permanent(generator.ErrContentRejected)
		}
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return err
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError {
			return err
		}
		return backoff.Permanent(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return backoff.Permanent(err)
	}
	// Unknown transport failure; give it one more chance.
	return err
}

func isContentPolicyError(apiErr *openai.APIError) bool {
	if code, ok := apiErr.Code.(string); ok {
		if strings.Contains(code, "content_policy") || strings.Contains(code, "content_filter") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "content policy")
}
