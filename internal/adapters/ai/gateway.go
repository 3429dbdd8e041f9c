package ai

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/time/rate"

	"steuerpilot/internal/metrics"
	"steuerpilot/pkg/errors"
	"steuerpilot/pkg/logger"
)

const (
	jsonGuard      = "Return strictly valid JSON. No markdown fences, no commentary before or after the object."
	maxBackoff     = 4 * time.Second
	defaultRetries = 3
)

// Embedder generates vector embeddings for retrieval
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Gateway fans a completion request over an ordered provider list. The first
// provider is primary; the rest are fallbacks tried after its retries are
// exhausted. All calls share one rate limiter.
type Gateway struct {
	providers []ChatProvider
	limiter   *rate.Limiter
	retries   int
	log       *logger.Logger
}

// NewGateway creates a gateway over the given providers, ordered by priority
func NewGateway(providers []ChatProvider, requestsPerMinute, retries int) (*Gateway, error) {
	if len(providers) == 0 {
		return nil, errors.Wrap(errors.ErrNoProvider, "gateway needs at least one provider")
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if retries <= 0 {
		retries = defaultRetries
	}

	return &Gateway{
		providers: providers,
		limiter:   rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute/6+1),
		retries:   retries,
		log:       logger.Get().With("component", "ai_gateway"),
	}, nil
}

// Complete returns the first successful completion across providers and
// retries. Backoff doubles per attempt, capped at 4s.
func (g *Gateway) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var lastErr error

	for _, provider := range g.providers {
		for attempt := 0; attempt < g.retries; attempt++ {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", errors.Wrap(err, "rate limiter wait")
			}

			text, err := provider.Complete(ctx, req)
			if err == nil {
				metrics.ProviderCalls.WithLabelValues(provider.Name(), "success").Inc()
				return text, nil
			}
			metrics.ProviderCalls.WithLabelValues(provider.Name(), "error").Inc()
			lastErr = err

			if ctx.Err() != nil {
				return "", errors.Wrap(ctx.Err(), "completion cancelled")
			}

			g.log.Warnw("completion attempt failed",
				"provider", provider.Name(),
				"attempt", attempt+1,
				"error", err,
			)

			if attempt < g.retries-1 {
				backoff := time.Duration(1<<uint(attempt)) * time.Second
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return "", errors.Wrap(ctx.Err(), "completion cancelled")
				}
			}
		}
		g.log.Warnw("provider exhausted, falling back", "provider", provider.Name())
	}

	return "", errors.Wrapf(errors.ErrNoProvider, "all providers failed: %v", lastErr)
}

// CompleteJSON requests strict JSON output and extracts the first
// object from whatever came back.
func (g *Gateway) CompleteJSON(ctx context.Context, req ChatRequest) (json.RawMessage, error) {
	if req.SystemPrompt == "" {
		req.SystemPrompt = jsonGuard
	} else {
		req.SystemPrompt = req.SystemPrompt + "\n\n" + jsonGuard
	}

	text, err := g.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := ExtractJSONObject(text)
	if err != nil {
		return nil, errors.Wrapf(err, "completion was not JSON: %.120s", text)
	}
	return raw, nil
}
