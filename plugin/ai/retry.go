package ai

import (
	"context"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	aierrors "github.com/hrygo/quillnote/internal/errors"
)

// NewLimiter returns the limiter shared by the decorated ports.
// A non-positive rate disables throttling.
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := max(int(requestsPerSecond), 1)
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// resilience holds the retry policy applied around a single provider call.
type resilience struct {
	config  RetryConfig
	limiter *rate.Limiter
}

func newResilience(config RetryConfig, limiter *rate.Limiter) *resilience {
	if limiter == nil {
		limiter = NewLimiter(config.RequestsPerSecond)
	}
	return &resilience{config: config, limiter: limiter}
}

func (r *resilience) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.config.InitialInterval > 0 {
		b.InitialInterval = r.config.InitialInterval
	}
	if r.config.MaxInterval > 0 {
		b.MaxInterval = r.config.MaxInterval
	}
	return b
}

// attempt runs op once under the limiter and the per-attempt timeout.
// Failures that will not heal by retrying are marked permanent.
func attempt[T any](ctx context.Context, r *resilience, name string, op func(context.Context) (T, error)) backoff.Operation[T] {
	return func() (T, error) {
		var zero T
		if err := r.limiter.Wait(ctx); err != nil {
			return zero, backoff.Permanent(aierrors.ContextCanceled(err))
		}

		attemptCtx := ctx
		if r.config.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
			defer cancel()
		}

		result, err := op(attemptCtx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil || !aierrors.IsRetryable(err) {
			return zero, backoff.Permanent(err)
		}
		slog.Debug("provider call failed, retrying", "port", name, "error", err)
		return zero, err
	}
}

func run[T any](ctx context.Context, r *resilience, name string, op func(context.Context) (T, error)) (T, error) {
	return backoff.Retry(ctx, attempt(ctx, r, name, op),
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(r.config.MaxRetries+1)),
	)
}

type resilientChatCompleter struct {
	inner ChatCompleter
	r     *resilience
}

// NewResilientChatCompleter decorates inner with rate limiting and bounded retry.
func NewResilientChatCompleter(inner ChatCompleter, config RetryConfig, limiter *rate.Limiter) ChatCompleter {
	return &resilientChatCompleter{inner: inner, r: newResilience(config, limiter)}
}

func (c *resilientChatCompleter) CompleteChat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	return run(ctx, c.r, "chat", func(ctx context.Context) (string, error) {
		return c.inner.CompleteChat(ctx, messages, opts)
	})
}

type resilientEmbedder struct {
	inner Embedder
	r     *resilience
}

// NewResilientEmbedder decorates inner with rate limiting and bounded retry.
func NewResilientEmbedder(inner Embedder, config RetryConfig, limiter *rate.Limiter) Embedder {
	return &resilientEmbedder{inner: inner, r: newResilience(config, limiter)}
}

func (e *resilientEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return run(ctx, e.r, "embedding", func(ctx context.Context) ([]float32, error) {
		return e.inner.GenerateEmbedding(ctx, text)
	})
}

// Ports bundles the two decorated provider ports.
type Ports struct {
	Chat     ChatCompleter
	Embedder Embedder
}

// NewPorts builds both ports from cfg, sharing one limiter between them.
func NewPorts(cfg *Config) (*Ports, error) {
	chat, err := NewChatCompleter(&cfg.LLM)
	if err != nil {
		return nil, err
	}
	emb, err := NewEmbedder(&cfg.Embedding)
	if err != nil {
		return nil, err
	}

	limiter := NewLimiter(cfg.Retry.RequestsPerSecond)
	return &Ports{
		Chat:     NewResilientChatCompleter(chat, cfg.Retry, limiter),
		Embedder: NewResilientEmbedder(emb, cfg.Retry, limiter),
	}, nil
}
