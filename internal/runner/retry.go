package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petasbytes/game-agent/internal/provider"
	"github.com/petasbytes/game-agent/internal/telemetry"
)

// ErrServiceFatal stops the loop: the model service failed permanently or
// kept failing after every retry.
var ErrServiceFatal = errors.New("model service failed")

// RetryPolicy bounds retries of transient model-service failures.
type RetryPolicy struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: 30 * time.Second}

// Backoff is the wait after the given failed attempt (1-based): the initial
// backoff doubled per attempt, capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	if d <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// send calls the model service under the retry policy. Cancellation is
// returned as is; every other terminal failure wraps ErrServiceFatal.
func (o *Orchestrator) send(ctx context.Context, kind string, req provider.Request) (*provider.Response, error) {
	policy := o.cfg.Retry
	for attempt := 1; ; attempt++ {
		start := o.now()
		resp, err := o.svc.Send(ctx, req)
		fields := map[string]any{
			"kind":        kind,
			"model":       req.Mode.Model,
			"attempt":     attempt,
			"duration_ms": o.now().Sub(start).Milliseconds(),
		}
		if err == nil {
			fields["input_tokens"] = resp.Usage.InputTokens
			fields["output_tokens"] = resp.Usage.OutputTokens
			fields["stop_reason"] = resp.StopReason
			fields["error"] = nil
			telemetry.EmitTurn(ctx, "model_call", fields)
			return resp, nil
		}
		fields["error"] = err.Error()
		fields["status"] = provider.StatusCode(err)
		telemetry.EmitTurn(ctx, "model_call", fields)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !provider.IsTransient(err) {
			return nil, fmt.Errorf("%w: %w", ErrServiceFatal, err)
		}
		if attempt >= policy.attempts() {
			return nil, fmt.Errorf("%w: giving up after %d attempts: %w", ErrServiceFatal, attempt, err)
		}

		wait := policy.Backoff(attempt)
		o.logger.Warn("model call failed; retrying",
			"kind", kind, "attempt", attempt, "backoff", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-o.after(wait):
		}
	}
}
