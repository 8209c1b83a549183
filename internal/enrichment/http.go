package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"spines/internal/services"
)

// retryPolicy bounds provider HTTP attempts.
type retryPolicy struct {
	attempts uint
	delay    time.Duration
}

func newRetryPolicy(opts []ProviderOption) retryPolicy {
	policy := retryPolicy{attempts: 2, delay: 500 * time.Millisecond}
	for _, opt := range opts {
		opt(&policy)
	}
	return policy
}

// ProviderOption tunes a provider's HTTP behaviour.
type ProviderOption func(*retryPolicy)

// WithRetry sets the attempt count and base delay between attempts.
func WithRetry(attempts uint, delay time.Duration) ProviderOption {
	return func(p *retryPolicy) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if delay >= 0 {
			p.delay = delay
		}
	}
}

// getJSON fetches endpoint and decodes the body into v. 4xx responses are not
// retried; 404 maps to ErrNotFound.
func getJSON(ctx context.Context, client *http.Client, policy retryPolicy, provider, endpoint string, v any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("build request: %w", err))
			}
			req.Header.Set("Accept", "application/json")

			start := time.Now()
			resp, err := client.Do(req)
			latency := time.Since(start)
			if err != nil {
				return services.Wrap(services.ErrTransient, "enrichment", provider,
					fmt.Sprintf("request failed (latency=%v)", latency), err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(services.Wrap(services.ErrNotFound, "enrichment", provider, "no record", nil))
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				return retry.Unrecoverable(services.Wrap(services.ErrValidation, "enrichment", provider,
					fmt.Sprintf("returned %d", resp.StatusCode), nil))
			case resp.StatusCode != http.StatusOK:
				return services.Wrap(services.ErrTransient, "enrichment", provider,
					fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			if err != nil {
				return services.Wrap(services.ErrTransient, "enrichment", provider, "read body", err)
			}
			if err := json.Unmarshal(body, v); err != nil {
				return retry.Unrecoverable(services.Wrap(services.ErrCorrupt, "enrichment", provider, "decode response", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(policy.attempts),
		retry.Delay(policy.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(services.Retryable),
	)
}
