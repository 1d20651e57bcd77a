package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deploywatch/deploywatch/internal/domain/deployment"
)

// Result is the classified outcome of a single liveness check. Probe
// failures are data, not errors: a timeout or a 5xx produces an unhealthy
// Result, never a Go error.
type Result struct {
	Status         deployment.HealthStatus
	Code           int
	ResponseTimeMs int64
	Error          string
}

type Prober struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func New(cfg Config) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Prober{
		client:    newHTTPClient(cfg),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
}

// Do issues one GET against rawURL with a hard deadline. ResponseTimeMs is
// wall-clock elapsed from request start to outcome, success or failure.
func (p *Prober) Do(ctx context.Context, rawURL string) Result {
	url := normalizeURL(rawURL)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{
			Status:         deployment.HealthUnhealthy,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			Error:          err.Error(),
		}
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return Result{
			Status:         deployment.HealthUnhealthy,
			ResponseTimeMs: elapsed,
			Error:          err.Error(),
		}
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	if code >= 200 && code <= 399 {
		return Result{
			Status:         deployment.HealthHealthy,
			Code:           code,
			ResponseTimeMs: elapsed,
		}
	}
	return Result{
		Status:         deployment.HealthUnhealthy,
		Code:           code,
		ResponseTimeMs: elapsed,
		Error:          fmt.Sprintf("HTTP %d: %s", code, http.StatusText(code)),
	}
}

func normalizeURL(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return t
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		return t
	}
	return "http://" + t
}
