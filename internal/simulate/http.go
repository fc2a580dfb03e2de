package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPSink posts events to a running rollcall server.
type HTTPSink struct {
	client *http.Client
	url    string
}

// NewHTTPSink targets baseURL, e.g. http://localhost:9080.
func NewHTTPSink(baseURL string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPSink{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(baseURL, "/") + "/events",
	}
}

// Submit posts ev. 429 maps to ErrThrottled, any other non-202 to ErrRejected.
func (s *HTTPSink) Submit(ctx context.Context, ev model.IdentityEvent) error {
	body, err := json.Marshal(ToLine(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		return fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
