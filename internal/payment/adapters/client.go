package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/observability/tracing"
)

const defaultTimeout = 20 * time.Second

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 2048

var (
	ErrNotConfigured = errors.New("adapter_not_configured")
	ErrOAuthFailed   = errors.New("oauth_token_request_failed")
)

// APIError is returned for non-2xx provider responses.
type APIError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d", e.Provider, e.Operation, e.StatusCode)
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func withBasicAuth(user, pass string) requestOption {
	return func(req *http.Request) {
		req.SetBasicAuth(user, pass)
	}
}

func withHeader(key, value string) requestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// restClient performs JSON calls against one provider.
type restClient struct {
	provider string
	http     *http.Client
}

func newRESTClient(provider string, client *http.Client) restClient {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return restClient{provider: provider, http: tracing.WrapHTTPClient(client, provider)}
}

func (c restClient) doJSON(ctx context.Context, operation, method, endpoint string, body any, out any, opts ...requestOption) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	return c.do(req, operation, out)
}

func (c restClient) doForm(ctx context.Context, operation, endpoint string, form url.Values, out any, opts ...requestOption) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, opt := range opts {
		opt(req)
	}
	return c.do(req, operation, out)
}

func (c restClient) do(req *http.Request, operation string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.provider, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Provider:   c.provider,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", c.provider, operation, err)
	}
	return nil
}

func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, part := range parts {
		out += "/" + strings.TrimLeft(part, "/")
	}
	return out
}
