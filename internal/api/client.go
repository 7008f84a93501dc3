// Package api is the single transport every console screen uses to talk to
// the REST backend. It attaches the stored credential as a bearer token and
// otherwise stays out of the way: no retries, no automatic logout.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"invoice-console/internal/repository"
)

// RequestIDHeader carries a per-call identifier for correlating backend logs.
const RequestIDHeader = "X-Request-ID"

// ErrUnsupportedMethod is returned for verbs other than the standard REST ones.
var ErrUnsupportedMethod = errors.New("unsupported http method")

// Requester issues authenticated backend calls. Services depend on this
// rather than on *Client so tests can substitute it.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (json.RawMessage, error)
	PublicRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error)
}

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	StatusCode int
	// Message is the backend's own explanation, when it sent one.
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// Client is safe for concurrent use. The credential is read from the store
// on every call, so a token written between calls is picked up.
type Client struct {
	baseURL    string
	store      repository.TokenStore
	httpClient *http.Client
	timeout    time.Duration
	logger     *logrus.Entry
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each call; zero leaves calls bounded only by ctx.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(baseURL string, store repository.TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		httpClient: http.DefaultClient,
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request sends an authenticated call to path, relative to the base URL.
// body is JSON encoded when non-nil.
func (c *Client) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, method, path, body, true)
}

// PublicRequest sends a call without credentials, used for login and registration.
func (c *Client) PublicRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, method, path, body, false)
}

// RequestInto is Request followed by decoding the response into out.
// An empty or null response leaves out untouched.
func (c *Client) RequestInto(ctx context.Context, method, path string, body, out any) error {
	raw, err := c.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	return Decode(raw, out)
}

// Decode unmarshals a backend response, treating an empty or null body as no data.
func Decode(raw json.RawMessage, out any) error {
	if IsEmpty(raw) || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsEmpty reports whether the backend sent no payload.
func IsEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (c *Client) do(ctx context.Context, method, path string, body any, authenticated bool) (json.RawMessage, error) {
	method, err := normalizeMethod(method)
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if body != nil {
		data, err := encodeBody(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(data)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), payload)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	if authenticated {
		token, ok, err := c.store.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("read credential: %w", err)
		}
		if ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
	})

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("backend request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	log = log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("backend request rejected")
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    backendMessage(data),
			Body:       data,
		}
	}

	log.Debug("backend request completed")
	return json.RawMessage(data), nil
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func normalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return data, nil
}

func backendMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

var _ Requester = (*Client)(nil)
