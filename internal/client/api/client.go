/*
Package api is the client's HTTP wrapper around the donorlink backend.

Every call returns either a validated response DTO or a *clienterr.Error:
non-2xx responses carry the server's message, transport failures become
KindNetwork, and responses that do not match the expected schema become
KindValidation instead of leaking half-filled structs into the session.
*/
package api

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
	"sync"
	"time"

	"github.com/rs/zerolog"

	"donorlink/internal/client/clienterr"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 1 << 20

	msgBadResponse = "Unexpected response from server."
)

// Client issues requests to the backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
	routes     recoveryRoutes

	mu             sync.RWMutex
	onUnauthorized func()
}

// Options allows overriding the client's dependencies.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger

	// LegacyRecoveryRoutes selects /request-reset and /verify-security-question
	// for deployments that still serve only those paths.
	LegacyRecoveryRoutes bool
}

type recoveryRoutes struct {
	request string
	verify  string
}

// New creates a Client for baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("baseURL must be http or https, got %q", baseURL)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	routes := recoveryRoutes{request: "request-password-reset", verify: "verify-security-answer"}
	if opts.LegacyRecoveryRoutes {
		routes = recoveryRoutes{request: "request-reset", verify: "verify-security-question"}
	}

	return &Client{
		baseURL:    parsed,
		httpClient: client,
		logger:     opts.Logger.With().Str("component", "api").Logger(),
		routes:     routes,
	}, nil
}

// SetUnauthorizedHandler registers fn to run whenever a request that carried a
// session token is answered with 401.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) unauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// validatable is implemented by every response DTO.
type validatable interface {
	Validate() error
}

// call sends in as JSON (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) call(ctx context.Context, op, method, path, token string, in any, out validatable) error {
	started := time.Now()
	resp, err := c.doJSON(ctx, method, path, token, in)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Msg("Request failed before a response")
		return clienterr.Wrap(op, clienterr.KindNetwork, clienterr.MsgConnectionFailed, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && token != "" {
			c.unauthorized()
		}
		return statusError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return &clienterr.Error{Op: op, Kind: clienterr.KindValidation, Status: resp.StatusCode, Message: msgBadResponse, Err: err}
	}
	if err := out.Validate(); err != nil {
		return &clienterr.Error{Op: op, Kind: clienterr.KindValidation, Status: resp.StatusCode, Message: msgBadResponse, Err: err}
	}
	return nil
}

// errorBody is the error shape the server writes. Older deployments use "error".
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	var body errorBody
	message := clienterr.MsgGeneric
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case strings.TrimSpace(body.Message) != "":
			message = body.Message
		case strings.TrimSpace(body.Error) != "":
			message = body.Error
		}
	}

	return &clienterr.Error{
		Op:      op,
		Kind:    kindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: message,
		Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
	}
}

func kindForStatus(status int) clienterr.Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return clienterr.KindAuth
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict,
		http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return clienterr.KindValidation
	}
	return clienterr.KindUnknown
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader) (*http.Response, error) {
	rel, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, err
	}
	full := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, full.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, err
		}
		body = buf
	}
	return c.do(ctx, method, path, token, body)
}

// requireToken guards calls that make no sense without a session.
func requireToken(op, token string) error {
	if strings.TrimSpace(token) == "" {
		return &clienterr.Error{Op: op, Kind: clienterr.KindAuth, Status: http.StatusUnauthorized,
			Message: "Please sign in to continue.", Err: errors.New("no session token")}
	}
	return nil
}
