// Package terminology talks to a FHIR terminology server: it runs
// CodeSystem/$validate-code for single codes and checks the server's
// capability statement.
package terminology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds each terminology request.
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "txaudit/dev"

	mediaTypeFHIRJSON = "application/fhir+json"
	validateCodePath  = "CodeSystem/$validate-code"
	metadataPath      = "metadata"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 8 << 20
)

// Client is an HTTP terminology server client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	base       *url.URL
	timeout    time.Duration
	userAgent  string
	limiter    *rate.Limiter
	logger     zerolog.Logger
	observer   CallObserver
}

// CallObserver is notified after every $validate-code exchange. Outcome is
// "ok", "http_error", "timeout", "transport_error" or "decode_error".
type CallObserver interface {
	ObserveCall(outcome string, elapsed time.Duration)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRateLimit limits requests to rps per second with the given burst.
// A non-positive rps leaves requests unthrottled.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithCallObserver registers an observer for request outcomes.
func WithCallObserver(o CallObserver) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a client for the server rooted at endpoint.
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("terminology endpoint is empty")
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid terminology endpoint %q: %w", endpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid terminology endpoint %q: scheme must be http or https", endpoint)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		httpClient: &http.Client{},
		base:       base,
		timeout:    DefaultTimeout,
		userAgent:  DefaultUserAgent,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "terminology").Logger()
	return c, nil
}

// Endpoint returns the server base URL.
func (c *Client) Endpoint() string {
	return c.base.String()
}

// ValidateCode runs CodeSystem/$validate-code for one code.
func (c *Client) ValidateCode(ctx context.Context, system, code string) (*Outcome, error) {
	q := url.Values{}
	if system != "" {
		q.Set("url", system)
	}
	if code != "" {
		q.Set("code", code)
	}
	u := c.base.JoinPath(validateCodePath)
	u.RawQuery = q.Encode()

	start := time.Now()
	status, body, err := c.get(ctx, u.String())
	if err != nil {
		c.observe(outcomeOf(err), start)
		return nil, err
	}

	if !json.Valid(body) {
		err := &DecodeError{StatusCode: status, Err: errors.New("response body is not valid JSON")}
		c.observe("decode_error", start)
		return nil, err
	}

	out := ParseParameters(body)
	out.StatusCode = status
	c.observe("ok", start)

	c.logger.Debug().
		Str("system", system).
		Str("code", code).
		Int("status", status).
		Dur("elapsed", time.Since(start)).
		Msg("validate-code")
	return out, nil
}

// ParseParameters interprets a Parameters resource returned by
// $validate-code. A body that is not a Parameters resource yields an Outcome
// with no result and an explanatory message.
func ParseParameters(body []byte) *Outcome {
	out := &Outcome{}
	if !jsonObject(body) {
		out.Message = ptr("Invalid response format: Not a Parameters resource.")
		return out
	}
	if rt, err := jsonparser.GetString(body, "resourceType"); err != nil || rt != "Parameters" {
		out.Message = ptr("Invalid response format: Not a Parameters resource.")
		return out
	}

	_, _ = jsonparser.ArrayEach(body, func(param []byte, dt jsonparser.ValueType, _ int, err error) {
		if err != nil || dt != jsonparser.Object {
			return
		}
		name, err := jsonparser.GetString(param, "name")
		if err != nil {
			return
		}
		switch name {
		case "result":
			out.Valid = nil
			if v, err := jsonparser.GetBoolean(param, "valueBoolean"); err == nil {
				out.Valid = &v
			}
		case "display":
			out.Display = stringParam(param)
		case "message":
			out.Message = stringParam(param)
		}
	}, "parameter")
	return out
}

func stringParam(param []byte) *string {
	s, err := jsonparser.GetString(param, "valueString")
	if err != nil {
		return nil
	}
	return &s
}

// get performs a GET and returns the status and body of a non-error
// response. 4xx and 5xx statuses come back as *HTTPError.
func (c *Client) get(ctx context.Context, target string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, &TransportError{Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return 0, nil, &TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", mediaTypeFHIRJSON)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, c.classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, c.classifyTransport(ctx, err)
	}

	if resp.StatusCode >= 400 {
		return resp.StatusCode, body, &HTTPError{
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp),
			Body:       body,
		}
	}
	return resp.StatusCode, body, nil
}

// classifyTransport maps a client error to ErrTimeout when the request
// deadline fired, and to *TransportError otherwise. Cancellation of the
// caller's own context is not a timeout.
func (c *Client) classifyTransport(parent context.Context, err error) error {
	if parent.Err() == nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrTimeout
		}
	}
	return &TransportError{Err: err}
}

func (c *Client) observe(outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveCall(outcome, time.Since(start))
	}
}

func outcomeOf(err error) string {
	var httpErr *HTTPError
	var decodeErr *DecodeError
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.As(err, &decodeErr):
		return "decode_error"
	default:
		return "transport_error"
	}
}

func reasonPhrase(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if phrase := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); phrase != "" {
		return phrase
	}
	return http.StatusText(resp.StatusCode)
}

func ptr[T any](v T) *T {
	return &v
}
