// Package apiclient talks to the ajedrez HTTP API over fasthttp.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/misaelnieto/itm-2025-soa-u5/pkg/ajedrezdto"
)

const apiPrefix = "/api/ajedrez"

// HeaderProvider injects per-request headers, e.g. X-Request-ID.
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry bounds attempts for idempotent reads. Writes are never retried.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL is the server root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   []byte
	API    *ajedrezdto.APIError
}

func (e *StatusError) Error() string {
	if e.API != nil {
		return fmt.Sprintf("ajedrez api error: status=%d code=%s: %s", e.Status, e.API.Code, e.API.Message)
	}
	return fmt.Sprintf("ajedrez api error: status=%d body=%s", e.Status, truncate(string(e.Body), 512))
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == fasthttp.StatusNotFound
}

func (c *Client) CreateSession(ctx context.Context, white, black int64) (*ajedrezdto.Session, error) {
	var out ajedrezdto.Session
	in := ajedrezdto.CreateSessionRequest{WhitePlayer: white, BlackPlayer: black}
	if err := c.doJSON(ctx, fasthttp.MethodPost, apiPrefix+"/sessions", in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSessions(ctx context.Context, limit int) ([]ajedrezdto.Session, error) {
	path := apiPrefix + "/sessions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out ajedrezdto.SessionList
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) Inspect(ctx context.Context, id int64) (*ajedrezdto.SessionView, error) {
	var out ajedrezdto.SessionView
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// MakeMove posts a move. Rejected moves come back as a MoveResponse with a nil
// error; only transport failures and non-outcome bodies are errors.
func (c *Client) MakeMove(ctx context.Context, id, player int64, moveText string) (*ajedrezdto.MoveResponse, error) {
	var out ajedrezdto.MoveResponse
	in := ajedrezdto.MoveRequest{PlayerID: player, Move: moveText}
	err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id)+"/moves", in, &out, false)
	if err == nil {
		return &out, nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		var outcome ajedrezdto.MoveResponse
		if json.Unmarshal(se.Body, &outcome) == nil && outcome.Result != "" {
			return &outcome, nil
		}
	}
	return nil, err
}

// BoardPNG fetches the rendered board, viewed from Black when flip is set.
func (c *Client) BoardPNG(ctx context.Context, id int64, flip bool) ([]byte, error) {
	path := sessionPath(id) + "/board.png"
	if flip {
		path += "?side=black"
	}
	return c.doRaw(ctx, fasthttp.MethodGet, path, true)
}

// OpenAPI returns the raw JSON API document.
func (c *Client) OpenAPI(ctx context.Context) ([]byte, error) {
	return c.doRaw(ctx, fasthttp.MethodGet, "/openapi.json", true)
}

func sessionPath(id int64) string {
	return apiPrefix + "/sessions/" + strconv.FormatInt(id, 10)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}
	body, err := c.do(ctx, method, path, payload, retry)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, retry bool) ([]byte, error) {
	return c.do(ctx, method, path, nil, retry)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if payload != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return nil, lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		body := append([]byte(nil), resp.Body()...)
		if status < 200 || status >= 300 {
			se := &StatusError{Status: status, Body: body}
			var apiErr ajedrezdto.APIError
			if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
				se.API = &apiErr
			}
			if attempt == attempts || !shouldRetryStatus(status) {
				return nil, se
			}
			lastErr = se
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDuration doubles from 100ms and stops growing after six attempts.
func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
