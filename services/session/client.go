package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	LoginPath = "/login"

	DefaultTimeout = 7500 * time.Millisecond

	// maxBodyBytes caps how much of a response body is kept.
	maxBodyBytes = 1 << 20
)

// Credentials are sent to the login endpoint.
type Credentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Request is an outbound API call. The body is kept as bytes so the request
// can be replayed after a re-login.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credentials Credentials
	Timeout     time.Duration
	RatePerSec  float64
	Store       TokenStore
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client owns the session with the display control API. It performs the
// login, keeps the resulting session cookie and attaches it to every request.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	limiter *rate.Limiter
	store   TokenStore
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a client and restores a previously saved session from
// the token store, if there is one.
func NewClient(ctx context.Context, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		burst := int(opts.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryTokenStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		creds:   opts.Credentials,
		http:    httpClient,
		limiter: limiter,
		store:   store,
		logger:  logger,
	}

	token, err := store.Load(ctx)
	if err != nil {
		logger.Warn("Could not restore display API session", zap.Error(err))
	} else if token != "" {
		c.token = token
		logger.Info("Restored display API session from store")
	}
	return c
}

// Token returns the session cookie currently attached to requests.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login sends the stored credentials and keeps the returned session cookie
// as the credential for all later requests.
func (c *Client) Login(ctx context.Context) (string, error) {
	body, err := json.Marshal(c.creds)
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("failed to encode credentials: %w", err)}
	}

	req := Request{Method: http.MethodPost, Path: LoginPath, Body: body}
	resp, err := c.do(ctx, req, "")
	if err != nil {
		return "", &AuthError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &AuthError{Status: resp.StatusCode, Reason: strings.TrimSpace(string(resp.Body))}
	}

	token := sessionCookie(resp.Header)
	if token == "" {
		return "", &AuthError{Status: resp.StatusCode, Reason: "response carried no session cookie"}
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if err := c.store.Save(ctx, token); err != nil {
		c.logger.Warn("Could not persist display API session", zap.Error(err))
	}
	return token, nil
}

// Send issues req with the current session cookie. Any HTTP status,
// including 403, is returned as a Response; only transport failures are
// errors.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, req, c.Token())
}

// SendWithToken issues req with an explicit session cookie.
func (c *Client) SendWithToken(ctx context.Context, req Request, token string) (*Response, error) {
	return c.do(ctx, req, token)
}

func (c *Client) do(ctx context.Context, req Request, token string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classify(req, err)
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, &RequestError{Method: req.Method, Path: req.Path, Err: err}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Cookie", token)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classify(req, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(req, err)
	}

	c.logger.Debug("Display API response",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", httpResp.StatusCode))

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

// classify separates timeouts from other transport failures.
func classify(req Request, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Method: req.Method, Path: req.Path, Err: err}
	}
	return &RequestError{Method: req.Method, Path: req.Path, Err: err}
}

// sessionCookie returns the name=value pair of the first Set-Cookie header.
func sessionCookie(h http.Header) string {
	cookies := (&http.Response{Header: h}).Cookies()
	if len(cookies) == 0 {
		return ""
	}
	return cookies[0].Name + "=" + cookies[0].Value
}
