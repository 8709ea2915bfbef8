package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"roomsync/metrics"
	"roomsync/models"

	"go.uber.org/zap"
)

const (
	UploadPath = "/upload-schedule"

	DefaultMaxPending = 256
)

// SessionClient is what the Coordinator needs from the underlying client.
type SessionClient interface {
	Token() string
	Login(ctx context.Context) (string, error)
	SendWithToken(ctx context.Context, req Request, token string) (*Response, error)
}

// loginResult resolves a pending request exactly once.
type loginResult struct {
	token string
	err   error
}

// pendingRequest is a request that hit an expired session and waits for the
// next login to finish.
type pendingRequest struct {
	req    Request
	result chan loginResult
}

// Stats is a snapshot of the coordinator state.
type Stats struct {
	Reauthenticating bool  `json:"reauthenticating"`
	Pending          int   `json:"pending"`
	Logins           int64 `json:"logins"`
	LoginFailures    int64 `json:"loginFailures"`
}

// Coordinator wraps a SessionClient and hides session expiry from callers.
// A 403 answer queues the request and starts a login unless one is already
// running; once that login resolves every queued request is either replayed
// with the new session or failed with the login error.
type Coordinator struct {
	client     SessionClient
	logger     *zap.Logger
	maxPending int

	mu               sync.Mutex
	reauthenticating bool
	queue            []*pendingRequest

	logins        atomic.Int64
	loginFailures atomic.Int64
}

// NewCoordinator creates a coordinator. maxPending <= 0 uses DefaultMaxPending.
func NewCoordinator(client SessionClient, maxPending int, logger *zap.Logger) *Coordinator {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{client: client, logger: logger, maxPending: maxPending}
}

// Do sends req and transparently recovers from an expired session. Timeouts
// and transport failures are returned as they are; every status other than
// 403 is passed through unchanged.
func (c *Coordinator) Do(ctx context.Context, req Request) (*Response, error) {
	token := c.client.Token()
	resp, err := c.client.SendWithToken(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	c.logger.Info("No session, creating a new session",
		zap.String("method", req.Method), zap.String("path", req.Path))

	pending, fresh, err := c.enqueue(req, token)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		// A login finished after this request went out; use its session.
		return c.replay(ctx, req, fresh)
	}

	select {
	case res := <-pending.result:
		if res.err != nil {
			return nil, res.err
		}
		return c.replay(ctx, req, res.token)
	case <-ctx.Done():
		return nil, classify(req, ctx.Err())
	}
}

// enqueue queues req for the next login and starts one if none is running.
// When the session already changed since req was sent, no request is queued
// and the current session is returned instead.
func (c *Coordinator) enqueue(req Request, sentWith string) (*pendingRequest, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reauthenticating {
		if current := c.client.Token(); current != "" && current != sentWith {
			return nil, current, nil
		}
	}
	if len(c.queue) >= c.maxPending {
		c.logger.Warn("Pending request queue is full, dropping request",
			zap.String("path", req.Path), zap.Int("pending", len(c.queue)))
		return nil, "", ErrQueueFull
	}

	p := &pendingRequest{req: req, result: make(chan loginResult, 1)}
	c.queue = append(c.queue, p)
	metrics.PendingRequests.Set(float64(len(c.queue)))

	if !c.reauthenticating {
		c.reauthenticating = true
		go c.reauthenticate()
	}
	return p, "", nil
}

// reauthenticate runs the single login of an expiry episode and resolves
// every request queued during it, in queue order.
func (c *Coordinator) reauthenticate() {
	token, err := c.client.Login(context.Background())

	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.reauthenticating = false
	metrics.PendingRequests.Set(0)
	c.mu.Unlock()

	if err != nil {
		c.loginFailures.Add(1)
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		c.logger.Error("Create session error", zap.Error(err), zap.Int("dropped", len(queue)))
		for _, p := range queue {
			p.result <- loginResult{err: err}
		}
		return
	}

	c.logins.Add(1)
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	c.logger.Info("Created new session", zap.Int("replaying", len(queue)))
	for _, p := range queue {
		p.result <- loginResult{token: token}
	}
}

func (c *Coordinator) replay(ctx context.Context, req Request, token string) (*Response, error) {
	c.logger.Info("Retry with new cookie",
		zap.String("method", req.Method), zap.String("path", req.Path))

	resp, err := c.client.SendWithToken(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusForbidden {
		return nil, &SessionExpiredError{Method: req.Method, Path: req.Path}
	}
	return resp, nil
}

// Stats returns the current coordinator state.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Reauthenticating: c.reauthenticating,
		Pending:          len(c.queue),
		Logins:           c.logins.Load(),
		LoginFailures:    c.loginFailures.Load(),
	}
}

// UploadSchedule pushes one room's entries to the display with the given
// hardware address. Events must share room and date and be ordered by start.
func (c *Coordinator) UploadSchedule(ctx context.Context, mac string, events []models.CalendarEvent) error {
	if len(events) == 0 {
		return fmt.Errorf("no events to upload for %s", mac)
	}
	body, err := json.Marshal(models.NewUploadEnvelope(mac, events))
	if err != nil {
		return fmt.Errorf("failed to encode schedule for %s: %w", mac, err)
	}

	req := Request{Method: http.MethodPost, Path: UploadPath, Body: body}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method: req.Method,
			Path:   req.Path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(resp.Body)),
		}
	}
	return nil
}
