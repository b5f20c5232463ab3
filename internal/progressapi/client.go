// Package progressapi is the HTTP client for the learning portal's REST
// API: activity content and the attempt lifecycle endpoints.
package progressapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"activity-player/internal/domain"
	"activity-player/internal/question"
	"github.com/google/uuid"
)

// Config holds the portal API settings.
type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	Language string
}

// Client talks to the portal API. It never retries; callers decide.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates a portal API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		logger: logger,
		now:    time.Now,
	}
}

type attemptRequest struct {
	ActivityID string `json:"activity_id"`
	StudentID  string `json:"student_id"`
}

// LoadActivity fetches and normalizes one activity.
func (c *Client) LoadActivity(ctx context.Context, activityID string) (domain.Activity, error) {
	var payload any
	err := c.do(ctx, http.MethodGet, "activities/"+url.PathEscape(activityID)+"/", nil, nil, &payload)
	if StatusCode(err) == http.StatusNotFound {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if err != nil {
		return domain.Activity{}, err
	}
	activity := question.NormalizeActivity(payload, c.cfg.Language)
	if activity.ID == "" {
		activity.ID = activityID
	}
	return activity, nil
}

// RawActivity fetches an activity payload without normalizing it.
func (c *Client) RawActivity(ctx context.Context, activityID string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, "activities/"+url.PathEscape(activityID)+"/", nil, nil, &raw)
	if StatusCode(err) == http.StatusNotFound {
		return nil, domain.ErrActivityNotFound
	}
	return raw, err
}

// CurrentAttempt returns the child's latest attempt for an activity, or nil.
// List responses yield their first element.
func (c *Client) CurrentAttempt(ctx context.Context, activityID, studentID string) (map[string]any, error) {
	q := url.Values{}
	q.Set("activity_id", activityID)
	q.Set("student_id", studentID)

	var payload any
	err := c.do(ctx, http.MethodGet, "progress/attempts/current/", q, nil, &payload)
	if StatusCode(err) == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	switch v := payload.(type) {
	case map[string]any:
		if results, ok := v["results"].([]any); ok {
			return firstObject(results), nil
		}
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	case []any:
		return firstObject(v), nil
	}
	return nil, nil
}

func (c *Client) StartAttempt(ctx context.Context, activityID, studentID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "progress/attempts/start/", nil, attemptRequest{activityID, studentID}, &out)
	return out, err
}

func (c *Client) SubmitAttempt(ctx context.Context, sub domain.Submission) error {
	return c.do(ctx, http.MethodPost, "progress/attempts/submit/", nil, sub, nil)
}

func (c *Client) CompleteAttempt(ctx context.Context, sub domain.Submission) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "progress/attempts/complete/", nil, sub, &out)
	return out, err
}

func (c *Client) RestartAttempt(ctx context.Context, activityID, studentID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "progress/attempts/restart/", nil, attemptRequest{activityID, studentID}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := checkToken(c.cfg.Token, c.now()); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("portal api call failed", "method", method, "path", path, "request_id", requestID, "err", err)
		if isConnectionError(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	c.logger.Debug("portal api call", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(respBody, resp.Status)}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", domain.ErrUnauthorized, apiErr)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorMessage pulls {"message"} or {"detail"} out of an error body.
func errorMessage(body []byte, fallback string) string {
	var parsed struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 {
		return s
	}
	return fallback
}

func firstObject(items []any) map[string]any {
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			return m
		}
	}
	return nil
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
