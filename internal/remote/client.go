// Package remote talks to the adventure server over HTTP.
package remote

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

	"github.com/AaronLay10/AdventureEngine/internal/analytics"
	"github.com/AaronLay10/AdventureEngine/internal/step"
)

// LearnerHeader carries the learner identity on every request.
const LearnerHeader = "X-Learner-ID"

// Handler paths served by the adventure server.
const (
	PathFetchCurrent  = "/handler/fetch_current_step"
	PathSubmit        = "/handler/submit"
	PathFetchPrevious = "/handler/fetch_previous_step"
	PathStartOver     = "/handler/start_over"
	PathPublishEvent  = "/handler/publish_event"
)

const maxResponseSize = 1 << 20

// Client implements the remote step operations and the telemetry sink.
type Client struct {
	baseURL   string
	learnerID string
	http      *http.Client
}

// New returns a client for the server at baseURL. timeout bounds each
// request independently of the caller's context; zero means no bound.
func New(baseURL, learnerID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		learnerID: learnerID,
		http:      &http.Client{Timeout: timeout},
	}
}

// LearnerID returns the identity sent with each request.
func (c *Client) LearnerID() string {
	return c.learnerID
}

func (c *Client) FetchCurrent(ctx context.Context) step.Outcome {
	return c.stepCall(ctx, step.OpFetchCurrent, PathFetchCurrent, struct{}{})
}

func (c *Client) FetchNext(ctx context.Context, payload step.Submission) step.Outcome {
	return c.stepCall(ctx, step.OpFetchNext, PathSubmit, payload)
}

func (c *Client) FetchPrevious(ctx context.Context) step.Outcome {
	return c.stepCall(ctx, step.OpFetchPrevious, PathFetchPrevious, struct{}{})
}

func (c *Client) Restart(ctx context.Context) step.Outcome {
	return c.stepCall(ctx, step.OpRestart, PathStartOver, struct{}{})
}

func (c *Client) stepCall(ctx context.Context, op step.Op, path string, body any) step.Outcome {
	data, err := c.post(ctx, path, body)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			if msg, ok := errorMessage(httpErr.Body); ok {
				return step.Failure(step.NewServerError(op, msg))
			}
		}
		return step.Failure(step.NewTransportFailure(op, err))
	}
	return step.Decode(op, data)
}

// errorMessage extracts the message of an error envelope.
func errorMessage(body string) (string, bool) {
	var env step.Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return "", false
	}
	if env.Result != step.ResultError || env.Message == "" {
		return "", false
	}
	return env.Message, true
}

// Publish sends one telemetry record to the publish_event handler.
func (c *Client) Publish(ctx context.Context, r analytics.Record) error {
	data, err := c.post(ctx, PathPublishEvent, r)
	if err != nil {
		return err
	}
	var env step.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("publish_event: malformed response: %w", err)
	}
	if env.Result != step.ResultSuccess {
		return fmt.Errorf("publish_event: %s", env.Message)
	}
	return nil
}

// post sends body as JSON and returns the response body. Any failure to
// obtain a 2xx response is returned as an error.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.learnerID != "" {
		req.Header.Set(LearnerHeader, c.learnerID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
	}
	return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
