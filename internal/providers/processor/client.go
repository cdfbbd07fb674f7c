package processor

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

	"videomorph/internal/domain"
	"videomorph/internal/infra"
)

// Options controls how the transformation processor client is configured.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the external video transformation processor over HTTP.
// The processor is a black box: it acknowledges a dispatch synchronously,
// then reports the outcome through the webhook it was given and through
// the status endpoint this client polls. Outcome delivery is
// at-least-once and possibly never; callers own deduplication.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient validates the options and builds a processor client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("processor: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    base,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

type dispatchPayload struct {
	JobID      string            `json:"jobId"`
	VideoURL   string            `json:"videoUrl"`
	Parameters domain.Parameters `json:"parameters"`
	WebhookURL string            `json:"webhookUrl"`
}

type dispatchResponse struct {
	Success          bool   `json:"success"`
	TransformationID string `json:"transformationId"`
	Status           string `json:"status"`
	Message          string `json:"message"`
}

type statusResponse struct {
	TransformationID string  `json:"transformationId"`
	Status           string  `json:"status"`
	Progress         float64 `json:"progress"`
	ResultURL        string  `json:"resultUrl"`
	Message          string  `json:"message"`
}

// Dispatch submits a transformation and returns the processor's
// synchronous acknowledgment. A reachable processor that declines the
// work is an unaccepted ack, not an error.
func (c *Client) Dispatch(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchAck, error) {
	body, err := json.Marshal(dispatchPayload{
		JobID:      req.JobID,
		VideoURL:   req.SourceURL,
		Parameters: req.Params,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		return nil, fmt.Errorf("processor: encode dispatch: %w", err)
	}

	var resp dispatchResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/transformations", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &domain.DispatchAck{Accepted: false, Reason: resp.Message}, nil
	}
	if c.logger != nil {
		c.logger.Debug().Str("job_id", req.JobID).Str("dispatch_id", resp.TransformationID).Msg("processor accepted dispatch")
	}
	return &domain.DispatchAck{DispatchID: resp.TransformationID, Accepted: true}, nil
}

// Poll asks the processor for the current state of a dispatched job.
func (c *Client) Poll(ctx context.Context, dispatchID string) (*domain.PollStatus, error) {
	if dispatchID == "" {
		return nil, errors.New("processor: dispatch id is required")
	}

	var resp statusResponse
	url := c.baseURL + "/v1/transformations/" + dispatchID
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}

	status := &domain.PollStatus{Progress: -1}
	switch resp.Status {
	case "completed":
		status.Outcome = &domain.Outcome{Success: true, ResultURL: resp.ResultURL}
	case "failed":
		status.Outcome = &domain.Outcome{Reason: resp.Message}
	default:
		if resp.Progress > 0 {
			status.Progress = resp.Progress
		}
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("processor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("processor: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("processor: %s %s: status %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("processor: decode response: %w", err)
	}
	return nil
}

var _ domain.Processor = (*Client)(nil)
