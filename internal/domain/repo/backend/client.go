package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
)

const (
	agentsPath    = "/api/agents"
	anomaliesPath = "/api/anomalies"
	logsPath      = "/api/logs"
	insightsPath  = "/api/ai-insights"

	maxBodySize = 16 << 20
)

var (
	ErrStatus       = errors.New("unexpected status")
	ErrUnsuccessful = errors.New("backend answered without success")
)

// envelope is the shape of every dashboard API answer.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Client reads agents, anomalies, logs and insights from the dashboard backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL string, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithHTTPClient replaces the underlying http client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient

	return c
}

func (c *Client) FetchAgents(ctx context.Context) ([]repo.AgentRecord, error) {
	ret := envelope[[]repo.AgentRecord]{}

	err := c.getEnvelope(ctx, c.url(agentsPath, nil), &ret)
	if err != nil {
		return nil, fmt.Errorf("agents request failed: %w", err)
	}

	return ret.Data, nil
}

func (c *Client) FetchAnomalies(ctx context.Context) ([]repo.AnomalyRecord, error) {
	ret := envelope[[]repo.AnomalyRecord]{}

	err := c.getEnvelope(ctx, c.url(anomaliesPath, nil), &ret)
	if err != nil {
		return nil, fmt.Errorf("anomalies request failed: %w", err)
	}

	return ret.Data, nil
}

func (c *Client) FetchLogs(ctx context.Context, query repo.LogQuery) (repo.LogSearchResult, error) {
	params := url.Values{}

	if query.Query != "" {
		params.Set("q", query.Query)
	}

	if query.Size > 0 {
		params.Set("size", strconv.Itoa(query.Size))
	}

	ret := envelope[repo.LogSearchResult]{}

	err := c.getEnvelope(ctx, c.url(logsPath, params), &ret)
	if err != nil {
		return repo.LogSearchResult{}, fmt.Errorf("logs request failed: %w", err)
	}

	return ret.Data, nil
}

// FetchInsight returns the answer as is, an unsuccessful answer is not an error here.
func (c *Client) FetchInsight(ctx context.Context, identity string) (repo.InsightResponse, error) {
	params := url.Values{}
	params.Set("agent_id", identity)

	ret := repo.InsightResponse{}

	_, err := c.getJSON(ctx, c.url(insightsPath, params), &ret)
	if err != nil {
		return repo.InsightResponse{}, fmt.Errorf("insight request failed: %w", err)
	}

	return ret, nil
}

func (c *Client) url(path string, params url.Values) string {
	ret := c.baseURL + path

	if len(params) > 0 {
		ret += "?" + params.Encode()
	}

	return ret
}

type successful interface {
	successful() (bool, string)
}

func (e *envelope[T]) successful() (bool, string) {
	return e.Success, e.Error
}

func (c *Client) getEnvelope(ctx context.Context, endpoint string, out successful) error {
	body, err := c.getJSON(ctx, endpoint, out)
	if err != nil {
		return err
	}

	ok, reason := out.successful()
	if !ok {
		return &repo.DecodeError{Payload: body, Err: fmt.Errorf("%w: %s", ErrUnsuccessful, reason)}
	}

	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return nil, &repo.DecodeError{Payload: body, Err: err}
	}

	return body, nil
}
