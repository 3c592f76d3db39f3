package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TrainProtocol/swapd/internal/core/domain"
	"github.com/TrainProtocol/swapd/internal/core/ports"
)

const defaultHTTPTimeout = 15 * time.Second

// Client talks to the off-chain solver/liquidity-provider API.
type Client struct {
	URL    string
	Solver string
	Client http.Client
}

func NewClient(url, solver string) *Client {
	return &Client{URL: strings.TrimSuffix(url, "/"), Solver: solver}
}

type getSwapResponse struct {
	Data  *domain.SolverSwap `json:"data"`
	Error string             `json:"error"`
}

func (c *Client) GetSwap(ctx context.Context, commitId string) (*domain.SolverSwap, error) {
	endpoint := fmt.Sprintf("/api/%s/swaps/%s", c.Solver, commitId)
	resp, err := sendGetRequest[getSwapResponse](ctx, c, endpoint)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	if resp.Data == nil {
		return nil, domain.ErrNoResult
	}
	return resp.Data, nil
}

type addLockSigResponse struct {
	Error string `json:"error"`
}

func (c *Client) SubmitAddLockSig(ctx context.Context, commitId string, req ports.AddLockSigRequest) error {
	endpoint := fmt.Sprintf("/%s/swaps/%s/addLockSig", c.Solver, commitId)
	resp, err := sendPostRequest[addLockSigResponse](ctx, c, endpoint, req)
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("%s", resp.Error)
	}
	return nil
}

func sendGetRequest[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultHTTPTimeout)
	defer cancel()

	return callApi[T](ctx, &c.Client, http.MethodGet, c.URL+endpoint, nil)
}

func sendPostRequest[T any](ctx context.Context, c *Client, endpoint string, requestBody any) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultHTTPTimeout)
	defer cancel()

	return callApi[T](ctx, &c.Client, http.MethodPost, c.URL+endpoint, requestBody)
}

func callApi[T any](ctx context.Context, c *http.Client, method, url string, reqBody any) (*T, error) {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("new %s %s: %w", method, url, err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 2000 {
			msg = msg[:2000] + "...(truncated)"
		}
		return nil, &HTTPError{
			Method:     method,
			URL:        url,
			StatusCode: res.StatusCode,
			Body:       msg,
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		var zero T
		return &zero, nil
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		snip := strings.TrimSpace(string(raw))
		if len(snip) > 300 {
			snip = snip[:300] + "...(truncated)"
		}
		return nil, fmt.Errorf("unmarshal JSON: %w (body: %q)", err, snip)
	}

	return &out, nil
}

type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
