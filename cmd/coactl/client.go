package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerzhul/coa/internal/api"
	"github.com/nerzhul/coa/internal/types"
)

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

// apiClient talks to the Coa HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *apiClient) ListIssues(ctx context.Context, category types.IssueCategory, namespace string) (api.IssuesResponse, error) {
	var out api.IssuesResponse
	path := "/v1/issues/" + url.PathEscape(category.String()) + "/" + url.PathEscape(namespace)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// SubmitIssues posts the batch. On a partial failure the response still
// carries how many issues were stored, along with the error.
func (c *apiClient) SubmitIssues(ctx context.Context, batch []types.IssueSubmission) (api.SubmitResponse, error) {
	var out api.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/v1/issues", api.SubmitRequest{Issues: batch}, &out)
	return out, err
}

func (c *apiClient) Namespaces(ctx context.Context) (api.NamespacesResponse, error) {
	var out api.NamespacesResponse
	err := c.do(ctx, http.MethodGet, "/v1/namespaces", nil, &out)
	return out, err
}

func (c *apiClient) Cluster(ctx context.Context) (api.ClusterResponse, error) {
	var out api.ClusterResponse
	err := c.do(ctx, http.MethodGet, "/v1/cluster", nil, &out)
	return out, err
}

// Ready reports whether the readiness probe passes.
func (c *apiClient) Ready(ctx context.Context) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/v1/health/readiness", nil, nil)
	if err == nil {
		return true, nil
	}
	if ae, ok := err.(*apiError); ok && ae.Status == http.StatusServiceUnavailable {
		return false, nil
	}
	return false, err
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return err
	}

	var statusErr error
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr = &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out != nil && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(data, out); err != nil && statusErr == nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return statusErr
}
