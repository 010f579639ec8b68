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

	"github.com/hyperjump/resumatch/internal/models"
)

// apiClient talks to a running resumatch server. The CLI uses it when the index files are
// held open by the server process.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) match(ctx context.Context, text string, topK int) ([]models.Match, error) {
	var resp models.MatchResponse
	q := models.MatchQuery{Text: text, TopK: &topK}
	if err := c.do(ctx, http.MethodPost, "/match", q, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// previews fetches the raw text of each match; resumes that cannot be fetched are left out.
func (c *apiClient) previews(ctx context.Context, matches []models.Match) map[string]string {
	out := make(map[string]string, len(matches))
	for _, m := range matches {
		var doc models.Document
		if err := c.do(ctx, http.MethodGet, "/resumes/"+url.PathEscape(m.DocumentID), nil, http.StatusOK, &doc); err == nil {
			out[m.DocumentID] = doc.RawText
		}
	}
	return out
}

func (c *apiClient) stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := c.do(ctx, http.MethodGet, "/resumes", nil, http.StatusOK, &stats)
	return stats, err
}

func (c *apiClient) inboxList(ctx context.Context) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(ctx, http.MethodGet, "/inbox/directories", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

func (c *apiClient) inboxAdd(ctx context.Context, path string) error {
	body := map[string]any{"path": path, "sync": true}
	return c.do(ctx, http.MethodPost, "/inbox/directories", body, http.StatusCreated, nil)
}

func (c *apiClient) inboxRemove(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/inbox/directories?path="+url.QueryEscape(path), nil, http.StatusOK, nil)
}
