package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// maxGoogleResults caps how many hits one query renders.
const maxGoogleResults = 5

// GoogleResult is one web search hit.
type GoogleResult struct {
	Title   string
	Link    string
	Snippet string
}

// GoogleClient queries the Google Custom Search JSON API.
type GoogleClient struct {
	apiKey     string
	engineID   string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGoogleClient creates a client for the given API key and search
// engine id.
func NewGoogleClient(apiKey, engineID string, logger *slog.Logger) *GoogleClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleClient{
		apiKey:     apiKey,
		engineID:   engineID,
		baseURL:    "https://www.googleapis.com/customsearch/v1",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "google"),
	}
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Search returns up to five hits for the query.
func (c *GoogleClient) Search(ctx context.Context, query string) ([]GoogleResult, error) {
	params := url.Values{
		"key": {c.apiKey},
		"cx":  {c.engineID},
		"q":   {query},
		"num": {fmt.Sprint(maxGoogleResults)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var gr googleResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if gr.Error != nil {
		return nil, fmt.Errorf("google API error: %s", gr.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google returned status %d", resp.StatusCode)
	}

	results := make([]GoogleResult, 0, len(gr.Items))
	for _, item := range gr.Items {
		results = append(results, GoogleResult{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
		if len(results) == maxGoogleResults {
			break
		}
	}
	c.logger.Info("google search done", "results", len(results), "duration_ms", time.Since(start).Milliseconds())
	return results, nil
}
