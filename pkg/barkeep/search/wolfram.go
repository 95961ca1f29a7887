// Package search wraps the Wolfram Alpha and Google Custom Search APIs
// behind small query clients.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WolframClient answers factual queries via the Wolfram Alpha v2 query
// API, collecting the plaintext pods.
type WolframClient struct {
	appID      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWolframClient creates a client with the given app id.
func NewWolframClient(appID string, logger *slog.Logger) *WolframClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WolframClient{
		appID:      appID,
		baseURL:    "https://api.wolframalpha.com/v2/query",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "wolfram"),
	}
}

type wolframResponse struct {
	QueryResult struct {
		Success bool `json:"success"`
		Pods    []struct {
			Title   string `json:"title"`
			SubPods []struct {
				Plaintext string `json:"plaintext"`
			} `json:"subpods"`
		} `json:"pods"`
	} `json:"queryresult"`
}

// Query sends the input and returns the plaintext pods as titled
// sections.
func (c *WolframClient) Query(ctx context.Context, input string) (string, error) {
	params := url.Values{
		"appid":  {c.appID},
		"input":  {input},
		"output": {"json"},
		"format": {"plaintext"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wolfram request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wolfram returned status %d", resp.StatusCode)
	}

	var wr wolframResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if !wr.QueryResult.Success {
		return "", fmt.Errorf("wolfram could not interpret %q", input)
	}

	var b strings.Builder
	for _, pod := range wr.QueryResult.Pods {
		var texts []string
		for _, sub := range pod.SubPods {
			if t := strings.TrimSpace(sub.Plaintext); t != "" {
				texts = append(texts, t)
			}
		}
		if len(texts) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "**%s**\n%s", pod.Title, strings.Join(texts, "\n"))
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("wolfram returned no readable result for %q", input)
	}
	c.logger.Info("wolfram query done", "duration_ms", time.Since(start).Milliseconds())
	return b.String(), nil
}
