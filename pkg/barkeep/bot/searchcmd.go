package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/jholhewres/barkeep/pkg/barkeep/command"
)

// HandleWolfram answers a factual query via Wolfram Alpha.
func (a *Assistant) HandleWolfram(ctx context.Context, channelID string, parsed *command.Parsed) string {
	if len(parsed.Errors) > 0 {
		return command.FormatErrors(parsed.Errors)
	}
	query, ok := parsed.Value("query")
	if !ok || strings.TrimSpace(query) == "" {
		return "What should I ask? Try " + a.prefix + "wolfram -q \"mass of the moon\"."
	}
	if a.wolfram == nil {
		return "Wolfram is not configured (set WOLFRAM_APP_ID)."
	}

	answer, err := a.wolfram.Query(ctx, query)
	if err != nil {
		a.logger.Warn("wolfram query failed", "channel", channelID, "error", err)
		return fmt.Sprintf("Wolfram query failed: %v", err)
	}
	return answer
}

// HandleGoogle runs a web search and renders the top hits.
func (a *Assistant) HandleGoogle(ctx context.Context, channelID string, parsed *command.Parsed) string {
	if len(parsed.Errors) > 0 {
		return command.FormatErrors(parsed.Errors)
	}
	query, ok := parsed.Value("search")
	if !ok || strings.TrimSpace(query) == "" {
		return "What should I search for? Try " + a.prefix + "google -s \"go generics\"."
	}
	if a.google == nil {
		return "Google search is not configured (set GOOGLE_API_KEY and GOOGLE_ENGINE_ID)."
	}

	results, err := a.google.Search(ctx, query)
	if err != nil {
		a.logger.Warn("google search failed", "channel", channelID, "error", err)
		return fmt.Sprintf("Search failed: %v", err)
	}
	if len(results) == 0 {
		return "No results for " + query + "."
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. **%s**\n%s\n<%s>", i+1, r.Title, r.Snippet, r.Link)
	}
	return b.String()
}
