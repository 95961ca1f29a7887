package bot

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jholhewres/barkeep/pkg/barkeep/clip"
	"github.com/jholhewres/barkeep/pkg/barkeep/music"
	"github.com/jholhewres/barkeep/pkg/barkeep/provider"
	"github.com/jholhewres/barkeep/pkg/barkeep/session"
)

// code fences keep the monospace tables aligned in chat clients.
func fenced(s string) string {
	return "```\n" + s + "\n```"
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}

// renderStatus shows the channel's current chat configuration.
func renderStatus(sess session.ChannelSession) string {
	promptName := "custom"
	if sess.CustomPrompt == "" {
		if p, ok := provider.PromptByIndex(sess.PromptIndex); ok {
			promptName = fmt.Sprintf("%d (%s)", sess.PromptIndex, p.Name)
		} else {
			promptName = fmt.Sprintf("%d", sess.PromptIndex)
		}
	}
	listen := "off"
	if sess.ListenMode {
		listen = "on"
	}

	t := newTable()
	t.AppendRows([]table.Row{
		{"provider", sess.Provider},
		{"model", sess.Model},
		{"prompt", promptName},
		{"listen", listen},
		{"history", fmt.Sprintf("%d messages", len(sess.History(sess.Provider)))},
	})
	return fenced(t.Render())
}

// renderModels lists a provider's models, marking the active one.
func renderModels(providerName, activeModel string, models []string) string {
	t := newTable()
	t.AppendHeader(table.Row{"#", "model", ""})
	for i, m := range models {
		marker := ""
		if m == activeModel {
			marker = "active"
		}
		t.AppendRow(table.Row{i + 1, m, marker})
	}
	return fmt.Sprintf("Models for %s:\n%s", providerName, fenced(t.Render()))
}

// renderPrompts lists the built-in prompt presets.
func renderPrompts() string {
	t := newTable()
	t.AppendHeader(table.Row{"#", "prompt"})
	for i, p := range provider.Presets {
		t.AppendRow(table.Row{i, p.Name})
	}
	return fenced(t.Render())
}

// renderPlaylist shows the queue with the current entry marked.
func renderPlaylist(p music.Playlist) string {
	t := newTable()
	t.AppendHeader(table.Row{"#", "entry", "kind", ""})
	for i, entry := range p.Entries {
		marker := ""
		if i == p.CurrentIndex {
			marker = "▶"
		}
		t.AppendRow(table.Row{i + 1, entry.Location, entry.Kind.String(), marker})
	}
	return fenced(t.Render())
}

// renderClipJob shows the per-clip estimate table for a staged job.
func renderClipJob(job clip.Job) string {
	t := newTable()
	t.AppendHeader(table.Row{"#", "source", "range", "quality", "est. size", "fits"})
	for i, spec := range job.Specs {
		est := job.Estimates[i]
		fits := "yes"
		if !est.Fits {
			fits = "NO"
		}
		quality := describeQuality(spec.Quality)
		timeRange := clip.FormatTimecode(spec.Start) + "–" + clip.FormatTimecode(spec.End)
		t.AppendRow(table.Row{i + 1, spec.URL, timeRange, quality, fmt.Sprintf("%.1f MB", est.SizeMB), fits})
	}
	return fmt.Sprintf("Clip job (limit %.0f MB):\n%s", job.LimitMB, fenced(t.Render()))
}

func describeQuality(q clip.Quality) string {
	if q.Format == "mp3" {
		return "audio"
	}
	return fmt.Sprintf("%dp/%dfps %dk %s", q.Resolution, q.FPS, q.EffectiveBitrate(), q.Format)
}

// renderDBStats shows the $db stats table.
func renderDBStats(stats session.Stats) string {
	t := newTable()
	t.AppendRows([]table.Row{
		{"channels", stats.Channels},
		{"history rows", stats.HistoryRows},
		{"music rows", stats.MusicRows},
		{"file size", fmt.Sprintf("%.1f KB", float64(stats.FileSize)/1024)},
	})
	for providerName, n := range stats.PerProvider {
		t.AppendRow(table.Row{"history (" + providerName + ")", n})
	}
	return fenced(t.Render())
}

// renderHelp lists the command set.
func renderHelp(prefix string) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, line := range []string{
		"chat -llm <provider> -m <model> -p <prompt> -s <message> [-clear] [-listen on|off] [-models] [-status]",
		"music [-init] [-y <url>...] [-queue] [-play|-pause|-stop|-next|-prev|-name]",
		"clip -u <url> -s <start> -e <end> [-r <res>] [-fps <n>] [-b <kbps>] [-f video|gif|audio] | -clip N ... | -confirm [-skip N] | -cancel",
		"wolfram -q <query>",
		"google -s <query>",
		"db [-stats|-export|-import]",
		"remindMeIn <minutes> <message>",
	} {
		b.WriteString("  " + prefix + line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
