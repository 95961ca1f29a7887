package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jholhewres/barkeep/pkg/barkeep/channels"
	"github.com/jholhewres/barkeep/pkg/barkeep/command"
	"github.com/jholhewres/barkeep/pkg/barkeep/music"
)

// HandleMusic applies a parsed $music command. Intents are processed in
// a fixed order: initialize, add entries, playback control, navigation,
// name query.
func (a *Assistant) HandleMusic(ctx context.Context, channelID, userID string, parsed *command.Parsed) string {
	if len(parsed.Errors) > 0 {
		return command.FormatErrors(parsed.Errors)
	}

	// The legacy grammar binds one action word.
	if action, ok := parsed.Value("action"); ok {
		return a.musicAction(ctx, channelID, userID, strings.ToLower(action))
	}
	if parsed.Empty() {
		return a.renderQueue(channelID)
	}

	var lines []string

	if parsed.Has("init") {
		if err := a.music.Initialize(channelID); err != nil {
			return fmt.Sprintf("Could not initialize the playlist: %v", err)
		}
		lines = append(lines, "Playlist initialized.")
	}

	if urls, ok := parsed.Value("youtube"); ok {
		mode := music.InsertAndPlay
		verb := "Playing"
		if parsed.Has("queue") {
			mode = music.Queue
			verb = "Queued"
		}
		// URLs contain no spaces, so a joined multi-URL capture splits
		// cleanly back into one location per entry.
		locations := strings.Fields(urls)
		p, err := a.music.AddEntries(channelID, locations, mode)
		if err != nil {
			return fmt.Sprintf("Could not add entries: %v", err)
		}
		cur, _ := p.Current()
		lines = append(lines, fmt.Sprintf("%s %d entr%s. Now at %s.",
			verb, len(locations), pluralY(len(locations)), cur.Location))
	}

	for _, action := range []string{"play", "pause", "stop", "next", "prev", "name"} {
		if parsed.Has(action) {
			lines = append(lines, a.musicAction(ctx, channelID, userID, action))
		}
	}

	return strings.Join(lines, "\n")
}

func (a *Assistant) musicAction(ctx context.Context, channelID, userID, action string) string {
	switch action {
	case "init", "initialize":
		if err := a.music.Initialize(channelID); err != nil {
			return fmt.Sprintf("Could not initialize the playlist: %v", err)
		}
		return "Playlist initialized."

	case "play":
		cur, err := a.music.Current(channelID)
		if errors.Is(err, music.ErrEmptyQueue) {
			return "The playlist is empty. Add something with -y <url>."
		}
		if err != nil {
			return fmt.Sprintf("Could not read the playlist: %v", err)
		}
		voiceChannelID := ""
		if vc, ok := a.channel.(channels.VoiceChannel); ok {
			id, err := vc.JoinVoice(ctx, channelID, userID)
			if err != nil {
				return fmt.Sprintf("Could not join voice: %v", err)
			}
			voiceChannelID = id
		}
		if err := a.music.SetStatus(channelID, true, voiceChannelID); err != nil {
			a.logger.Warn("recording play status failed", "channel", channelID, "error", err)
		}
		return "Playing " + cur.Location + "."

	case "pause":
		if err := a.music.SetStatus(channelID, false, ""); err != nil {
			a.logger.Warn("recording pause status failed", "channel", channelID, "error", err)
		}
		return "Paused."

	case "stop":
		if vc, ok := a.channel.(channels.VoiceChannel); ok {
			if err := vc.LeaveVoice(channelID); err != nil {
				a.logger.Warn("leaving voice failed", "channel", channelID, "error", err)
			}
		}
		if err := a.music.SetStatus(channelID, false, ""); err != nil {
			a.logger.Warn("recording stop status failed", "channel", channelID, "error", err)
		}
		return "Stopped."

	case "next", "n":
		entry, err := a.music.Next(channelID)
		switch {
		case errors.Is(err, music.ErrEndOfQueue):
			return "Already at the end of the queue."
		case errors.Is(err, music.ErrEmptyQueue):
			return "The playlist is empty."
		case err != nil:
			return fmt.Sprintf("Could not advance: %v", err)
		}
		return "Now at " + entry.Location + "."

	case "prev", "previous":
		entry, err := a.music.Previous(channelID)
		switch {
		case errors.Is(err, music.ErrStartOfQueue):
			return "Already at the start of the queue."
		case errors.Is(err, music.ErrEmptyQueue):
			return "The playlist is empty."
		case err != nil:
			return fmt.Sprintf("Could not go back: %v", err)
		}
		return "Now at " + entry.Location + "."

	case "name":
		cur, err := a.music.Current(channelID)
		if errors.Is(err, music.ErrEmptyQueue) {
			return "The playlist is empty."
		}
		if err != nil {
			return fmt.Sprintf("Could not read the playlist: %v", err)
		}
		return fmt.Sprintf("Current entry: %s (%s)", cur.Location, cur.Kind)

	default:
		return fmt.Sprintf("Unknown music action %q.", action)
	}
}

func (a *Assistant) renderQueue(channelID string) string {
	p, err := a.music.Snapshot(channelID)
	if err != nil {
		return fmt.Sprintf("Could not read the playlist: %v", err)
	}
	if len(p.Entries) == 0 {
		return "The playlist is empty. Add something with -y <url>."
	}
	return renderPlaylist(p)
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
