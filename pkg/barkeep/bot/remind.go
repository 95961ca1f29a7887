package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jholhewres/barkeep/pkg/barkeep/channels"
	"github.com/jholhewres/barkeep/pkg/barkeep/command"
)

// HandleRemind schedules a one-shot reminder: "$remindMeIn 5 take a
// break" pings the channel in five minutes. Durations also accept Go
// syntax ("90s", "1h30m"). Reminders are in-memory only and do not
// survive a restart.
func (a *Assistant) HandleRemind(ctx context.Context, channelID string, parsed *command.Parsed) string {
	if len(parsed.Errors) > 0 {
		return command.FormatErrors(parsed.Errors)
	}

	raw, ok := parsed.Value("time")
	if !ok {
		return "When? Try " + a.prefix + "remindMeIn 5 take a break."
	}
	d, err := parseReminderDelay(raw)
	if err != nil {
		return command.FormatErrors([]command.ParseError{{
			Code: command.ErrValidation, Message: err.Error(),
		}})
	}

	message, _ := parsed.Value("message")
	if message == "" {
		message = "Reminder!"
	}

	id := uuid.NewString()
	time.AfterFunc(d, func() {
		out := &channels.OutgoingMessage{Content: "⏰ " + message}
		if err := a.channel.Send(context.Background(), channelID, out); err != nil {
			a.logger.Warn("sending reminder failed", "channel", channelID, "reminder", id, "error", err)
		}
	})
	a.logger.Info("reminder scheduled", "channel", channelID, "reminder", id, "in", d)
	return fmt.Sprintf("Will remind you in %s.", d)
}

// parseReminderDelay reads either a bare minute count or a Go duration.
func parseReminderDelay(raw string) (time.Duration, error) {
	if minutes, err := strconv.ParseFloat(raw, 64); err == nil {
		if minutes <= 0 {
			return 0, fmt.Errorf("the delay must be positive, got %q", raw)
		}
		return time.Duration(minutes * float64(time.Minute)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("could not read %q as minutes or a duration like 1h30m", raw)
	}
	return d, nil
}
