package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jholhewres/barkeep/pkg/barkeep/channels"
	"github.com/jholhewres/barkeep/pkg/barkeep/clip"
	"github.com/jholhewres/barkeep/pkg/barkeep/command"
	"github.com/jholhewres/barkeep/pkg/barkeep/music"
	"github.com/jholhewres/barkeep/pkg/barkeep/provider"
	"github.com/jholhewres/barkeep/pkg/barkeep/search"
	"github.com/jholhewres/barkeep/pkg/barkeep/session"
)

// Assistant runs the command loop: it reads messages from the transport,
// parses commands, dispatches them against the engines, and sends the
// rendered responses back. Each message is handled on its own goroutine;
// per-channel consistency comes from the shared channel lock domain, not
// from the loop.
type Assistant struct {
	prefix   string
	channel  channels.Channel
	sessions *session.Store
	registry *provider.Registry
	catalog  *provider.Catalog
	music    *music.Engine
	clips    *clip.Engine
	db       *session.SQLiteStore
	wolfram  *search.WolframClient
	google   *search.GoogleClient
	logger   *slog.Logger
	now      func() time.Time
}

// Options collects the engines the assistant dispatches to.
type Options struct {
	Prefix   string
	Channel  channels.Channel
	Sessions *session.Store
	Registry *provider.Registry
	Catalog  *provider.Catalog
	Music    *music.Engine
	Clips    *clip.Engine
	DB       *session.SQLiteStore
	Wolfram  *search.WolframClient
	Google   *search.GoogleClient
	Logger   *slog.Logger
}

// New creates an assistant from the wired engines.
func New(opts Options) *Assistant {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "$"
	}
	return &Assistant{
		prefix:   prefix,
		channel:  opts.Channel,
		sessions: opts.Sessions,
		registry: opts.Registry,
		catalog:  opts.Catalog,
		music:    opts.Music,
		clips:    opts.Clips,
		db:       opts.DB,
		wolfram:  opts.Wolfram,
		google:   opts.Google,
		logger:   logger.With("component", "assistant"),
		now:      time.Now,
	}
}

// Run consumes incoming messages until the context is cancelled or the
// transport closes its receive channel.
func (a *Assistant) Run(ctx context.Context) error {
	a.logger.Info("assistant running", "prefix", a.prefix, "channel", a.channel.Name())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-a.channel.Receive():
			if !ok {
				return nil
			}
			go a.handleMessage(ctx, msg)
		}
	}
}

// handleMessage routes one incoming message. A panic in a handler is
// confined to that message; it must never take down the loop.
func (a *Assistant) handleMessage(ctx context.Context, msg *channels.IncomingMessage) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("handler panicked", "channel", msg.ChatID, "panic", r)
		}
	}()

	response := a.Dispatch(ctx, msg)
	if response == "" {
		return
	}
	out := &channels.OutgoingMessage{Content: response, ReplyTo: msg.ID}
	if err := a.channel.Send(ctx, msg.ChatID, out); err != nil {
		a.logger.Error("sending response failed", "channel", msg.ChatID, "error", err)
	}
}

// Dispatch parses the message and runs the matching command handler,
// returning the rendered response. Non-command messages return "" unless
// the channel is in listen mode, in which case they are sent to the
// active provider like a $chat -send.
func (a *Assistant) Dispatch(ctx context.Context, msg *channels.IncomingMessage) string {
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return ""
	}

	if !strings.HasPrefix(text, a.prefix) {
		return a.handleListen(ctx, msg.ChatID, text)
	}

	name, rest := splitCommand(strings.TrimPrefix(text, a.prefix))
	a.logger.Info("command received", "channel", msg.ChatID, "command", name, "from", msg.From)

	switch name {
	case "chat":
		return a.HandleChat(ctx, msg.ChatID, command.Parse(&command.ChatSchema, rest))
	case "music":
		return a.HandleMusic(ctx, msg.ChatID, msg.From, command.Parse(&command.MusicSchema, rest))
	case "clip":
		return a.HandleClip(ctx, msg.ChatID, command.Parse(&command.ClipSchema, rest))
	case "wolfram":
		return a.HandleWolfram(ctx, msg.ChatID, command.Parse(&command.WolframSchema, rest))
	case "google":
		return a.HandleGoogle(ctx, msg.ChatID, command.Parse(&command.GoogleSchema, rest))
	case "db":
		return a.HandleDB(ctx, msg.ChatID, command.Parse(&command.DBSchema, rest))
	// Legacy single-word forms.
	case "dbStats":
		return a.HandleDB(ctx, msg.ChatID, command.Parse(&command.DBSchema, "-stats"))
	case "dbExport":
		return a.HandleDB(ctx, msg.ChatID, command.Parse(&command.DBSchema, "-export"))
	case "dbImport":
		return a.HandleDB(ctx, msg.ChatID, command.Parse(&command.DBSchema, "-import"))
	case "remindMeIn", "remind":
		return a.HandleRemind(ctx, msg.ChatID, command.Parse(&command.RemindSchema, rest))
	case "help", "":
		return renderHelp(a.prefix)
	default:
		return "Unknown command " + a.prefix + name + ". Try " + a.prefix + "help."
	}
}

// handleListen forwards plain messages to the provider when the channel
// has listen mode on.
func (a *Assistant) handleListen(ctx context.Context, channelID, text string) string {
	sess, err := a.sessions.Get(channelID)
	if err != nil || !sess.ListenMode {
		return ""
	}
	reply, err := a.sendChat(ctx, channelID, text)
	if err != nil {
		a.logger.Warn("listen-mode completion failed", "channel", channelID, "error", err)
		return ""
	}
	return reply
}

// splitCommand separates the command name from its argument text.
func splitCommand(s string) (name, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
