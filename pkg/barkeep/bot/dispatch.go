package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jholhewres/barkeep/pkg/barkeep/command"
	"github.com/jholhewres/barkeep/pkg/barkeep/provider"
	"github.com/jholhewres/barkeep/pkg/barkeep/session"
)

// chatIntent is the validated form of one $chat invocation. Everything
// is resolved before any session mutation happens, so a command either
// applies completely or not at all.
type chatIntent struct {
	setProvider  string
	setModel     string
	promptIndex  *int
	customPrompt string
	clear        bool
	listen       *bool
	message      string
	listModels   bool
	listPrompts  bool
	showPrompt   bool
	status       bool
}

// HandleChat applies a parsed $chat command. Mutations run in a fixed
// order regardless of flag order: provider/model, prompt, clear, listen,
// send, status. A send failure never rolls back configuration changes
// applied before it.
func (a *Assistant) HandleChat(ctx context.Context, channelID string, parsed *command.Parsed) string {
	if len(parsed.Errors) > 0 {
		return command.FormatErrors(parsed.Errors)
	}

	intent, errs := a.resolveChatIntent(ctx, channelID, parsed)
	if len(errs) > 0 {
		return command.FormatErrors(errs)
	}

	var lines []string

	// Steps 1-4 commit as one session mutation, in dispatch order.
	if intent.mutatesSession() {
		sess, err := a.sessions.Mutate(channelID, func(s *session.ChannelSession) error {
			if intent.setProvider != "" {
				s.Provider = intent.setProvider
				if intent.setModel == "" {
					// Switching providers without naming a model keeps the
					// old model only if the new provider serves it.
					s.Model = a.defaultModelFor(ctx, intent.setProvider, s.Model)
				}
			}
			if intent.setModel != "" {
				s.Model = intent.setModel
			}
			if intent.promptIndex != nil {
				s.PromptIndex = *intent.promptIndex
				s.CustomPrompt = ""
			}
			if intent.customPrompt != "" {
				s.CustomPrompt = intent.customPrompt
			}
			if intent.clear {
				s.ClearHistory(s.Provider)
			}
			if intent.listen != nil {
				s.ListenMode = *intent.listen
			}
			return nil
		})
		if err != nil {
			return fmt.Sprintf("Could not update settings: %v", err)
		}
		lines = append(lines, intent.describeMutations(sess)...)
	}

	// Step 5: send. The provider call runs outside the channel lock; the
	// reply is committed with a second short mutation.
	if intent.message != "" {
		reply, err := a.sendChat(ctx, channelID, intent.message)
		if err != nil {
			lines = append(lines, fmt.Sprintf("Message failed: %v", err))
		} else {
			lines = append(lines, reply)
		}
	}

	// Step 6: rendering-only surfaces.
	if intent.listModels {
		sess, err := a.sessions.Get(channelID)
		if err == nil {
			if models, mErr := a.catalog.Models(ctx, sess.Provider); mErr == nil {
				lines = append(lines, renderModels(sess.Provider, sess.Model, models))
			} else {
				lines = append(lines, fmt.Sprintf("Could not list models: %v", mErr))
			}
		}
	}
	if intent.listPrompts {
		lines = append(lines, renderPrompts())
	}
	if intent.showPrompt {
		sess, err := a.sessions.Get(channelID)
		if err != nil {
			return fmt.Sprintf("Could not read settings: %v", err)
		}
		lines = append(lines, fenced(provider.ActivePrompt(sess.PromptIndex, sess.CustomPrompt)))
	}
	if intent.status {
		sess, err := a.sessions.Get(channelID)
		if err != nil {
			return fmt.Sprintf("Could not read settings: %v", err)
		}
		lines = append(lines, renderStatus(sess))
	}

	return strings.Join(lines, "\n")
}

func (i chatIntent) mutatesSession() bool {
	return i.setProvider != "" || i.setModel != "" || i.promptIndex != nil ||
		i.customPrompt != "" || i.clear || i.listen != nil
}

func (i chatIntent) describeMutations(sess session.ChannelSession) []string {
	var lines []string
	if i.setProvider != "" || i.setModel != "" {
		lines = append(lines, fmt.Sprintf("Now using %s (%s).", sess.Provider, sess.Model))
	}
	if i.promptIndex != nil {
		if p, ok := provider.PromptByIndex(*i.promptIndex); ok {
			lines = append(lines, fmt.Sprintf("Prompt set to %q.", p.Name))
		}
	}
	if i.customPrompt != "" {
		lines = append(lines, "Custom prompt set.")
	}
	if i.clear {
		lines = append(lines, fmt.Sprintf("History cleared for %s.", sess.Provider))
	}
	if i.listen != nil {
		if *i.listen {
			lines = append(lines, "Listening to every message in this channel.")
		} else {
			lines = append(lines, "Listen mode off.")
		}
	}
	return lines
}

// resolveChatIntent validates every bound flag against the registry,
// catalog and preset table. All problems are reported together; a
// command with any validation error applies nothing.
func (a *Assistant) resolveChatIntent(ctx context.Context, channelID string, parsed *command.Parsed) (chatIntent, []command.ParseError) {
	var intent chatIntent
	var errs []command.ParseError

	fail := func(format string, args ...any) {
		errs = append(errs, command.ParseError{
			Code:    command.ErrValidation,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if parsed.Has("llm") {
		name, _ := parsed.Value("llm")
		if !a.registry.Has(name) {
			fail("unknown provider %q (available: %s)", name, strings.Join(a.registry.Names(), ", "))
		} else {
			intent.setProvider = name
		}
	}

	if parsed.Has("model") {
		model, _ := parsed.Value("model")
		providerName := intent.setProvider
		if providerName == "" {
			sess, err := a.sessions.Get(channelID)
			if err != nil {
				fail("could not read settings: %v", err)
			} else {
				providerName = sess.Provider
			}
		}
		if providerName != "" {
			ok, err := a.catalog.HasModel(ctx, providerName, model)
			switch {
			case err != nil:
				// Catalog unreachable; model selection stays best-effort.
				intent.setModel = model
			case !ok:
				fail("unknown model %q for %s (see %schat -models)", model, providerName, a.prefix)
			default:
				intent.setModel = model
			}
		}
	}

	if parsed.Has("prompt") {
		raw, _ := parsed.Value("prompt")
		raw = strings.TrimPrefix(raw, "set ")
		if raw == "list" {
			intent.listPrompts = true
		} else if raw == "show" {
			intent.showPrompt = true
		} else if idx, err := strconv.Atoi(raw); err == nil {
			if _, ok := provider.PromptByIndex(idx); !ok {
				fail("prompt index %d out of range (0-%d)", idx, len(provider.Presets)-1)
			} else {
				intent.promptIndex = &idx
			}
		} else {
			intent.customPrompt = raw
		}
	}

	intent.clear = parsed.Has("clear")

	if parsed.Has("listen") {
		raw, _ := parsed.Value("listen")
		switch strings.ToLower(raw) {
		case "on", "true", "yes", "1":
			v := true
			intent.listen = &v
		case "off", "false", "no", "0":
			v := false
			intent.listen = &v
		default:
			fail("listen takes on or off, got %q", raw)
		}
	}

	intent.message, _ = parsed.Value("send")
	intent.listModels = parsed.Has("models")
	intent.status = parsed.Has("status")

	// A bare $chat with nothing bound renders the channel status.
	if !intent.mutatesSession() && intent.message == "" && !intent.listModels &&
		!intent.listPrompts && !intent.showPrompt && !intent.status {
		intent.status = true
	}

	return intent, errs
}

// defaultModelFor picks the model to pair with a newly selected
// provider: the current model if the provider serves it, otherwise the
// provider's conventional default.
func (a *Assistant) defaultModelFor(ctx context.Context, providerName, currentModel string) string {
	if ok, err := a.catalog.HasModel(ctx, providerName, currentModel); err == nil && ok {
		return currentModel
	}
	switch providerName {
	case "chatgpt":
		return session.DefaultModel
	case "deepseek":
		return "deepseek-chat"
	case "gemini":
		return "gemini-pro"
	default:
		return currentModel
	}
}

// sendChat records the user message, calls the provider outside the
// channel lock, and commits the reply.
func (a *Assistant) sendChat(ctx context.Context, channelID, message string) (string, error) {
	sess, err := a.sessions.Mutate(channelID, func(s *session.ChannelSession) error {
		s.AppendMessage(s.Provider, "user", message, a.now())
		return nil
	})
	if err != nil {
		return "", err
	}

	p, err := a.registry.Get(sess.Provider)
	if err != nil {
		return "", err
	}
	history := make([]provider.Message, 0, len(sess.History(sess.Provider)))
	for _, m := range sess.History(sess.Provider) {
		history = append(history, provider.Message{Role: m.Role, Content: m.Content})
	}
	systemPrompt := provider.ActivePrompt(sess.PromptIndex, sess.CustomPrompt)

	reply, err := p.Complete(ctx, sess.Model, systemPrompt, history)
	if err != nil {
		return "", err
	}

	if _, err := a.sessions.Mutate(channelID, func(s *session.ChannelSession) error {
		s.AppendMessage(s.Provider, "assistant", reply, a.now())
		return nil
	}); err != nil {
		a.logger.Warn("could not record reply", "channel", channelID, "error", err)
	}
	return reply, nil
}
