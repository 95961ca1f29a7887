package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jholhewres/barkeep/pkg/barkeep/channels"
	"github.com/jholhewres/barkeep/pkg/barkeep/clip"
	"github.com/jholhewres/barkeep/pkg/barkeep/command"
	"github.com/jholhewres/barkeep/pkg/barkeep/music"
	"github.com/jholhewres/barkeep/pkg/barkeep/provider"
	"github.com/jholhewres/barkeep/pkg/barkeep/session"
)

type fakeProvider struct {
	name    string
	models  []string
	reply   string
	err     error
	history []provider.Message
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, _ string, _ string, history []provider.Message) (string, error) {
	f.history = append([]provider.Message(nil), history...)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) ListModels(context.Context) ([]string, error) {
	return f.models, nil
}

type fakeChannel struct {
	sent []string
	in   chan *channels.IncomingMessage
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{in: make(chan *channels.IncomingMessage, 8)}
}

func (f *fakeChannel) Name() string                  { return "fake" }
func (f *fakeChannel) Connect(context.Context) error { return nil }
func (f *fakeChannel) Disconnect() error             { return nil }
func (f *fakeChannel) IsConnected() bool             { return true }

func (f *fakeChannel) Send(_ context.Context, _ string, m *channels.OutgoingMessage) error {
	f.sent = append(f.sent, m.Content)
	return nil
}

func (f *fakeChannel) Receive() <-chan *channels.IncomingMessage { return f.in }

type fakeExtractor struct {
	calls int
}

func (f *fakeExtractor) Extract(context.Context, clip.Spec) (string, error) {
	f.calls++
	return "/tmp/clip.mp4", nil
}

type fixture struct {
	assistant *Assistant
	chatgpt   *fakeProvider
	gemini    *fakeProvider
	channel   *fakeChannel
	sessions  *session.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	chatgpt := &fakeProvider{name: "chatgpt", models: []string{"gpt-3.5-turbo", "gpt-4"}, reply: "chatgpt says hi"}
	gemini := &fakeProvider{name: "gemini", models: []string{"gemini-pro"}, reply: "gemini says hi"}
	registry := provider.NewRegistry(chatgpt, gemini)

	locks := session.NewChannelLocks()
	sessions := session.NewStore(nil, locks, nil)
	ch := newFakeChannel()

	a := New(Options{
		Prefix:   "$",
		Channel:  ch,
		Sessions: sessions,
		Registry: registry,
		Catalog:  provider.NewCatalog(registry, "", nil),
		Music:    music.NewEngine(t.TempDir(), nil, locks, nil),
		Clips:    clip.NewEngine(&fakeExtractor{}, locks, nil),
	})
	return &fixture{assistant: a, chatgpt: chatgpt, gemini: gemini, channel: ch, sessions: sessions}
}

func (fx *fixture) chat(t *testing.T, channelID, args string) string {
	t.Helper()
	return fx.assistant.HandleChat(context.Background(), channelID, command.Parse(&command.ChatSchema, args))
}

func TestChatEndToEnd(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	out := fx.chat(t, "chan", `-llm gemini -m gemini-pro -s "hello there"`)
	if !strings.Contains(out, "gemini") || !strings.Contains(out, "gemini says hi") {
		t.Errorf("output = %q", out)
	}

	sess, _ := fx.sessions.Get("chan")
	if sess.Provider != "gemini" || sess.Model != "gemini-pro" {
		t.Errorf("session = %s/%s", sess.Provider, sess.Model)
	}
	h := sess.History("gemini")
	if len(h) != 2 || h[0].Content != "hello there" || h[1].Role != "assistant" {
		t.Errorf("history = %+v", h)
	}
}

func TestChatFlagOrderIrrelevant(t *testing.T) {
	t.Parallel()
	orders := []string{
		`-llm gemini -m gemini-pro -p 1 -listen on -s "ping"`,
		`-s "ping" -listen on -p 1 -m gemini-pro -llm gemini`,
		`-p 1 -llm gemini -s "ping" -m gemini-pro -listen on`,
	}
	var states []session.ChannelSession
	for i, args := range orders {
		fx := newFixture(t)
		fx.chat(t, "chan", args)
		sess, _ := fx.sessions.Get("chan")
		states = append(states, sess)
		if i == 0 {
			continue
		}
		prev := states[0]
		if sess.Provider != prev.Provider || sess.Model != prev.Model ||
			sess.PromptIndex != prev.PromptIndex || sess.ListenMode != prev.ListenMode ||
			len(sess.History("gemini")) != len(prev.History("gemini")) {
			t.Errorf("order %d produced different state: %+v vs %+v", i, sess, prev)
		}
	}
}

func TestChatParseErrorsApplyNothing(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	// Unknown flag plus a valid provider switch: the whole command must
	// be rejected as a unit.
	out := fx.chat(t, "chan", `-llm gemini -bogus -s "hi"`)
	if !strings.Contains(out, "unknown flag") {
		t.Errorf("output = %q, want unknown flag error", out)
	}

	sess, _ := fx.sessions.Get("chan")
	if sess.Provider != session.DefaultProvider {
		t.Errorf("provider mutated to %s despite parse error", sess.Provider)
	}
	if fx.gemini.history != nil {
		t.Error("provider called despite parse error")
	}
}

func TestChatValidationErrorsAccumulate(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	out := fx.chat(t, "chan", `-llm claude -m fake-model -listen maybe`)
	for _, want := range []string{"unknown provider", "listen takes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, missing %q", out, want)
		}
	}
	sess, _ := fx.sessions.Get("chan")
	if sess.Provider != session.DefaultProvider || sess.ListenMode {
		t.Error("validation errors still mutated the session")
	}
}

func TestChatConfigPersistsWhenSendFails(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.gemini.err = errors.New("upstream on fire")

	out := fx.chat(t, "chan", `-llm gemini -m gemini-pro -s "hello"`)
	if !strings.Contains(out, "Message failed") {
		t.Errorf("output = %q, want send failure report", out)
	}

	// The provider/model switch committed before the send ran.
	sess, _ := fx.sessions.Get("chan")
	if sess.Provider != "gemini" || sess.Model != "gemini-pro" {
		t.Errorf("config rolled back: %s/%s", sess.Provider, sess.Model)
	}
}

func TestChatBareRendersStatus(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	out := fx.chat(t, "chan", "")
	for _, want := range []string{"chatgpt", "gpt-3.5-turbo", "listen"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output = %q, missing %q", out, want)
		}
	}
}

func TestChatPromptListAndShow(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	out := fx.chat(t, "chan", "-p list")
	for _, p := range provider.Presets {
		if !strings.Contains(out, p.Name) {
			t.Errorf("prompt list = %q, missing preset %q", out, p.Name)
		}
	}

	fx.chat(t, "chan", `-p "speak like a pirate"`)
	out = fx.chat(t, "chan", "-p show")
	if !strings.Contains(out, "speak like a pirate") {
		t.Errorf("prompt show = %q, want the custom prompt", out)
	}
}

func TestChatClearOnlyActiveProvider(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.chat(t, "chan", `-s "to chatgpt"`)
	fx.chat(t, "chan", `-llm gemini -s "to gemini"`)

	fx.chat(t, "chan", `-clear`)
	sess, _ := fx.sessions.Get("chan")
	if len(sess.History("gemini")) != 0 {
		t.Error("active provider history not cleared")
	}
	if len(sess.History("chatgpt")) == 0 {
		t.Error("clear wiped the inactive provider's history")
	}
}

func TestChatQuotedMessagePreserved(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.chat(t, "chan", `-s 'He said "hi" to me'`)

	sess, _ := fx.sessions.Get("chan")
	h := sess.History("chatgpt")
	if len(h) == 0 || h[0].Content != `He said "hi" to me` {
		t.Errorf("history = %+v", h)
	}
}

func TestDispatchRouting(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	msg := func(content string) *channels.IncomingMessage {
		return &channels.IncomingMessage{ChatID: "chan", From: "user-1", Content: content, Timestamp: time.Now()}
	}

	if out := fx.assistant.Dispatch(context.Background(), msg("$help")); !strings.Contains(out, "$chat") {
		t.Errorf("help output = %q", out)
	}
	if out := fx.assistant.Dispatch(context.Background(), msg("$bogus")); !strings.Contains(out, "Unknown command") {
		t.Errorf("unknown command output = %q", out)
	}
	if out := fx.assistant.Dispatch(context.Background(), msg("just chatting")); out != "" {
		t.Errorf("non-command produced output %q with listen off", out)
	}

	// Legacy single-word db forms route like their $db equivalents. The
	// fixture has no database, so reaching the handler is the signal.
	for _, legacy := range []string{"$dbStats", "$dbExport", "$dbImport"} {
		if out := fx.assistant.Dispatch(context.Background(), msg(legacy)); out != "No database configured." {
			t.Errorf("Dispatch(%s) = %q, want the db handler's reply", legacy, out)
		}
	}
}

func TestDispatchListenMode(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	fx.chat(t, "chan", `-listen on`)

	msg := &channels.IncomingMessage{ChatID: "chan", From: "user-1", Content: "what is up"}
	out := fx.assistant.Dispatch(context.Background(), msg)
	if out != "chatgpt says hi" {
		t.Errorf("listen-mode reply = %q", out)
	}

	sess, _ := fx.sessions.Get("chan")
	if len(sess.History("chatgpt")) != 2 {
		t.Errorf("listen-mode exchange not recorded: %v", sess.Histories)
	}
}

func TestMusicCommandFlow(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	run := func(args string) string {
		return fx.assistant.HandleMusic(context.Background(), "chan", "user-1",
			command.Parse(&command.MusicSchema, args))
	}

	run("-init")
	out := run("-y https://youtu.be/a https://youtu.be/b")
	if !strings.Contains(out, "https://youtu.be/a") {
		t.Errorf("add output = %q", out)
	}
	if out := run("-next"); !strings.Contains(out, "https://youtu.be/b") {
		t.Errorf("next output = %q", out)
	}
	if out := run("-next"); !strings.Contains(out, "end of the queue") {
		t.Errorf("end-of-queue output = %q", out)
	}
	// Legacy positional form.
	if out := run("previous"); !strings.Contains(out, "https://youtu.be/a") {
		t.Errorf("legacy prev output = %q", out)
	}
}

func TestMusicQueueModeKeepsCurrent(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	run := func(args string) string {
		return fx.assistant.HandleMusic(context.Background(), "chan", "user-1",
			command.Parse(&command.MusicSchema, args))
	}

	run("-y https://youtu.be/first")
	run("-y https://youtu.be/second -queue")
	if out := run("-name"); !strings.Contains(out, "first") {
		t.Errorf("queue mode moved the pointer: %q", out)
	}
}

func TestClipCommandFlow(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	run := func(args string) string {
		return fx.assistant.HandleClip(context.Background(), "chan",
			command.Parse(&command.ClipSchema, args))
	}

	out := run(`-u https://youtu.be/x -s 0:10 -e 0:25`)
	if !strings.Contains(out, "MB") || !strings.Contains(out, "-confirm") {
		t.Errorf("preview output = %q", out)
	}

	out = run(`-clip 1 -r 360`)
	if !strings.Contains(out, "360p") {
		t.Errorf("adjust output = %q", out)
	}

	out = run(`-confirm`)
	if !strings.Contains(out, "Clip 1 done") {
		t.Errorf("confirm output = %q", out)
	}

	// The job is consumed; a second confirm is a state conflict.
	if out := run(`-confirm`); !strings.Contains(out, "No clip job pending") {
		t.Errorf("confirm-after-confirm output = %q", out)
	}
}

func TestClipMismatchedTriples(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	out := fx.assistant.HandleClip(context.Background(), "chan",
		command.Parse(&command.ClipSchema, `-u https://youtu.be/x -s 0:10`))
	if !strings.Contains(out, "matching") {
		t.Errorf("output = %q", out)
	}
}

func TestParseReminderDelay(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"5", 5 * time.Minute, true},
		{"0.5", 30 * time.Second, true},
		{"90s", 90 * time.Second, true},
		{"1h30m", 90 * time.Minute, true},
		{"-5", 0, false},
		{"soon", 0, false},
	}
	for _, tc := range cases {
		got, err := parseReminderDelay(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("parseReminderDelay(%q) err = %v", tc.in, err)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("parseReminderDelay(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct{ in, name, rest string }{
		{"chat -s hi", "chat", "-s hi"},
		{"help", "help", ""},
		{"  music   -play  ", "music", "-play"},
	} {
		name, rest := splitCommand(tc.in)
		if name != tc.name || rest != tc.rest {
			t.Errorf("splitCommand(%q) = %q, %q", tc.in, name, rest)
		}
	}
}
