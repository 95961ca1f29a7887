// Package discord implements the Discord transport for barkeep using
// discordgo: text messages with 2000-character splitting, file uploads
// against the guild's boost-tier limit, and voice channel join/leave for
// music playback.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/jholhewres/barkeep/pkg/barkeep/channels"
	"github.com/jholhewres/barkeep/pkg/barkeep/clip"
)

// Config holds Discord transport configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// AllowedGuilds restricts which guild IDs the bot responds in.
	// Empty means all guilds.
	AllowedGuilds []string `yaml:"allowed_guilds"`

	// AllowedChannels restricts which channel IDs the bot responds in.
	// Empty means all channels.
	AllowedChannels []string `yaml:"allowed_channels"`
}

// Discord implements channels.Channel, channels.FileChannel and
// channels.VoiceChannel.
type Discord struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session

	messages  chan *channels.IncomingMessage
	connected atomic.Bool

	// voice tracks the active voice connection per guild.
	voiceMu sync.Mutex
	voice   map[string]*discordgo.VoiceConnection
}

// New creates a Discord transport.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:      cfg,
		logger:   logger.With("component", "discord"),
		messages: make(chan *channels.IncomingMessage, 256),
		voice:    make(map[string]*discordgo.VoiceConnection),
	}
}

// Name returns "discord".
func (d *Discord) Name() string { return "discord" }

// Connect opens the Discord gateway connection.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	session.AddHandler(d.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}
	d.session = session
	d.connected.Store(true)

	user := session.State.User
	d.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)
	return nil
}

// Disconnect leaves all voice channels and closes the gateway.
func (d *Discord) Disconnect() error {
	d.voiceMu.Lock()
	for guild, vc := range d.voice {
		vc.Disconnect()
		delete(d.voice, guild)
	}
	d.voiceMu.Unlock()

	if d.session != nil {
		d.session.Close()
	}
	d.connected.Store(false)
	d.logger.Info("discord: disconnected")
	return nil
}

// Send delivers a text message, splitting it into chunks when it exceeds
// Discord's 2000-character limit.
func (d *Discord) Send(ctx context.Context, to string, message *channels.OutgoingMessage) error {
	if d.session == nil {
		return channels.ErrDisconnected
	}
	for i, chunk := range splitMessage(message.Content, 2000) {
		msgSend := &discordgo.MessageSend{Content: chunk}
		if i == 0 && message.ReplyTo != "" {
			msgSend.Reference = &discordgo.MessageReference{MessageID: message.ReplyTo}
		}
		if _, err := d.session.ChannelMessageSendComplex(to, msgSend); err != nil {
			return err
		}
	}
	return nil
}

// Receive returns the incoming messages channel.
func (d *Discord) Receive() <-chan *channels.IncomingMessage {
	return d.messages
}

// IsConnected reports whether the gateway is open.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// SendFile uploads a local file to the channel.
func (d *Discord) SendFile(ctx context.Context, to, path, caption string) error {
	if d.session == nil {
		return channels.ErrDisconnected
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("discord: opening file: %w", err)
	}
	defer f.Close()

	msgSend := &discordgo.MessageSend{
		Content: caption,
		Files:   []*discordgo.File{{Name: filepath.Base(path), Reader: f}},
	}
	_, err = d.session.ChannelMessageSendComplex(to, msgSend)
	return err
}

// UploadLimitMB returns the upload ceiling for the channel's guild,
// derived from its boost tier. DMs and unknown guilds get the base tier.
func (d *Discord) UploadLimitMB(chatID string) float64 {
	tier := 0
	if d.session != nil {
		if ch, err := d.session.State.Channel(chatID); err == nil && ch.GuildID != "" {
			if guild, err := d.session.State.Guild(ch.GuildID); err == nil {
				tier = int(guild.PremiumTier)
			}
		}
	}
	return clip.TierLimitMB(tier)
}

// JoinVoice connects to the voice channel the user currently occupies
// and returns its id.
func (d *Discord) JoinVoice(ctx context.Context, chatID, userID string) (string, error) {
	if d.session == nil {
		return "", channels.ErrDisconnected
	}
	ch, err := d.session.State.Channel(chatID)
	if err != nil || ch.GuildID == "" {
		return "", fmt.Errorf("discord: %s is not a guild channel", chatID)
	}
	guild, err := d.session.State.Guild(ch.GuildID)
	if err != nil {
		return "", fmt.Errorf("discord: resolving guild: %w", err)
	}

	voiceChannelID := ""
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			voiceChannelID = vs.ChannelID
			break
		}
	}
	if voiceChannelID == "" {
		return "", fmt.Errorf("discord: user is not in a voice channel")
	}

	vc, err := d.session.ChannelVoiceJoin(ch.GuildID, voiceChannelID, false, true)
	if err != nil {
		return "", fmt.Errorf("discord: joining voice: %w", err)
	}
	d.voiceMu.Lock()
	d.voice[ch.GuildID] = vc
	d.voiceMu.Unlock()
	d.logger.Info("discord: joined voice", "guild", ch.GuildID, "voice_channel", voiceChannelID)
	return voiceChannelID, nil
}

// LeaveVoice disconnects from voice in the chat's guild. It is a no-op
// when not connected.
func (d *Discord) LeaveVoice(chatID string) error {
	if d.session == nil {
		return nil
	}
	ch, err := d.session.State.Channel(chatID)
	if err != nil || ch.GuildID == "" {
		return nil
	}
	d.voiceMu.Lock()
	defer d.voiceMu.Unlock()
	if vc, ok := d.voice[ch.GuildID]; ok {
		delete(d.voice, ch.GuildID)
		return vc.Disconnect()
	}
	return nil
}

func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if len(d.cfg.AllowedGuilds) > 0 && m.GuildID != "" && !contains(d.cfg.AllowedGuilds, m.GuildID) {
		return
	}
	if len(d.cfg.AllowedChannels) > 0 && !contains(d.cfg.AllowedChannels, m.ChannelID) {
		return
	}

	incoming := &channels.IncomingMessage{
		ID:        m.ID,
		Channel:   "discord",
		From:      m.Author.ID,
		FromName:  m.Author.Username,
		ChatID:    m.ChannelID,
		IsGroup:   m.GuildID != "",
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.ReferencedMessage != nil {
		incoming.ReplyTo = m.ReferencedMessage.ID
	}

	select {
	case d.messages <- incoming:
	default:
		d.logger.Warn("discord: message buffer full, dropping message", "msg_id", incoming.ID)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// splitMessage splits text into chunks under maxLen, preferring to cut
// at a newline in the second half of the chunk.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for len(text) > maxLen {
		cut := maxLen
		if nl := strings.LastIndex(text[:maxLen], "\n"); nl > maxLen/2 {
			cut = nl + 1
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return append(chunks, text)
}

var (
	_ channels.Channel      = (*Discord)(nil)
	_ channels.FileChannel  = (*Discord)(nil)
	_ channels.VoiceChannel = (*Discord)(nil)
)
