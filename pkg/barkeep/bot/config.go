// Package bot wires the command front end together: the message loop,
// the dispatcher, and the per-command handlers.
package bot

import (
	"fmt"

	"github.com/jholhewres/barkeep/pkg/barkeep/channels/discord"
)

// Config is barkeep's full runtime configuration.
type Config struct {
	// Prefix introduces a command, e.g. "$" for "$chat".
	Prefix string `yaml:"prefix"`

	// DataDir holds the database, playlists, clips and catalog snapshot.
	DataDir string `yaml:"data_dir"`

	Discord   discord.Config  `yaml:"discord"`
	Providers ProvidersConfig `yaml:"providers"`
	Search    SearchConfig    `yaml:"search"`
	Clip      ClipConfig      `yaml:"clip"`
}

// ProvidersConfig holds the chat completion backends' credentials.
// Empty keys fall back to environment variables and the OS keyring.
type ProvidersConfig struct {
	ChatGPT  ProviderConfig `yaml:"chatgpt"`
	DeepSeek ProviderConfig `yaml:"deepseek"`
	Gemini   ProviderConfig `yaml:"gemini"`
}

// ProviderConfig configures one backend.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SearchConfig holds the wolfram/google credentials.
type SearchConfig struct {
	WolframAppID   string `yaml:"wolfram_app_id"`
	GoogleAPIKey   string `yaml:"google_api_key"`
	GoogleEngineID string `yaml:"google_engine_id"`
}

// ClipConfig configures clip extraction.
type ClipConfig struct {
	YTDLPPath  string `yaml:"ytdlp_path"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Prefix:  "$",
		DataDir: "data",
		Providers: ProvidersConfig{
			ChatGPT:  ProviderConfig{BaseURL: "https://api.openai.com/v1"},
			DeepSeek: ProviderConfig{BaseURL: "https://api.deepseek.com/v1"},
		},
	}
}

// Validate checks the settings a running bot cannot do without.
func (c *Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("prefix must not be empty")
	}
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token is required (set DISCORD_TOKEN or the config value)")
	}
	return nil
}
