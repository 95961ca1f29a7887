package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jholhewres/barkeep/pkg/barkeep/bot"
	"github.com/jholhewres/barkeep/pkg/barkeep/channels/discord"
	"github.com/jholhewres/barkeep/pkg/barkeep/clip"
	"github.com/jholhewres/barkeep/pkg/barkeep/music"
	"github.com/jholhewres/barkeep/pkg/barkeep/provider"
	"github.com/jholhewres/barkeep/pkg/barkeep/search"
	"github.com/jholhewres/barkeep/pkg/barkeep/session"
)

// newServeCmd creates the `barkeep serve` command that runs the bot.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and process commands",
		Long: `Start barkeep: connect to the Discord gateway, open the session
database, and dispatch chat commands until interrupted.

Examples:
  barkeep serve
  barkeep serve --config ./config.yaml --verbose`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := bot.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd)

	// ── Storage ──
	db, err := session.OpenSQLite(filepath.Join(cfg.DataDir, "barkeep.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	locks := session.NewChannelLocks()
	sessions := session.NewStore(db, locks, logger)

	// ── Providers ──
	registry := provider.NewRegistry(
		provider.NewOpenAIClient("chatgpt", cfg.Providers.ChatGPT.BaseURL,
			provider.ResolveKey("chatgpt", cfg.Providers.ChatGPT.APIKey, logger), logger),
		provider.NewOpenAIClient("deepseek", cfg.Providers.DeepSeek.BaseURL,
			provider.ResolveKey("deepseek", cfg.Providers.DeepSeek.APIKey, logger), logger),
		provider.NewGeminiClient(cfg.Providers.Gemini.BaseURL,
			provider.ResolveKey("gemini", cfg.Providers.Gemini.APIKey, logger), logger),
	)
	catalog := provider.NewCatalog(registry, filepath.Join(cfg.DataDir, "models.json"), logger)

	// ── Engines ──
	musicEngine := music.NewEngine(filepath.Join(cfg.DataDir, "playlists"), db, locks, logger)
	extractor := &clip.CommandExtractor{
		Dir:        filepath.Join(cfg.DataDir, "clips"),
		YTDLPPath:  cfg.Clip.YTDLPPath,
		FFmpegPath: cfg.Clip.FFmpegPath,
	}
	clipEngine := clip.NewEngine(extractor, locks, logger)

	// ── Search ──
	var wolfram *search.WolframClient
	if appID := firstNonEmpty(os.Getenv("WOLFRAM_APP_ID"), cfg.Search.WolframAppID); appID != "" {
		wolfram = search.NewWolframClient(appID, logger)
	}
	var google *search.GoogleClient
	apiKey := firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), cfg.Search.GoogleAPIKey)
	engineID := firstNonEmpty(os.Getenv("GOOGLE_ENGINE_ID"), cfg.Search.GoogleEngineID)
	if apiKey != "" && engineID != "" {
		google = search.NewGoogleClient(apiKey, engineID, logger)
	}

	// ── Transport ──
	dc := discord.New(cfg.Discord, logger)

	assistant := bot.New(bot.Options{
		Prefix:   cfg.Prefix,
		Channel:  dc,
		Sessions: sessions,
		Registry: registry,
		Catalog:  catalog,
		Music:    musicEngine,
		Clips:    clipEngine,
		DB:       db,
		Wolfram:  wolfram,
		Google:   google,
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dc.Connect(ctx); err != nil {
		return err
	}
	defer dc.Disconnect()

	// Sweep idle session histories on the hour.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@hourly", func() { sessions.SweepExpired() }); err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	go func() {
		if err := assistant.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("assistant stopped", "error", err)
			cancel()
		}
	}()

	logger.Info("barkeep running, press Ctrl+C to stop", "prefix", cfg.Prefix)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Info("shutdown signal received, stopping")
	case <-ctx.Done():
	}
	return nil
}

// newLogger builds the process logger: human-readable on a terminal,
// JSON otherwise.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
