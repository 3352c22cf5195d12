package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerpal/ledgerpal/internal/extract"
	"github.com/ledgerpal/ledgerpal/internal/gateway"
	"github.com/ledgerpal/ledgerpal/internal/intent"
	"github.com/ledgerpal/ledgerpal/internal/resolver"
	"github.com/ledgerpal/ledgerpal/internal/rewards"
	"github.com/ledgerpal/ledgerpal/internal/router"
	"github.com/ledgerpal/ledgerpal/internal/server"
	"github.com/ledgerpal/ledgerpal/internal/storage"
	"github.com/ledgerpal/ledgerpal/internal/whatsapp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WhatsApp webhook server",
		Long: `Start the HTTP server that receives Twilio WhatsApp webhooks, runs
each message through the classification and extraction pipeline, and replies
with TwiML.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	gemini, err := gateway.NewGeminiClient(ctx, gateway.Config{
		APIKey:      viper.GetString("gemini.api_key"),
		Model:       viper.GetString("gemini.model"),
		RateLimit:   viper.GetInt("gemini.rate_limit"),
		FFmpegPath:  viper.GetString("gemini.ffmpeg_path"),
		Temperature: viper.GetFloat64("gemini.temperature"),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer func() { _ = gemini.Close() }()

	classifier := intent.NewClassifier(gemini, logger)
	extractor := extract.NewExtractor(gemini, time.Now, logger)
	res := resolver.New(store, logger)

	var coupons *rewards.Generator
	if viper.GetBool("rewards.enabled") {
		coupons = rewards.NewGenerator(rand.NewSource(time.Now().UnixNano()))
	}

	rtr := router.New(classifier, extractor, res, store, gemini, coupons, logger)

	var media server.MediaFetcher
	accountSID := viper.GetString("twilio.account_sid")
	authToken := viper.GetString("twilio.auth_token")
	if accountSID != "" && authToken != "" {
		media = whatsapp.NewMediaDownloader(accountSID, authToken, mediaRoot(), logger)
	} else {
		logger.Warn("twilio credentials not configured, media download disabled")
	}

	srv := server.New(server.Config{
		Addr:           viper.GetString("server.addr"),
		RequestTimeout: viper.GetDuration("server.request_timeout"),
	}, rtr, media, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return store, nil
}

func databasePath() string {
	if path := viper.GetString("database.path"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "ledgerpal.db"
	}
	return filepath.Join(home, ".local", "share", "ledgerpal", "ledgerpal.db")
}

func mediaRoot() string {
	if root := viper.GetString("media.root"); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "media"
	}
	return filepath.Join(home, ".local", "share", "ledgerpal", "media")
}
