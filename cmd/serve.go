package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/spf13/cobra"

	"github.com/ttsoftware/ragline/internal/api"
	"github.com/ttsoftware/ragline/internal/app"
	"github.com/ttsoftware/ragline/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LINE webhook server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	logger.Info("starting webhook server", "version", version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	line, err := messaging_api.NewMessagingApiAPI(cfg.LineChannelToken)
	if err != nil {
		return fmt.Errorf("creating LINE client: %w", err)
	}

	server, err := api.NewServer(api.ServerConfig{
		Logger:        logger,
		Answerer:      a.Pipeline,
		Line:          line,
		ChannelSecret: cfg.LineChannelSecret,
		Pool:          a.Pool,
		Store:         a.Knowledge,
		TrustProxy:    cfg.TrustProxy,
		RateBurst:     cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	return server.Run(ctx, addr)
}
