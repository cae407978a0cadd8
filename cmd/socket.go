package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/ca-srg/ragrelay/internal/config"
	"github.com/ca-srg/ragrelay/internal/ragapi"
	"github.com/ca-srg/ragrelay/internal/slackbot"
)

var socketCmd = &cobra.Command{
	Use:   "socket",
	Short: "Start the relay over Socket Mode (no inbound HTTP surface)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: Error loading .env file: %v", err)
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.ValidateSocket(); err != nil {
			return err
		}

		logger := log.New(os.Stdout, "ragrelay ", log.LstdFlags)

		client := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
		rag, err := ragapi.NewClient(&ragapi.Config{
			Endpoint:  cfg.RAGEndpoint,
			HealthURL: cfg.RAGHealthURL,
		})
		if err != nil {
			return fmt.Errorf("failed to create rag client: %w", err)
		}

		relay := slackbot.NewHandler(client, rag, slackbot.ReplyThread, logger)
		bot, err := slackbot.NewSocketBot(client, relay, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Printf("Starting Slack relay (Socket Mode)...")
		return bot.Start(ctx)
	},
}
