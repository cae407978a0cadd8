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
	"github.com/ca-srg/ragrelay/internal/healthcheck"
	"github.com/ca-srg/ragrelay/internal/ragapi"
	"github.com/ca-srg/ragrelay/internal/server"
	"github.com/ca-srg/ragrelay/internal/slackbot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay on the Events API with the HTTP health surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: Error loading .env file: %v", err)
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.ValidateEvents(); err != nil {
			return err
		}

		logger := log.New(os.Stdout, "ragrelay ", log.LstdFlags)

		client := slack.New(cfg.SlackBotToken)
		auth, err := client.AuthTest()
		if err != nil {
			return fmt.Errorf("slack auth test failed: %w", err)
		}
		logger.Printf("event=auth status=ok bot_user=%s team=%s", auth.UserID, auth.Team)

		rag, err := ragapi.NewClient(&ragapi.Config{
			Endpoint:  cfg.RAGEndpoint,
			HealthURL: cfg.RAGHealthURL,
		})
		if err != nil {
			return fmt.Errorf("failed to create rag client: %w", err)
		}

		relay := slackbot.NewHandler(client, rag, slackbot.ReplyEdit, logger)
		events := slackbot.NewEventsHandler(relay, cfg.SlackSigningSecret, logger)
		checker := healthcheck.NewChecker(client, rag)

		srv := server.New(
			server.Config{Port: cfg.Port, Version: version},
			events.HandleEvent,
			checker,
			logger,
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Printf("Starting Slack relay (Events API) on port %d...", cfg.Port)
		return srv.Run(ctx)
	},
}
