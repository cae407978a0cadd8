package slackbot

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// SocketBot handles Slack events via Socket Mode (xapp- token)
type SocketBot struct {
	sm       *socketmode.Client
	relay    *Handler
	dispatch map[string]mapFunc
	logger   *log.Logger
}

// NewSocketBot constructs a Socket Mode bot and verifies the credentials
// with an AuthTest. The slack client must be built with
// slack.OptionAppLevelToken.
func NewSocketBot(client *slack.Client, relay *Handler, logger *log.Logger) (*SocketBot, error) {
	if client == nil {
		return nil, fmt.Errorf("nil slack client")
	}
	if relay == nil {
		return nil, fmt.Errorf("nil relay handler")
	}
	if logger == nil {
		logger = log.New(os.Stdout, "slackbot ", log.LstdFlags)
	}
	auth, err := client.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack auth test failed: %w", err)
	}
	logger.Printf("event=auth status=ok bot_user=%s team=%s", auth.UserID, auth.Team)
	return &SocketBot{
		sm:       socketmode.New(client),
		relay:    relay,
		dispatch: relayDispatch(),
		logger:   logger,
	}, nil
}

// Start begins the Socket Mode event loop and blocks until ctx is cancelled.
func (b *SocketBot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Run websocket connection in background
	go func() {
		if err := b.sm.RunContext(ctx); err != nil {
			b.logger.Printf("socketmode run error: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-b.sm.Events:
			b.handleEvent(ctx, ev)
		}
	}
}

func (b *SocketBot) handleEvent(ctx context.Context, ev socketmode.Event) {
	switch ev.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Printf("event=socket status=connecting")
	case socketmode.EventTypeConnected:
		b.logger.Printf("event=socket status=connected")
	case socketmode.EventTypeInvalidAuth:
		b.logger.Printf("invalid_auth: verify SLACK_APP_TOKEN and SLACK_BOT_TOKEN")
	case socketmode.EventTypeConnectionError:
		b.logger.Printf("connection_error: %v", ev.Data)
	case socketmode.EventTypeIncomingError:
		b.logger.Printf("incoming_error: %v", ev.Data)
	case socketmode.EventTypeEventsAPI:
		// Ack first to avoid retries
		if ev.Request != nil {
			b.sm.Ack(*ev.Request)
		}
		payload, ok := ev.Data.(slackevents.EventsAPIEvent)
		if !ok || payload.Type != slackevents.CallbackEvent {
			return
		}
		inner := payload.InnerEvent
		mapEvent, ok := b.dispatch[inner.Type]
		if !ok {
			return
		}
		req, ok := mapEvent(inner.Data)
		if !ok {
			return
		}
		go b.relay.Handle(ctx, req)
	default:
		// ignore
	}
}
