package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// maxEventBody bounds webhook payload reads; Slack events are a few KB.
const maxEventBody = 1 << 20

// EventsHandler is the Events API ingress. It verifies request signatures,
// answers URL verification challenges, and hands accepted events to the
// relay without holding up Slack's delivery.
type EventsHandler struct {
	relay         *Handler
	signingSecret string
	dispatch      map[string]mapFunc
	logger        *log.Logger
}

// NewEventsHandler constructs the webhook ingress around a relay handler.
func NewEventsHandler(relay *Handler, signingSecret string, logger *log.Logger) *EventsHandler {
	if logger == nil {
		logger = log.New(os.Stdout, "slackbot ", log.LstdFlags)
	}
	return &EventsHandler{
		relay:         relay,
		signingSecret: signingSecret,
		dispatch:      relayDispatch(),
		logger:        logger,
	}
}

// HandleEvent implements POST /slack/events.
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		http.Error(w, "invalid signature headers", http.StatusBadRequest)
		return
	}
	if _, err := verifier.Write(body); err != nil {
		http.Error(w, "verification failed", http.StatusInternalServerError)
		return
	}
	if err := verifier.Ensure(); err != nil {
		h.logger.Printf("event=verify_signature status=rejected err=%v", err)
		http.Error(w, "signature mismatch", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "malformed event payload", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "malformed challenge", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))
	case slackevents.CallbackEvent:
		h.dispatchCallback(event.InnerEvent)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// dispatchCallback hands an accepted event to the relay in the background.
// Slack retries deliveries that are not acked within seconds, so the 200
// must not wait for the answer; the relay runs on a fresh context that
// outlives the HTTP exchange. Drops happen synchronously so a rejected
// event can never produce a write.
func (h *EventsHandler) dispatchCallback(inner slackevents.EventsAPIInnerEvent) {
	mapEvent, ok := h.dispatch[inner.Type]
	if !ok {
		return
	}
	req, ok := mapEvent(inner.Data)
	if !ok {
		return
	}
	go h.relay.Handle(context.Background(), req)
}
