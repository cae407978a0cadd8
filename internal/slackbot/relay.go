package slackbot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var relayTracer = otel.Tracer("ragrelay/slackbot")

const (
	// Reaction added to the triggering message as an acknowledgement
	ackReaction = "face_with_monocle"
	// Interim message shown while the RAG call is in flight (edit mode)
	placeholderText = "🔄 Finding the information for you..."
	// Final text when the RAG service has no answer
	noAnswerText = "I can't find related information."
	// Final text for any downstream failure
	errorFormat = "❌ Sorry, I encountered an error: %v"
)

// SlackAPI wraps the subset of slack.Client the relay relies on
type SlackAPI interface {
	AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
}

// QueryService answers user questions, typically backed by the RAG API.
// An empty answer with a nil error means the service found nothing.
type QueryService interface {
	Query(ctx context.Context, query string) (string, error)
}

// ReplyMode selects how the final answer reaches the channel.
type ReplyMode int

const (
	// ReplyEdit posts a placeholder and edits it in place (Events API)
	ReplyEdit ReplyMode = iota
	// ReplyThread posts the answer as a new threaded reply (Socket Mode)
	ReplyThread
)

func (m ReplyMode) String() string {
	if m == ReplyThread {
		return "thread"
	}
	return "edit"
}

// Request is the normalized trigger extracted from a platform event
type Request struct {
	Channel  string
	Text     string
	EventTS  string
	ThreadTS string
}

// Anchor returns the timestamp replies attach to. Always reply in thread:
// use ThreadTS if the trigger was already in one, otherwise the trigger's
// own timestamp starts a new thread.
func (r Request) Anchor() string {
	if r.ThreadTS != "" {
		return r.ThreadTS
	}
	return r.EventTS
}

// Outcome is the explicit result of a relay, consumed by the single
// write-back path.
type Outcome struct {
	text string
	err  error
}

// Answered wraps a final answer text.
func Answered(text string) Outcome { return Outcome{text: text} }

// Failed wraps a downstream failure.
func Failed(err error) Outcome { return Outcome{err: err} }

// Err returns the downstream failure, or nil for an answered outcome.
func (o Outcome) Err() error { return o.err }

// Message renders the user-facing text for this outcome.
func (o Outcome) Message() string {
	if o.err != nil {
		return fmt.Sprintf(errorFormat, o.err)
	}
	return o.text
}

// Handler relays one platform event to the RAG service and writes the
// answer back into the originating thread. It holds no mutable state, so
// concurrent events are independent.
type Handler struct {
	api      SlackAPI
	rag      QueryService
	mode     ReplyMode
	logger   *log.Logger
	reporter ErrorReporter
}

// NewHandler constructs a relay handler.
func NewHandler(api SlackAPI, rag QueryService, mode ReplyMode, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stdout, "slackbot ", log.LstdFlags)
	}
	return &Handler{
		api:      api,
		rag:      rag,
		mode:     mode,
		logger:   logger,
		reporter: &noopReporter{},
	}
}

// SetErrorReporter overrides the no-op reporter for write-back failures.
func (h *Handler) SetErrorReporter(r ErrorReporter) {
	if r != nil {
		h.reporter = r
	}
}

// Handle runs the full relay for one event: acknowledge, query, write back.
// Exactly one downstream call happens per handled event, on every path.
func (h *Handler) Handle(ctx context.Context, req Request) {
	if req.Channel == "" || req.EventTS == "" || strings.TrimSpace(req.Text) == "" {
		h.logger.Printf("event=relay status=dropped reason=empty_request channel=%q ts=%q", req.Channel, req.EventTS)
		return
	}

	ctx, span := relayTracer.Start(ctx, "slackbot.relay")
	defer span.End()
	span.SetAttributes(
		attribute.String("slack.channel", req.Channel),
		attribute.String("slack.reply_mode", h.mode.String()),
	)
	if req.ThreadTS != "" {
		span.SetAttributes(attribute.Bool("slack.is_thread", true))
	}

	start := time.Now()
	status := "ok"
	hadError := false
	attrs := []attribute.KeyValue{
		attribute.String("slack.channel", req.Channel),
		attribute.String("slack.reply_mode", h.mode.String()),
	}
	defer func() {
		attrs = append(attrs, attribute.String("slack.result.status", status))
		recordRelayMetrics(ctx, attrs, time.Since(start), hadError)
	}()

	if err := h.api.AddReactionContext(ctx, ackReaction, slack.NewRefToMessage(req.Channel, req.EventTS)); err != nil {
		h.logger.Printf("event=add_reaction status=error channel=%s err=%v", req.Channel, err)
		if h.mode == ReplyEdit {
			status = "error"
			hadError = true
			span.SetStatus(codes.Error, "acknowledgement failed")
			return
		}
		// Thread mode still replies without the reaction.
	}

	placeholderTS := ""
	if h.mode == ReplyEdit {
		_, ts, err := h.api.PostMessageContext(ctx, req.Channel,
			slack.MsgOptionText(placeholderText, false),
			slack.MsgOptionTS(req.Anchor()))
		if err != nil {
			h.logger.Printf("event=post_placeholder status=error channel=%s err=%v", req.Channel, err)
			status = "error"
			hadError = true
			span.SetStatus(codes.Error, "placeholder failed")
			return
		}
		placeholderTS = ts
	}

	outcome := h.resolve(ctx, req.Text)
	if outcome.Err() != nil {
		status = "error"
		hadError = true
		span.RecordError(outcome.Err())
		span.SetStatus(codes.Error, "rag query failed")
	}

	if err := h.writeBack(ctx, req, placeholderTS, outcome); err != nil {
		status = "error"
		hadError = true
		h.logger.Printf("event=write_back status=error channel=%s err=%v", req.Channel, err)
		if h.reporter != nil {
			h.reporter.Report(err, map[string]string{"channel": req.Channel})
		}
	}
}

// resolve turns the RAG call into an explicit outcome.
func (h *Handler) resolve(ctx context.Context, query string) Outcome {
	answer, err := h.rag.Query(ctx, query)
	if err != nil {
		return Failed(err)
	}
	if answer == "" {
		return Answered(noAnswerText)
	}
	return Answered(answer)
}

// writeBack delivers the outcome. Edit mode replaces the placeholder in
// place; thread mode posts a new reply anchored to the trigger.
func (h *Handler) writeBack(ctx context.Context, req Request, placeholderTS string, outcome Outcome) error {
	text := slack.MsgOptionText(outcome.Message(), false)
	if h.mode == ReplyEdit {
		_, _, _, err := h.api.UpdateMessageContext(ctx, req.Channel, placeholderTS, text)
		return err
	}
	_, _, err := h.api.PostMessageContext(ctx, req.Channel,
		slack.MsgOptionCompose(text, slack.MsgOptionTS(req.Anchor())))
	return err
}
