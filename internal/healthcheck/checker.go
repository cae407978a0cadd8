package healthcheck

import (
	"context"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"
)

// StatusOK marks a passing probe. Failures carry "error: <detail>" instead.
const StatusOK = "ok"

const statusErrorPrefix = "error: "

// SlackAPI is the auth probe surface of the platform client.
type SlackAPI interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
}

// RAGPinger probes the downstream RAG service.
type RAGPinger interface {
	Health(ctx context.Context) error
}

// Status is the readiness report, one entry per dependency.
type Status struct {
	Slack  string `json:"slack"`
	RAGAPI string `json:"rag_api"`
}

// Healthy reports whether every dependency probe passed.
func (s Status) Healthy() bool {
	return s.Slack == StatusOK && s.RAGAPI == StatusOK
}

// Checker runs the dependency probes for the readiness endpoint.
type Checker struct {
	slack   SlackAPI
	rag     RAGPinger
	timeout time.Duration
}

// NewChecker constructs a readiness checker with a per-probe timeout.
func NewChecker(slackAPI SlackAPI, rag RAGPinger) *Checker {
	return &Checker{slack: slackAPI, rag: rag, timeout: 10 * time.Second}
}

// Check probes both dependencies concurrently. Each goroutine records its
// own result and returns nil so one failing probe never cancels or masks
// the other.
func (c *Checker) Check(ctx context.Context) Status {
	var st Status

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		probeCtx, cancel := context.WithTimeout(gCtx, c.timeout)
		defer cancel()
		if _, err := c.slack.AuthTestContext(probeCtx); err != nil {
			st.Slack = statusErrorPrefix + err.Error()
			return nil
		}
		st.Slack = StatusOK
		return nil
	})

	g.Go(func() error {
		probeCtx, cancel := context.WithTimeout(gCtx, c.timeout)
		defer cancel()
		if err := c.rag.Health(probeCtx); err != nil {
			st.RAGAPI = statusErrorPrefix + err.Error()
			return nil
		}
		st.RAGAPI = StatusOK
		return nil
	})

	_ = g.Wait()
	return st
}
