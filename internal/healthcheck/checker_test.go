package healthcheck

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

type fakeSlackAPI struct {
	err error
}

func (f *fakeSlackAPI) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &slack.AuthTestResponse{UserID: "UBOT"}, nil
}

type fakeRAGPinger struct {
	err error
}

func (f *fakeRAGPinger) Health(ctx context.Context) error {
	return f.err
}

func TestCheck_AllHealthy(t *testing.T) {
	t.Parallel()

	c := NewChecker(&fakeSlackAPI{}, &fakeRAGPinger{})
	st := c.Check(context.Background())

	if st.Slack != StatusOK || st.RAGAPI != StatusOK {
		t.Fatalf("expected both probes ok, got %+v", st)
	}
	if !st.Healthy() {
		t.Fatalf("expected healthy status")
	}
}

func TestCheck_ProbesAreIndependent(t *testing.T) {
	t.Parallel()

	t.Run("slack down", func(t *testing.T) {
		c := NewChecker(&fakeSlackAPI{err: errors.New("invalid_auth")}, &fakeRAGPinger{})
		st := c.Check(context.Background())

		if !strings.HasPrefix(st.Slack, "error: ") || !strings.Contains(st.Slack, "invalid_auth") {
			t.Fatalf("slack probe should carry the failure detail, got %q", st.Slack)
		}
		if st.RAGAPI != StatusOK {
			t.Fatalf("rag probe must not be affected by the slack failure, got %q", st.RAGAPI)
		}
		if st.Healthy() {
			t.Fatalf("expected unhealthy status")
		}
	})

	t.Run("rag down", func(t *testing.T) {
		c := NewChecker(&fakeSlackAPI{}, &fakeRAGPinger{err: errors.New("connection refused")})
		st := c.Check(context.Background())

		if st.Slack != StatusOK {
			t.Fatalf("slack probe must not be affected by the rag failure, got %q", st.Slack)
		}
		if !strings.HasPrefix(st.RAGAPI, "error: ") || !strings.Contains(st.RAGAPI, "connection refused") {
			t.Fatalf("rag probe should carry the failure detail, got %q", st.RAGAPI)
		}
	})

	t.Run("both down", func(t *testing.T) {
		c := NewChecker(&fakeSlackAPI{err: errors.New("auth")}, &fakeRAGPinger{err: errors.New("rag")})
		st := c.Check(context.Background())

		if !strings.HasPrefix(st.Slack, "error: ") || !strings.HasPrefix(st.RAGAPI, "error: ") {
			t.Fatalf("expected both probes to report errors, got %+v", st)
		}
	})
}
