package slackbot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

const testSigningSecret = "test-signing-secret"

// signRequest stamps the Slack v0 signature headers onto a request, the
// same scheme the verifier checks: HMAC-SHA256 over "v0:<ts>:<body>".
func signRequest(req *http.Request, secret string, body []byte) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + string(body)))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

func newEventsFixture(rag *fakeQueryService) (*EventsHandler, *mockSlackAPI) {
	api := &mockSlackAPI{nextPostTS: "555.001"}
	relay := NewHandler(api, rag, ReplyEdit, testLogger())
	return NewEventsHandler(relay, testSigningSecret, testLogger()), api
}

func postEvent(t *testing.T, h *EventsHandler, body string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		signRequest(req, testSigningSecret, []byte(body))
	}
	w := httptest.NewRecorder()
	h.HandleEvent(w, req)
	return w
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within 2s")
}

func TestEventsHandler_RelaysMention(t *testing.T) {
	rag := &fakeQueryService{answer: "X is Y"}
	h, api := newEventsFixture(rag)

	body := `{"token":"tok","team_id":"T1","api_app_id":"A1","type":"event_callback",` +
		`"event":{"type":"app_mention","user":"U1","text":"what is X","ts":"100.000001","channel":"C1","event_ts":"100.000001"}}`
	w := postEvent(t, h, body, true)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	waitFor(t, func() bool {
		_, _, updates := api.snapshot()
		return len(updates) == 1
	})
	_, posts, updates := api.snapshot()
	if len(posts) != 1 || posts[0].threadTS != "100.000001" {
		t.Fatalf("placeholder should anchor to the trigger, got %+v", posts)
	}
	if updates[0].text != "X is Y" {
		t.Fatalf("final text must be the answer verbatim, got %q", updates[0].text)
	}
}

func TestEventsHandler_DropsBotEventsWithoutWrites(t *testing.T) {
	rag := &fakeQueryService{answer: "never"}
	h, api := newEventsFixture(rag)

	bodies := []string{
		`{"token":"tok","type":"event_callback",` +
			`"event":{"type":"app_mention","bot_id":"B1","text":"echo","ts":"1.0","channel":"C1"}}`,
		`{"token":"tok","type":"event_callback",` +
			`"event":{"type":"message","bot_id":"B1","text":"echo","ts":"1.0","channel":"D1"}}`,
		`{"token":"tok","type":"event_callback",` +
			`"event":{"type":"message","subtype":"message_changed","ts":"1.0","channel":"D1"}}`,
	}
	for _, body := range bodies {
		if w := postEvent(t, h, body, true); w.Code != http.StatusOK {
			t.Fatalf("dropped events still ack with 200, got %d", w.Code)
		}
	}

	// Drops happen before the relay goroutine is spawned, so this is not racy.
	reactions, posts, updates := api.snapshot()
	if len(reactions)+len(posts)+len(updates) != 0 {
		t.Fatalf("bot events must produce zero writes: %+v %+v %+v", reactions, posts, updates)
	}
	if rag.calls() != 0 {
		t.Fatalf("bot events must not reach downstream, got %d calls", rag.calls())
	}
}

func TestEventsHandler_AnswersURLVerification(t *testing.T) {
	h, _ := newEventsFixture(&fakeQueryService{})

	body := `{"token":"tok","type":"url_verification","challenge":"challenge-value"}`
	w := postEvent(t, h, body, true)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "challenge-value" {
		t.Fatalf("challenge must be echoed, got %q", w.Body.String())
	}
}

func TestEventsHandler_IgnoresUnhandledEventTypes(t *testing.T) {
	rag := &fakeQueryService{}
	h, api := newEventsFixture(rag)

	body := `{"token":"tok","type":"event_callback",` +
		`"event":{"type":"reaction_added","user":"U1","reaction":"eyes","item":{"type":"message","channel":"C1","ts":"1.0"},"event_ts":"1.0"}}`
	if w := postEvent(t, h, body, true); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	reactions, posts, updates := api.snapshot()
	if len(reactions)+len(posts)+len(updates) != 0 || rag.calls() != 0 {
		t.Fatalf("unhandled event types must be ignored")
	}
}

func TestEventsHandler_RejectsBadSignature(t *testing.T) {
	rag := &fakeQueryService{}
	h, api := newEventsFixture(rag)

	body := `{"token":"tok","type":"event_callback",` +
		`"event":{"type":"app_mention","user":"U1","text":"q","ts":"1.0","channel":"C1"}}`
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString([]byte("forged-signature")))
	w := httptest.NewRecorder()
	h.HandleEvent(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	reactions, posts, updates := api.snapshot()
	if len(reactions)+len(posts)+len(updates) != 0 || rag.calls() != 0 {
		t.Fatalf("rejected requests must have no side effects")
	}
}

func TestEventsHandler_RejectsMissingSignatureHeaders(t *testing.T) {
	h, _ := newEventsFixture(&fakeQueryService{})

	w := postEvent(t, h, `{"type":"url_verification","challenge":"c"}`, false)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestEventsHandler_RejectsMalformedPayload(t *testing.T) {
	h, _ := newEventsFixture(&fakeQueryService{})

	w := postEvent(t, h, "not json", true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
