package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/insightpulseai/slack-agent/internal/logging"
	"github.com/insightpulseai/slack-agent/internal/slack"
)

const testSecret = "test-signing-secret"

// mockDispatcher records dispatch calls on channels so tests can wait for
// the handler's fire-and-forget goroutines.
type mockDispatcher struct {
	events       chan *slack.Envelope
	commands     chan slack.Command
	interactions chan *slack.Interaction
}

func newMockDispatcher() *mockDispatcher {
	return &mockDispatcher{
		events:       make(chan *slack.Envelope, 8),
		commands:     make(chan slack.Command, 8),
		interactions: make(chan *slack.Interaction, 8),
	}
}

func (m *mockDispatcher) DispatchEvent(env *slack.Envelope)         { m.events <- env }
func (m *mockDispatcher) DispatchCommand(cmd slack.Command)         { m.commands <- cmd }
func (m *mockDispatcher) DispatchInteraction(in *slack.Interaction) { m.interactions <- in }

func newTestHandler(d Dispatcher) *SlackHandler {
	return NewSlackHandler(testSecret, d, nil, logging.New(slog.LevelError, "text"))
}

// signedRequest builds a POST with valid signature headers for body.
func signedRequest(t *testing.T, target, contentType string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, slack.Sign(testSecret, body, ts))
	return req
}

func waitFor[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
		panic("unreachable")
	}
}

func assertNoDispatch[T any](t *testing.T, ch chan T) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected dispatch call")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleEvents_Challenge(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	body := []byte(`{"type": "url_verification", "challenge": "abc123"}`)
	rec := httptest.NewRecorder()
	h.HandleEvents(rec, signedRequest(t, "/slack/events", "application/json", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["challenge"] != "abc123" {
		t.Errorf("challenge = %q, want %q", resp["challenge"], "abc123")
	}

	assertNoDispatch(t, d.events)
}

func TestHandleEvents_BadSignature(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	body := []byte(`{"type": "event_callback"}`)
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, "v0=0000000000000000000000000000000000000000000000000000000000000000")

	rec := httptest.NewRecorder()
	h.HandleEvents(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	assertNoDispatch(t, d.events)
}

func TestHandleEvents_MissingHeaders(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.HandleEvents(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleEvents_StaleTimestamp(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	body := []byte(`{"type": "event_callback"}`)
	ts := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))
	req.Header.Set(HeaderTimestamp, ts)
	// Signature is valid for the stale timestamp; freshness must still reject.
	req.Header.Set(HeaderSignature, slack.Sign(testSecret, body, ts))

	rec := httptest.NewRecorder()
	h.HandleEvents(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleEvents_MalformedJSON(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	rec := httptest.NewRecorder()
	h.HandleEvents(rec, signedRequest(t, "/slack/events", "application/json", []byte("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleEvents_AcksAndDispatches(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	body := []byte(`{
		"type": "event_callback",
		"event_id": "Ev0001",
		"event": {"type": "app_mention", "user": "U1", "ts": "1700000000.000100"}
	}`)

	rec := httptest.NewRecorder()
	h.HandleEvents(rec, signedRequest(t, "/slack/events", "application/json", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp["ok"] {
		t.Error(`response body missing {"ok": true}`)
	}

	env := waitFor(t, d.events)
	if env.EventID != "Ev0001" {
		t.Errorf("dispatched EventID = %q, want %q", env.EventID, "Ev0001")
	}
}

func TestHandleEvents_MethodNotAllowed(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	req := httptest.NewRequest(http.MethodGet, "/slack/events", nil)
	rec := httptest.NewRecorder()
	h.HandleEvents(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleCommands_KnownRoute(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	form := url.Values{}
	form.Set("command", "/run")
	form.Set("text", "deploy")
	form.Set("trigger_id", "Trig1")
	body := []byte(form.Encode())

	rec := httptest.NewRecorder()
	h.HandleCommands(rec, signedRequest(t, "/slack/commands", "application/x-www-form-urlencoded", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["response_type"] != "ephemeral" {
		t.Errorf("response_type = %q, want %q", resp["response_type"], "ephemeral")
	}
	if !strings.Contains(resp["text"], "Processing") {
		t.Errorf("text = %q, want processing message", resp["text"])
	}

	cmd := waitFor(t, d.commands)
	if cmd.Command != "/run" || cmd.TriggerID != "Trig1" {
		t.Errorf("dispatched command = %+v", cmd)
	}
}

func TestHandleCommands_UnknownRoute(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	form := url.Values{}
	form.Set("command", "/bogus")
	form.Set("trigger_id", "Trig1")
	body := []byte(form.Encode())

	rec := httptest.NewRecorder()
	h.HandleCommands(rec, signedRequest(t, "/slack/commands", "application/x-www-form-urlencoded", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp["text"], "Unknown command") {
		t.Errorf("text = %q, want unknown-command message", resp["text"])
	}

	// The dispatcher still runs (and skips); the ack itself never depends on it.
	waitFor(t, d.commands)
}

func TestHandleCommands_BadSignature(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	body := []byte("command=%2Frun&trigger_id=T1")
	req := httptest.NewRequest(http.MethodPost, "/slack/commands", bytes.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, slack.Sign("wrong-secret", body, ts))

	rec := httptest.NewRecorder()
	h.HandleCommands(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	assertNoDispatch(t, d.commands)
}

func TestHandleInteractive_AcksEmpty(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	payload := `{"type":"block_actions","trigger_id":"Trig5","user":{"id":"U1"}}`
	form := url.Values{}
	form.Set("payload", payload)
	body := []byte(form.Encode())

	rec := httptest.NewRecorder()
	h.HandleInteractive(rec, signedRequest(t, "/slack/interactive", "application/x-www-form-urlencoded", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}

	in := waitFor(t, d.interactions)
	if in.TriggerID != "Trig5" {
		t.Errorf("dispatched TriggerID = %q, want %q", in.TriggerID, "Trig5")
	}
}

func TestHandleInteractive_MissingPayload(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	body := []byte("foo=bar")
	rec := httptest.NewRecorder()
	h.HandleInteractive(rec, signedRequest(t, "/slack/interactive", "application/x-www-form-urlencoded", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertNoDispatch(t, d.interactions)
}

func TestHandleInteractive_InvalidPayloadJSON(t *testing.T) {
	d := newMockDispatcher()
	h := newTestHandler(d)

	form := url.Values{}
	form.Set("payload", "{not json")
	body := []byte(form.Encode())

	rec := httptest.NewRecorder()
	h.HandleInteractive(rec, signedRequest(t, "/slack/interactive", "application/x-www-form-urlencoded", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
