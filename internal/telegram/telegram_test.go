package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testToken = "123:TEST"

type fakeAPI struct {
	mu       sync.Mutex
	sent     []map[string]string
	polls    atomic.Int32
	updates  string
	received chan struct{}
}

func newFakeAPI(t *testing.T, updates string) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{updates: updates, received: make(chan struct{}, 10)}

	mux := http.NewServeMux()
	mux.HandleFunc("/bot"+testToken+"/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		if f.polls.Add(1) == 1 {
			w.Write([]byte(`{"ok":true,"result":` + f.updates + `}`))
			return
		}
		time.Sleep(5 * time.Millisecond)
		w.Write([]byte(`{"ok":true,"result":[]}`))
	})
	mux.HandleFunc("/bot"+testToken+"/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)

		if payload["parse_mode"] == "Markdown" && strings.Contains(payload["text"], "_unbalanced") {
			w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
			return
		}

		f.mu.Lock()
		f.sent = append(f.sent, payload)
		f.mu.Unlock()
		f.received <- struct{}{}
		w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func testBot(url string) *Bot {
	b := NewBot(testToken, 1001)
	b.apiURL = url
	b.pollTimeout = 0
	return b
}

func TestSend_FallsBackToPlainText(t *testing.T) {
	f, srv := newFakeAPI(t, `[]`)
	b := testBot(srv.URL)

	if err := b.Send(context.Background(), 1001, "*ok*"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := b.Send(context.Background(), 1001, "M_M _unbalanced"); err != nil {
		t.Fatalf("Send with fallback failed: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) != 2 {
		t.Fatalf("Expected 2 delivered messages, got %d", len(f.sent))
	}
	if f.sent[0]["parse_mode"] != "Markdown" {
		t.Errorf("Expected Markdown on first message, got %q", f.sent[0]["parse_mode"])
	}
	if _, ok := f.sent[1]["parse_mode"]; ok {
		t.Errorf("Expected plain text resend, got %v", f.sent[1])
	}
}

func TestListen_DispatchesAuthorizedCommands(t *testing.T) {
	updates := `[
		{"update_id": 1, "message": {"text": "/ping", "chat": {"id": 1001}, "from": {"username": "owner"}}},
		{"update_id": 2, "message": {"text": "/ping", "chat": {"id": 666}, "from": {"username": "intruder"}}},
		{"update_id": 3, "message": {"text": "hello", "chat": {"id": 1001}, "from": {"username": "owner"}}}
	]`
	f, srv := newFakeAPI(t, updates)
	b := testBot(srv.URL)

	var mu sync.Mutex
	var handled []int64
	var handlerCtx context.Context
	handler := func(ctx context.Context, chatID int64, cmd string) string {
		mu.Lock()
		handled = append(handled, chatID)
		handlerCtx = ctx
		mu.Unlock()
		return "Pong"
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Listen(ctx, handler)
		close(done)
	}()

	select {
	case <-f.received:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for reply")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Listener did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != 1001 {
		t.Errorf("Expected only chat 1001 handled, got %v", handled)
	}
	if handlerCtx == nil || handlerCtx.Err() == nil {
		t.Error("Expected handler context to be cancelled with the listener")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) != 1 || f.sent[0]["chat_id"] != "1001" || f.sent[0]["text"] != "Pong" {
		t.Errorf("Unexpected replies: %v", f.sent)
	}
}
