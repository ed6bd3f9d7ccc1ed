package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramSinkSend(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegramSink("bot-token", "chat-42")
	tg.apiBase = srv.URL

	if err := tg.Send(context.Background(), "BTCUSDT spread 6.00%", "buy BYBIT @ 100"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Errorf("path = %s", gotPath)
	}
	if gotPayload["chat_id"] != "chat-42" {
		t.Errorf("chat_id = %s", gotPayload["chat_id"])
	}
	if !strings.HasPrefix(gotPayload["text"], "*BTCUSDT spread 6.00%*\n") {
		t.Errorf("text = %q, want bold title first", gotPayload["text"])
	}
}

func TestTelegramSinkSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"description":"bot was blocked"}`))
	}))
	defer srv.Close()

	tg := NewTelegramSink("bot-token", "chat-42")
	tg.apiBase = srv.URL

	err := tg.Send(context.Background(), "t", "b")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestDiscordSinkSend(t *testing.T) {
	var gotPayload map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordSink(srv.URL)
	if err := d.Send(context.Background(), "ETHUSDT spread 5.20%", "sell HYPERLIQUID @ 2650"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if !strings.HasPrefix(gotPayload["content"], "**ETHUSDT spread 5.20%**\n") {
		t.Errorf("content = %q, want bold title first", gotPayload["content"])
	}
}

func TestDiscordSinkSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	d := NewDiscordSink(srv.URL)
	err := d.Send(context.Background(), "t", "b")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want status in message", err)
	}
}
