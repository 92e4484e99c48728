package bot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"p2p-exchange-go/internal/models"

	"gopkg.in/telebot.v3"
)

type apiCall struct {
	method string
	body   string
}

// fakeBotAPI answers Bot API calls and records them
type fakeBotAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage":
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
	case "getWebhookInfo":
		_, _ = io.WriteString(w, `{"ok":true,"result":{"url":"https://example.com/api/telegram/webhook","pending_update_count":3}}`)
	default:
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeBotAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	methods := make([]string, len(f.calls))
	for i, call := range f.calls {
		methods[i] = call.method
	}
	return methods
}

func setupTestBot(t *testing.T, webhookURL string) (*Bot, *fakeBotAPI, func()) {
	t.Helper()

	api := &fakeBotAPI{}
	server := httptest.NewServer(api)

	b, err := New(models.TelegramConfig{
		BotToken:   "123:TEST",
		WebAppURL:  "https://app.example.com",
		WebhookURL: webhookURL,
	}, Options{
		APIURL:      server.URL,
		Offline:     true,
		Synchronous: true,
	})
	if err != nil {
		server.Close()
		t.Fatalf("New failed: %v", err)
	}

	return b, api, server.Close
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(models.TelegramConfig{}, Options{Offline: true}); err == nil {
		t.Error("Expected error for missing token")
	}
}

func TestHandleUpdate_StartSendsWebAppButton(t *testing.T) {
	b, api, cleanup := setupTestBot(t, "https://example.com")
	defer cleanup()

	b.HandleUpdate(telebot.Update{
		ID: 1,
		Message: &telebot.Message{
			ID:     1,
			Text:   "/start",
			Sender: &telebot.User{ID: 42},
			Chat:   &telebot.Chat{ID: 42, Type: telebot.ChatPrivate},
		},
	})

	if len(api.calls) != 1 || api.calls[0].method != "sendMessage" {
		t.Fatalf("Expected one sendMessage call, got %v", api.methods())
	}
	body := api.calls[0].body
	if !strings.Contains(body, "web_app") || !strings.Contains(body, "https://app.example.com") {
		t.Errorf("Expected a WebApp button in %s", body)
	}
}

func TestSetup_RegistersWebhookAndCommands(t *testing.T) {
	b, api, cleanup := setupTestBot(t, "https://example.com/")
	defer cleanup()

	result, err := b.Setup()
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	if result.WebhookURL != "https://example.com/api/telegram/webhook" {
		t.Errorf("Expected webhook url https://example.com/api/telegram/webhook, got %s", result.WebhookURL)
	}
	if result.PendingUpdates != 3 {
		t.Errorf("Expected 3 pending updates, got %d", result.PendingUpdates)
	}

	methods := strings.Join(api.methods(), ",")
	if methods != "setWebhook,setMyCommands,getWebhookInfo" {
		t.Errorf("Expected setWebhook,setMyCommands,getWebhookInfo, got %s", methods)
	}
}

func TestSetup_RequiresWebhookURL(t *testing.T) {
	b, _, cleanup := setupTestBot(t, "")
	defer cleanup()

	if _, err := b.Setup(); err == nil {
		t.Error("Expected error without a webhook url")
	}
}

func TestRun_WebhookModeWaitsForCancel(t *testing.T) {
	b, _, cleanup := setupTestBot(t, "https://example.com")
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
