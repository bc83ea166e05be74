package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func sampleNote() Notification {
	return Notification{
		HorizonStart: "2023-10-08",
		HorizonEnd:   "2023-10-10",
		Impacts:      []string{"HIGH"},
		Events: []Event{
			{ID: "a", Name: "Nonfarm Payrolls", Start: "10/06/2023 12:30:00", Country: "US", Impact: "HIGH", Consensus: "170", Previous: "187"},
		},
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received["text"], "Nonfarm Payrolls") {
		t.Fatalf("text 应包含事件名称: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestTelegramNotifierSkipsEmpty(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), Notification{}); err != nil {
		t.Fatalf("空通知不应报错: %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("空通知不应发送请求")
	}
}

func TestRenderMessageTruncates(t *testing.T) {
	note := sampleNote()
	note.Events = nil
	for i := 0; i < maxListedEvents+5; i++ {
		note.Events = append(note.Events, Event{ID: fmt.Sprint(i), Name: fmt.Sprintf("E%d", i), Impact: "HIGH"})
	}
	msg := renderMessage(note)
	if !strings.Contains(msg, "... and 5 more") {
		t.Fatalf("message should be truncated:\n%s", msg)
	}
	if strings.Contains(msg, "E24") {
		t.Fatal("events past the cap should not be listed")
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
