package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testAlert(email string) Alert {
	return Alert{
		RuleID:    "alert-100k",
		Threshold: decimal.NewFromInt(100000),
		Price:     decimal.NewFromInt(99000),
		Email:     email,
	}
}

func TestSendGridNotifierSuccess(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/v3/mail/send") {
			t.Fatalf("路径应为 /v3/mail/send, 实际 %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("Authorization 头不正确: %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	notifier := NewSendGridNotifier("key", "", "", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testAlert("user@example.com")); err != nil {
		t.Fatalf("Notify 应成功: %v", err)
	}

	content, ok := received["content"].([]any)
	if !ok || len(content) == 0 {
		t.Fatalf("邮件应包含 content 字段: %#v", received)
	}
	body := content[0].(map[string]any)["value"].(string)
	if !strings.Contains(body, "100000") || !strings.Contains(body, "99000") {
		t.Fatalf("邮件正文应包含阈值与现价: %s", body)
	}
}

func TestSendGridNotifierProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	notifier := NewSendGridNotifier("bad-key", "", "", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testAlert("user@example.com")); err == nil {
		t.Fatal("HTTP 401 应报错")
	}
}

func TestSendGridNotifierNotConfigured(t *testing.T) {
	notifier := NewSendGridNotifier("", "", "", "", time.Second, testLogger())
	err := notifier.Notify(context.Background(), testAlert("user@example.com"))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("缺少凭证应返回 ErrNotConfigured, 实际 %v", err)
	}
}

func TestSendGridNotifierSkipsEmptyRecipient(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	notifier := NewSendGridNotifier("key", "", "", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testAlert("")); err != nil {
		t.Fatalf("空收件人应静默跳过: %v", err)
	}
	if called {
		t.Fatal("空收件人不应调用 provider")
	}
}

func TestToastNotifier(t *testing.T) {
	notifier := NewToastNotifier(testLogger())
	if err := notifier.Notify(context.Background(), testAlert("")); err != nil {
		t.Fatalf("应用内通知不应报错: %v", err)
	}
}
