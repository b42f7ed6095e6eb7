package inbox

import (
	"strings"
	"testing"

	"github.com/jaakkos/inboxflag/internal/domain"
)

func TestAddMessageAndGetMessages(t *testing.T) {
	env := newTestEnv(t)

	res, err := callTool(t, env.server, "add_message", map[string]any{"id": 1, "text": "hi"})
	if err != nil {
		t.Fatalf("add_message: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "Message #1 added") {
		t.Errorf("add_message result = %q", text)
	}
	if !env.svc.Log().NewMessage() {
		t.Error("log should be unread")
	}
	if !env.other.Value() {
		t.Error("other view should observe the mirrored flag")
	}

	res, err = callTool(t, env.server, "get_messages", nil)
	if err != nil {
		t.Fatalf("get_messages: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Unread: 1") || !strings.Contains(text, "#1 [them] hi") {
		t.Errorf("get_messages = %q", text)
	}
	if strings.Contains(text, "[unread:") {
		t.Error("get_messages should not carry the banner")
	}
}

func TestAddMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := callTool(t, env.server, "add_message", map[string]any{"text": "no id"}); err == nil {
		t.Error("expected error without id")
	}
	if _, err := callTool(t, env.server, "add_message", map[string]any{"id": 1}); err == nil {
		t.Error("expected error without text")
	}
	for _, id := range []any{1.5, 1e300, -1e300, float64(1<<53) + 2} {
		if _, err := callTool(t, env.server, "add_message", map[string]any{"id": id, "text": "x"}); err == nil {
			t.Errorf("expected error for id %v", id)
		}
	}
	if len(env.svc.Log().Messages()) != 0 {
		t.Error("invalid calls must not append")
	}
	if _, err := callTool(t, env.server, "add_message", map[string]any{"id": -7, "text": "x"}); err != nil {
		t.Errorf("negative integer id should be accepted: %v", err)
	}
}

func TestMarkAsRead(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 3; i++ {
		if _, err := callTool(t, env.server, "add_message", map[string]any{"id": i, "text": "m"}); err != nil {
			t.Fatalf("add_message: %v", err)
		}
	}
	if _, err := callTool(t, env.server, "mark_as_read", nil); err != nil {
		t.Fatalf("mark_as_read: %v", err)
	}
	if env.svc.Log().NewMessage() {
		t.Error("log should be read")
	}
	if n := len(env.svc.Log().Messages()); n != 3 {
		t.Errorf("messages = %d, want 3", n)
	}
	if env.other.Value() {
		t.Error("other view should observe the cleared flag")
	}
}

func TestGetMessagesLimit(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 5; i++ {
		_ = env.svc.Deliver(domain.Message{ID: i, Text: "m", IsFromDevice: i%2 == 0})
	}
	res, err := callTool(t, env.server, "get_messages", map[string]any{"limit": 2})
	if err != nil {
		t.Fatalf("get_messages: %v", err)
	}
	text := resultText(t, res)
	if strings.Contains(text, "#3 ") || !strings.Contains(text, "#4 [me]") || !strings.Contains(text, "#5 [them]") {
		t.Errorf("get_messages limit=2 = %q", text)
	}
}

func TestGetMessagesOutsideProvider(t *testing.T) {
	env := newTestEnv(t)
	bare := testServer(env.svc) // no ProviderMiddleware
	_, err := callTool(t, bare, "get_messages", nil)
	if err == nil || !strings.Contains(err.Error(), "outside its provider") {
		t.Errorf("err = %v, want provider error", err)
	}
}

func TestBannerOnOtherTools(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 10; i++ {
		_ = env.svc.Deliver(domain.Message{ID: i, Text: "m"})
	}
	res, err := callTool(t, env.server, "read_flag", nil)
	if err != nil {
		t.Fatalf("read_flag: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "[unread: 9+]") {
		t.Errorf("read_flag result missing banner: %q", text)
	}

	_ = env.svc.MarkAsRead()
	res, err = callTool(t, env.server, "read_flag", nil)
	if err != nil {
		t.Fatalf("read_flag: %v", err)
	}
	if text := resultText(t, res); strings.Contains(text, "[unread:") {
		t.Errorf("banner after mark as read: %q", text)
	}
}

func TestFlagTools(t *testing.T) {
	env := newTestEnv(t)

	res, err := callTool(t, env.server, "set_flag", map[string]any{"value": true})
	if err != nil {
		t.Fatalf("set_flag: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "newMessage=true") {
		t.Errorf("set_flag = %q", text)
	}
	if v, _ := env.origin.Get(domain.FlagKey); v != "true" {
		t.Errorf("stored = %q", v)
	}
	if !env.other.Value() {
		t.Error("other view should observe set_flag")
	}

	res, err = callTool(t, env.server, "read_flag", nil)
	if err != nil {
		t.Fatalf("read_flag: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "newMessage=true") {
		t.Errorf("read_flag = %q", text)
	}

	for i := 0; i < 2; i++ {
		if _, err := callTool(t, env.server, "clear_flag", nil); err != nil {
			t.Fatalf("clear_flag #%d: %v", i+1, err)
		}
		if v, _ := env.origin.Get(domain.FlagKey); v != "false" {
			t.Errorf("after clear #%d stored = %q", i+1, v)
		}
	}

	if _, err := callTool(t, env.server, "set_flag", nil); err == nil {
		t.Error("set_flag without value should fail")
	}
}

func TestReadFlagRefresh(t *testing.T) {
	env := newTestEnv(t)
	// Written by something that is not a subscribed view: only an explicit read sees it.
	env.origin.Put(domain.FlagKey, "true")

	res, _ := callTool(t, env.server, "read_flag", nil)
	if text := resultText(t, res); !strings.Contains(text, "newMessage=false") {
		t.Errorf("read_flag without refresh = %q", text)
	}
	res, _ = callTool(t, env.server, "read_flag", map[string]any{"refresh": true})
	if text := resultText(t, res); !strings.Contains(text, "newMessage=true") {
		t.Errorf("read_flag refresh = %q", text)
	}
}
