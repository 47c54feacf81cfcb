package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"buddychat/internal/app/chat"
	"buddychat/internal/app/presence"
	"buddychat/internal/app/social"
	"buddychat/internal/app/transcript"
	"buddychat/internal/configs"
)

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:               "development",
		ConnectRate:               100,
		ConnectBurst:              100,
		EventRate:                 1000,
		EventBurst:                1000,
		MaxMessageBytes:           5000,
		MaxAvatarBytes:            1024,
		HistoryRequiresFriendship: true,
	}
}

func newTestServer(t *testing.T, cfg *configs.AppConfig) (*httptest.Server, *chat.Hub) {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics := chat.NewMetrics(reg)
	router := chat.NewRouter(presence.NewRegistry(), social.NewGraph(), transcript.NewStore(), chat.RouterOptions{
		MaxMessageBytes:           cfg.MaxMessageBytes,
		MaxAvatarBytes:            cfg.MaxAvatarBytes,
		HistoryRequiresFriendship: cfg.HistoryRequiresFriendship,
	}, metrics)
	hub := chat.NewHub(router, metrics)

	h, stop := Router(&AppDeps{Hub: hub, Config: cfg, Gatherer: reg})
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
		stop()
	})
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func expectType(t *testing.T, frame map[string]any, typ string) {
	t.Helper()
	if frame["type"] != typ {
		t.Fatalf("expected %s frame, got %v", typ, frame)
	}
}

func claim(t *testing.T, conn *websocket.Conn, name string) {
	t.Helper()
	sendFrame(t, conn, map[string]any{"type": "set_username", "username": name})
	set := readFrame(t, conn)
	expectType(t, set, "username_set")
	if set["username"] != name {
		t.Fatalf("expected username %q, got %v", name, set["username"])
	}
	expectType(t, readFrame(t, conn), "friend_list")
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	res, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	var body struct {
		Code int            `json:"code"`
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != 0 || body.Data["status"] != "ok" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	conn := dial(t, srv)
	claim(t, conn, "alice")

	res, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(body), `buddychat_events_total{type="set_username"} 1`) {
		t.Fatalf("expected set_username counter in metrics output")
	}
}

func TestConversationOverWebSocket(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	alice := dial(t, srv)
	bob := dial(t, srv)
	claim(t, alice, "alice")
	claim(t, bob, "bob")

	sendFrame(t, alice, map[string]any{"type": "chat_message", "to": "bob", "message": "too early"})
	notFriends := readFrame(t, alice)
	expectType(t, notFriends, "error")
	if notFriends["text"] != "Not friends" {
		t.Fatalf("expected Not friends, got %v", notFriends)
	}

	sendFrame(t, alice, map[string]any{"type": "friend_request", "to": "bob"})
	req := readFrame(t, bob)
	expectType(t, req, "friend_request")
	if req["from"] != "alice" {
		t.Fatalf("expected request from alice, got %v", req)
	}

	sendFrame(t, bob, map[string]any{"type": "friend_request_response", "from": "alice", "accept": true})
	if accepted := readFrame(t, alice); accepted["type"] != "friend_request_accepted" || accepted["friend"] != "bob" {
		t.Fatalf("unexpected frame for alice %v", accepted)
	}
	if accepted := readFrame(t, bob); accepted["type"] != "friend_request_accepted" || accepted["friend"] != "alice" {
		t.Fatalf("unexpected frame for bob %v", accepted)
	}

	sendFrame(t, alice, map[string]any{"type": "typing", "to": "bob"})
	typing := readFrame(t, bob)
	expectType(t, typing, "typing")

	sendFrame(t, alice, map[string]any{"type": "chat_message", "to": "bob", "message": "hello"})
	msg := readFrame(t, bob)
	expectType(t, msg, "chat_message")
	if msg["from"] != "alice" || msg["message"] != "hello" {
		t.Fatalf("unexpected chat frame %v", msg)
	}

	sendFrame(t, bob, map[string]any{"type": "get_conversation", "with": "alice"})
	history := readFrame(t, bob)
	expectType(t, history, "conversation_history")
	messages, ok := history["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("expected one stored message, got %v", history["messages"])
	}
}

func TestDuplicateNameAndReleaseOnClose(t *testing.T) {
	srv, hub := newTestServer(t, testConfig())
	first := dial(t, srv)
	claim(t, first, "alice")

	second := dial(t, srv)
	sendFrame(t, second, map[string]any{"type": "set_username", "username": "alice"})
	taken := readFrame(t, second)
	expectType(t, taken, "error")
	if taken["text"] != "Username taken" {
		t.Fatalf("expected Username taken, got %v", taken)
	}

	first.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Router().Status("alice") == chat.StatusOnline {
		if time.Now().After(deadline) {
			t.Fatal("expected alice to be released after close")
		}
		time.Sleep(10 * time.Millisecond)
	}

	claim(t, second, "alice")
}

func TestConnectRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectRate = 0.001
	cfg.ConnectBurst = 1
	srv, _ := newTestServer(t, cfg)

	dial(t, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected second connection to be refused")
	}
	if res == nil || res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", res)
	}
}

func TestStatusEndpointsRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	passed := 0
	for limited := false; !limited; {
		res, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatalf("get health: %v", err)
		}
		res.Body.Close()

		switch res.StatusCode {
		case http.StatusOK:
			passed++
		case http.StatusTooManyRequests:
			limited = true
		default:
			t.Fatalf("unexpected status %d", res.StatusCode)
		}
		if passed > 10*StatusBurst {
			t.Fatal("expected /health to be rate limited")
		}
	}
	if passed < StatusBurst {
		t.Fatalf("expected at least %d requests through, got %d", StatusBurst, passed)
	}

	res, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected /metrics to share the limit, got %d", res.StatusCode)
	}
}
