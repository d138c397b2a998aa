package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voltfront.ai/internal/observerproto"
	"voltfront.ai/internal/sim/power"
)

func dial(t *testing.T, srv *httptest.Server, sub observerproto.SubscribeMsg) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func waitSessions(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Sessions() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("sessions=%d want %d", s.Sessions(), n)
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/ws", s.WSHandler())
	mux.HandleFunc("/observer/bootstrap", s.BootstrapHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return s, srv
}

func TestServer_PublishTurnFiltersByNetwork(t *testing.T) {
	s, srv := newTestServer(t)

	all := dial(t, srv, observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version})
	defer all.Close()
	focused := dial(t, srv, observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, NetworkID: 2})
	defer focused.Close()
	waitSessions(t, s, 2)

	s.PublishTurn(power.TurnReport{
		Turn:     4,
		Digest:   "d",
		Networks: []power.NetworkTelemetry{{ID: 1}, {ID: 2, StoredEnergy: 5}},
	}, 2)

	read := func(c *websocket.Conn) observerproto.TurnMsg {
		t.Helper()
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var m observerproto.TurnMsg
		if err := c.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}
	if m := read(all); m.Type != "TURN" || m.Turn != 4 || len(m.Networks) != 2 || m.Highlighted != 2 {
		t.Fatalf("all=%+v", m)
	}
	if m := read(focused); len(m.Networks) != 1 || m.Networks[0].StoredEnergy != 5 {
		t.Fatalf("focused=%+v", m)
	}
}

func TestServer_SnapshotsOnlyForSubscribers(t *testing.T) {
	s, srv := newTestServer(t)
	c := dial(t, srv, observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version})
	defer c.Close()
	waitSessions(t, s, 1)
	if s.WantsSnapshots() {
		t.Fatalf("no session asked for snapshots")
	}

	if err := c.WriteJSON(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, Snapshots: true}); err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !s.WantsSnapshots() {
		if time.Now().After(deadline) {
			t.Fatalf("resubscribe not applied")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.PublishSnapshot(power.DebugSnapshot{Turn: 9})
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m observerproto.SnapshotMsg
	if err := c.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.Type != "SNAPSHOT" || m.Snapshot.Turn != 9 {
		t.Fatalf("snapshot=%+v", m)
	}
}

func TestServer_RejectsBadSubscribe(t *testing.T) {
	s, srv := newTestServer(t)
	c := dial(t, srv, observerproto.SubscribeMsg{Type: "HELLO", ProtocolVersion: observerproto.Version})
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v want policy violation close", err)
	}
	if s.Sessions() != 0 {
		t.Fatalf("sessions=%d", s.Sessions())
	}
}

func TestServer_Bootstrap(t *testing.T) {
	s, srv := newTestServer(t)
	s.SetBootstrap(observerproto.BootstrapResponse{RunID: "run-1", Turn: 12, Kinds: []string{"battery"}})

	resp, err := http.Get(srv.URL + "/observer/bootstrap")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var b observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.RunID != "run-1" || b.Turn != 12 || b.ProtocolVersion != observerproto.Version {
		t.Fatalf("bootstrap=%+v", b)
	}

	post, err := http.Post(srv.URL+"/observer/bootstrap", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status=%d", post.StatusCode)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5555": true,
		"[::1]:80":       true,
		"10.0.0.3:1234":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", addr, got, want)
		}
	}
}
