package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voltfront.ai/internal/observerproto"
	"voltfront.ai/internal/sim/power"
)

// Server fans turn telemetry out to websocket observers. The simulation
// driver pushes into it with Publish*; HTTP handlers never touch the engine.
type Server struct {
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	// AllowRemote disables the loopback-only check.
	AllowRemote bool

	mu        sync.Mutex
	sessions  map[string]*session
	bootstrap observerproto.BootstrapResponse

	dropTotal atomic.Uint64
}

type session struct {
	id  string
	out chan []byte

	mu  sync.Mutex
	sub observerproto.SubscribeMsg
}

func (s *session) settings() observerproto.SubscribeMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

func (s *session) update(sub observerproto.SubscribeMsg) {
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
}

func NewServer(logger *log.Logger) *Server {
	return &Server{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*session{},
		bootstrap: observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
		},
	}
}

// SetBootstrap replaces the document served by BootstrapHandler.
func (s *Server) SetBootstrap(b observerproto.BootstrapResponse) {
	b.ProtocolVersion = observerproto.Version
	s.mu.Lock()
	s.bootstrap = b
	s.mu.Unlock()
}

func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Dropped counts messages discarded because an observer fell behind.
func (s *Server) Dropped() uint64 { return s.dropTotal.Load() }

// PublishTurn sends a TURN message to every session, filtered by the
// session's network focus.
func (s *Server) PublishTurn(r power.TurnReport, highlighted int) {
	msg := observerproto.NewTurnMsg(r, highlighted)
	cache := map[int][]byte{}
	for _, sess := range s.currentSessions() {
		focus := sess.settings().NetworkID
		b, ok := cache[focus]
		if !ok {
			var err error
			b, err = json.Marshal(msg.Filter(focus))
			if err != nil {
				s.logf("observer: marshal turn: %v", err)
				return
			}
			cache[focus] = b
		}
		s.send(sess, b)
	}
}

// PublishSnapshot sends a SNAPSHOT message to sessions that subscribed to
// snapshots.
func (s *Server) PublishSnapshot(snap power.DebugSnapshot) {
	var b []byte
	for _, sess := range s.currentSessions() {
		if !sess.settings().Snapshots {
			continue
		}
		if b == nil {
			var err error
			b, err = json.Marshal(observerproto.NewSnapshotMsg(snap))
			if err != nil {
				s.logf("observer: marshal snapshot: %v", err)
				return
			}
		}
		s.send(sess, b)
	}
}

// WantsSnapshots lets the driver skip building a snapshot nobody reads.
func (s *Server) WantsSnapshots() bool {
	for _, sess := range s.currentSessions() {
		if sess.settings().Snapshots {
			return true
		}
	}
	return false
}

func (s *Server) currentSessions() []*session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

func (s *Server) send(sess *session, b []byte) {
	select {
	case sess.out <- b:
	default:
		s.dropTotal.Add(1)
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		s.mu.Lock()
		resp := s.bootstrap
		s.mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sess := &session{
			id:  fmt.Sprintf("O%d", s.nextID.Add(1)),
			out: make(chan []byte, 64),
			sub: sub,
		}
		s.mu.Lock()
		s.sessions[sess.id] = sess
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sess.id)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				sess.update(sub)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	if sub.NetworkID < 0 {
		sub.NetworkID = 0
	}
	return sub, true
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
