package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"arena-server/arena"
	"arena-server/config"
	"arena-server/game"
	"arena-server/protocol"
	"arena-server/store"
)

// ---------- helpers ----------

type testServer struct {
	srv   *httptest.Server
	wsURL string
	hub   *Hub
	db    *store.DB
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.MaxPortal = 0
	cfg.Network.UpdateRate = 30
	cfg.Network.MaxViolations = 3
	cfg.Admin.Password = "hunter2"
	cfg.Server.PublicURL = "http://arena.example"
	return cfg
}

// startTestServer spins up an httptest.Server with a running arena.
func startTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644)

	db, err := store.OpenDB(filepath.Join(tmpDir, "arena.sqlite3"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	events := store.NewEvents(db)
	auth, err := NewAuth(db, events, cfg.Admin)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}

	a := arena.New(game.NewWorld(cfg), arena.WithRecorder(events))
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)

	hub := NewHub(a, cfg, db, auth, events)
	srv := httptest.NewServer(SetupRoutes(hub, tmpDir))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-a.Done()
		events.Stop()
		db.Close()
	})
	return &testServer{
		srv:   srv,
		wsURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:   hub,
		db:    db,
	}
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, b []byte) {
	t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// readUntil reads binary messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func([]byte) bool) []byte {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if match(raw) {
			return raw
		}
	}
}

func readEvent(t *testing.T, conn *websocket.Conn, typ string) *protocol.Envelope {
	t.Helper()
	var env *protocol.Envelope
	readUntil(t, conn, typ, func(raw []byte) bool {
		if raw[0] != protocol.OpEvent {
			return false
		}
		e, err := protocol.DecodeEvent(raw)
		if err != nil {
			t.Fatalf("decode event: %v", err)
		}
		env = e
		return e.T == typ
	})
	return env
}

func spawn(t *testing.T, conn *websocket.Conn, name, token string) protocol.Welcome {
	t.Helper()
	write(t, conn, protocol.AppendSpawn(nil, 1280, 720, name, token))
	w, err := protocol.DecodePayload[protocol.Welcome](readEvent(t, conn, protocol.EventWelcome))
	if err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	return w
}

// ---------- tests ----------

func TestSpawnReceivesFullFrame(t *testing.T) {
	ts := startTestServer(t, testConfig())
	conn := dialWS(t, ts.wsURL)

	w := spawn(t, conn, "alice", "")
	if w.Name != "alice" || w.ID == 0 {
		t.Fatalf("welcome = %+v", w)
	}

	raw := readUntil(t, conn, "full frame", func(b []byte) bool { return b[0] == protocol.OpWorldFull })
	f, err := protocol.DecodeFrame(raw)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if f.Self.ID != w.ID || len(f.Self.Cells) != 1 {
		t.Errorf("self = %+v", f.Self)
	}

	raw = readUntil(t, conn, "delta frame", func(b []byte) bool {
		return b[0] == protocol.OpWorldFull || b[0] == protocol.OpWorldDelta
	})
	if raw[0] != protocol.OpWorldDelta {
		t.Errorf("second frame opcode = %#x, want delta", raw[0])
	}
}

func TestPingPongOverSocket(t *testing.T) {
	ts := startTestServer(t, testConfig())
	conn := dialWS(t, ts.wsURL)
	write(t, conn, []byte{protocol.OpPing})
	readUntil(t, conn, "pong", func(b []byte) bool { return len(b) == 1 && b[0] == protocol.OpPong })
}

func TestChatBetweenPlayers(t *testing.T) {
	ts := startTestServer(t, testConfig())
	a := dialWS(t, ts.wsURL)
	b := dialWS(t, ts.wsURL)
	spawn(t, a, "al", "")
	spawn(t, b, "bo", "")

	write(t, a, protocol.AppendChat(nil, "hi <i>bo</i>"))
	c, err := protocol.DecodePayload[protocol.Chat](readEvent(t, b, protocol.EventChat))
	if err != nil {
		t.Fatal(err)
	}
	if c.Sender != "al" || c.Text != "hi bo" {
		t.Errorf("chat = %+v", c)
	}
}

func TestAdminLoginAndKick(t *testing.T) {
	ts := startTestServer(t, testConfig())
	admin := dialWS(t, ts.wsURL)
	victim := dialWS(t, ts.wsURL)
	spawn(t, admin, "mod", "")
	spawn(t, victim, "troll", "")

	write(t, admin, protocol.AppendCommand(nil, "login", "wrong"))
	r, _ := protocol.DecodePayload[protocol.Reason](readEvent(t, admin, protocol.EventServerMsg))
	if !strings.Contains(r.Message, "incorrect") {
		t.Fatalf("bad password reply = %q", r.Message)
	}

	write(t, admin, protocol.AppendCommand(nil, "login", "hunter2"))
	tok, err := protocol.DecodePayload[protocol.AdminToken](readEvent(t, admin, protocol.EventAdminToken))
	if err != nil || tok.Token == "" {
		t.Fatalf("no admin token: %v", err)
	}
	if err := ts.hub.auth.ValidateAdminToken(tok.Token); err != nil {
		t.Errorf("issued token rejected: %v", err)
	}

	write(t, admin, protocol.AppendCommand(nil, "kick", "troll", "being", "rude"))
	r, _ = protocol.DecodePayload[protocol.Reason](readEvent(t, victim, protocol.EventKick))
	if r.Message != "being rude" {
		t.Errorf("kick reason = %q", r.Message)
	}
}

func TestProtocolViolationsDisconnect(t *testing.T) {
	ts := startTestServer(t, testConfig())
	conn := dialWS(t, ts.wsURL)
	for i := 0; i < 4; i++ {
		conn.WriteMessage(websocket.BinaryMessage, []byte{0x7f})
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestInviteQRCode(t *testing.T) {
	ts := startTestServer(t, testConfig())
	resp, err := http.Get(ts.srv.URL + "/invite.png?size=128")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("status %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Errorf("body is not a PNG")
	}
}

func TestInviteDisabledWithoutURL(t *testing.T) {
	cfg := testConfig()
	cfg.Server.PublicURL = ""
	ts := startTestServer(t, cfg)
	resp, err := http.Get(ts.srv.URL + "/invite.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	ts := startTestServer(t, testConfig())

	resp, err := http.Get(ts.srv.URL + "/leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	var rows []store.SessionRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(rows) != 0 {
		t.Errorf("expected no sessions yet, got %d", len(rows))
	}

	// A finished session shows up once the event writer flushes.
	ts.hub.events.Session("al", 250, time.Minute, "")
	ts.hub.events.Stop()
	resp, err = http.Get(ts.srv.URL + "/leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "al" || rows[0].PeakMass != 250 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestStaticFilesNoCache(t *testing.T) {
	ts := startTestServer(t, testConfig())
	resp, err := http.Get(ts.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 || resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("status %d, cache-control %q", resp.StatusCode, resp.Header.Get("Cache-Control"))
	}
}

func TestConnectionLimitPerIP(t *testing.T) {
	ts := startTestServer(t, testConfig())
	for i := 0; i < maxConnsPerIP; i++ {
		dialWS(t, ts.wsURL)
	}
	// The handler counts a connection after the upgrade completes
	deadline := time.Now().Add(2 * time.Second)
	for ts.hub.TotalConns() < maxConnsPerIP && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL, nil)
	if err == nil {
		t.Fatalf("connection beyond the per-IP limit accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for the extra connection")
	}
}
