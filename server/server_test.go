package server

import (
	"io"
	"log"
	"strings"
	"testing"

	"go-dama/conf"
	"go-dama/proto"
)

// fakeEndpoint records everything the server sends to it.
type fakeEndpoint struct {
	name string
	sent []string
}

func (f *fakeEndpoint) String() string { return f.name }

func (f *fakeEndpoint) Send(line []byte) error {
	f.sent = append(f.sent, strings.TrimRight(string(line), "\n"))
	return nil
}

func (f *fakeEndpoint) reset() { f.sent = nil }

// find returns the first recorded message of the requested type.
func (f *fakeEndpoint) find(t *testing.T, typ string) *proto.Message {
	t.Helper()
	for _, line := range f.sent {
		m, err := proto.Parse(line)
		if err != nil {
			t.Fatalf("unparsable reply %q: %v", line, err)
		}
		if m.Type == typ {
			return m
		}
	}
	t.Fatalf("no %s in %v", typ, f.sent)
	return nil
}

func (f *fakeEndpoint) findError(t *testing.T, code string) {
	t.Helper()
	m := f.find(t, "ERROR")
	if len(m.Params) == 0 || m.Params[0] != code {
		t.Fatalf("expected ERROR;%s, got %v", code, m.Params)
	}
}

func testConf() *conf.Conf {
	quiet := log.New(io.Discard, "", 0)
	return &conf.Conf{
		Log:   quiet,
		Debug: quiet,

		Host: "localhost",
		Port: 5000,

		MaxPlayers: 10,
		MaxRooms:   5,

		TimeoutMs:         20000,
		TimeoutGrace:      1,
		TurnTimeoutMs:     60000,
		ReconnectWindowMs: 60000,
	}
}

func testServer() *Server {
	return Prepare(testConf())
}

// login runs the LOGIN handshake and returns the issued token.
func login(t *testing.T, s *Server, ep *fakeEndpoint, nick string) string {
	t.Helper()
	s.Handle(ep, "1;LOGIN;"+nick)
	ok := ep.find(t, "LOGIN_OK")
	token := ok.KV["token"]
	if token == "" {
		t.Fatalf("no token in %v", ok.Params)
	}
	s.Handle(ep, "2;CONFIG_ACK")
	ep.reset()
	return token
}

// startGame brings a room into play.  The first endpoint holds seat 0
// and plays white.
func startGame(t *testing.T, s *Server) (white, black *fakeEndpoint, r *Room) {
	t.Helper()
	white = &fakeEndpoint{name: "10.0.0.1:1111"}
	black = &fakeEndpoint{name: "10.0.0.2:2222"}
	login(t, s, white, "alice")
	login(t, s, black, "bob")

	s.Handle(white, "3;CREATE_ROOM;x")
	if room := white.find(t, "CREATE_ROOM_OK").KV["room"]; room != "1" {
		t.Fatalf("unexpected room id %q", room)
	}
	s.Handle(white, "4;JOIN_ROOM;1")
	s.Handle(black, "4;JOIN_ROOM;1")

	r = s.rooms[1]
	if r == nil {
		t.Fatal("room was not created")
	}
	white.reset()
	black.reset()
	return white, black, r
}

func TestPing(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	s.Handle(ep, "7;PING")
	m := ep.find(t, "PONG")
	if m.ID != 7 {
		t.Errorf("PONG echoed id %d, want 7", m.ID)
	}
}

func TestNotLoggedIn(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	s.Handle(ep, "1;CREATE_ROOM;x")
	ep.findError(t, "NOT_LOGGED_IN")
}

func TestUnsupportedType(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	login(t, s, ep, "alice")
	s.Handle(ep, "5;FROBNICATE")
	ep.findError(t, "UNSUPPORTED_TYPE")
}

func TestInvalidFormat(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	for _, raw := range []string{"nonsense", ";;", "-1;PING"} {
		ep.reset()
		s.Handle(ep, raw)
		ep.findError(t, "INVALID_FORMAT")
	}
}
