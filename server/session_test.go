package server

import (
	"testing"
	"time"

	"go-dama"
)

func TestLoginConfig(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	s.Handle(ep, "1;LOGIN;alice")

	ok := ep.find(t, "LOGIN_OK")
	if ok.ID != 1 {
		t.Errorf("LOGIN_OK echoed id %d, want 1", ok.ID)
	}
	if ok.KV["player"] != "1" {
		t.Errorf("player = %q, want 1", ok.KV["player"])
	}
	token := ok.KV["token"]
	if len(token) != 16 {
		t.Errorf("token %q is not a 64-bit hex string", token)
	}

	cfg := ep.find(t, "CONFIG")
	if cfg.ID != 0 {
		t.Errorf("CONFIG is server-initiated, id %d", cfg.ID)
	}
	if cfg.KV["turnTimeoutMs"] != "60000" {
		t.Errorf("turnTimeoutMs = %q", cfg.KV["turnTimeoutMs"])
	}

	if s.players[token] == nil {
		t.Error("session is not token-keyed")
	}
	if s.endpoints[ep.String()] != token {
		t.Error("endpoint binding missing")
	}
}

func TestLoginIdempotent(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	token := login(t, s, ep, "alice")

	s.Handle(ep, "3;LOGIN;alice")
	ok := ep.find(t, "LOGIN_OK")
	if ok.KV["token"] != token {
		t.Errorf("repeated login issued a new token")
	}
	if len(s.players) != 1 {
		t.Errorf("%d sessions after repeated login", len(s.players))
	}

	ep.reset()
	s.Handle(ep, "4;LOGIN;eve")
	ep.findError(t, "ALREADY_LOGGED_IN")
}

func TestLoginValidation(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	for _, raw := range []string{
		"1;LOGIN",
		"1;LOGIN; ",
		"1;LOGIN;key=value",
		"1;LOGIN;" + string(make([]byte, 65)),
	} {
		ep.reset()
		s.Handle(ep, raw)
		ep.findError(t, "INVALID_FORMAT")
	}
	if len(s.players) != 0 {
		t.Errorf("%d sessions created by invalid logins", len(s.players))
	}
}

func TestServerFull(t *testing.T) {
	s := testServer()
	s.conf.MaxPlayers = 1

	a := &fakeEndpoint{name: "10.0.0.1:1111"}
	login(t, s, a, "alice")

	b := &fakeEndpoint{name: "10.0.0.2:2222"}
	s.Handle(b, "1;LOGIN;bob")
	b.findError(t, "SERVER_FULL")
}

func TestBye(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	login(t, s, ep, "alice")

	s.Handle(ep, "9;BYE")
	if m := ep.find(t, "BYE_OK"); m.ID != 9 {
		t.Errorf("BYE_OK echoed id %d, want 9", m.ID)
	}
	if len(s.players) != 0 || len(s.endpoints) != 0 {
		t.Error("session survived BYE")
	}

	// Saying goodbye twice is fine.
	ep.reset()
	s.Handle(ep, "10;BYE")
	ep.find(t, "BYE_OK")
}

func TestByeEndsGame(t *testing.T) {
	s := testServer()
	white, black, r := startGame(t, s)

	s.Handle(black, "9;BYE")
	end := white.find(t, "GAME_END")
	if end.KV["reason"] != dama.ReasonOpponentLeft {
		t.Errorf("reason = %q", end.KV["reason"])
	}
	if end.KV["winner"] != "WHITE" {
		t.Errorf("winner = %q, want WHITE", end.KV["winner"])
	}
	if r.Status != dama.Waiting || len(r.Seats) != 0 {
		t.Error("room was not reset")
	}
}

func TestInvalidMeter(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	login(t, s, ep, "alice")

	s.Handle(ep, "5;FROBNICATE")
	s.Handle(ep, "6;FROBNICATE")
	if len(s.players) != 1 {
		t.Fatal("dropped too early")
	}
	s.Handle(ep, "7;FROBNICATE")
	if len(s.players) != 0 {
		t.Error("session survived three strikes")
	}
}

func TestInvalidMeterWindow(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	token := login(t, s, ep, "alice")

	s.Handle(ep, "5;FROBNICATE")
	s.Handle(ep, "6;FROBNICATE")

	// Old strikes expire, the meter restarts at one.
	p := s.players[token]
	p.invalidWindow = time.Now().Add(-31 * time.Second)
	s.Handle(ep, "7;FROBNICATE")
	if len(s.players) != 1 {
		t.Error("expired strikes still counted")
	}
	if p.invalidCount != 1 {
		t.Errorf("invalidCount = %d, want 1", p.invalidCount)
	}
}

func TestLenientErrorsDoNotStrike(t *testing.T) {
	s := testServer()
	s.conf.MaxRooms = 0
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	token := login(t, s, ep, "alice")

	for i := 0; i < 5; i++ {
		s.Handle(ep, "5;CREATE_ROOM;x")
		ep.findError(t, "SERVER_FULL")
		ep.reset()
	}
	if s.players[token] == nil {
		t.Error("session dropped over capacity rejections")
	}
}

func TestRuleErrorsStrike(t *testing.T) {
	s := testServer()
	white, black, _ := startGame(t, s)
	btoken := s.endpoints[black.String()]

	// Black is not on turn; hammering MOVE anyway fills the meter
	// just like malformed messages would.
	for i := 0; i < 3; i++ {
		s.Handle(black, "9;MOVE;1;2;1;3;0")
		black.findError(t, "NOT_YOUR_TURN")
		black.reset()
	}
	if s.players[btoken] != nil {
		t.Error("session survived three rule violations")
	}
	end := white.find(t, "GAME_END")
	if end.KV["winner"] != "WHITE" {
		t.Errorf("winner = %q, want WHITE", end.KV["winner"])
	}
}
