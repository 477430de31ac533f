package server

import (
	"strings"
	"testing"
	"time"

	"go-dama"
)

func boardOf(t *testing.T, rows ...string) dama.Board {
	t.Helper()
	if len(rows) != dama.BoardSize {
		t.Fatalf("%d rows", len(rows))
	}
	b := dama.Board(strings.Join(rows, ""))
	if len(b) != dama.BoardSize*dama.BoardSize {
		t.Fatalf("%d cells", len(b))
	}
	return b
}

func TestSimpleMove(t *testing.T) {
	s := testServer()
	white, black, r := startGame(t, s)

	s.Handle(white, "6;MOVE;1;5;0;4;1")

	for _, ep := range []*fakeEndpoint{white, black} {
		st := ep.find(t, "GAME_STATE")
		if st.ID != 6 {
			t.Errorf("echoed id %d, want 6", st.ID)
		}
		if st.KV["turn"] != "PLAYER2" {
			t.Errorf("turn = %q, want PLAYER2", st.KV["turn"])
		}
		board := st.KV["board"]
		if board[4*8+1] != 'w' || board[5*8+0] != '.' {
			t.Errorf("piece did not move: %q", board)
		}
	}
	if r.CaptureLock != nil {
		t.Error("capture lock set by a simple move")
	}
}

func TestMoveErrors(t *testing.T) {
	s := testServer()
	white, black, r := startGame(t, s)

	eve := &fakeEndpoint{name: "10.0.0.3:3333"}
	login(t, s, eve, "eve")

	for _, test := range []struct {
		ep   *fakeEndpoint
		raw  string
		code string
	}{
		{white, "6;MOVE;1;5;0", "INVALID_FORMAT"},
		{white, "6;MOVE;1;5;0;4;x", "INVALID_FORMAT"},
		{white, "6;MOVE;99;5;0;4;1", "ROOM_NOT_FOUND"},
		{eve, "6;MOVE;1;5;0;4;1", "NOT_IN_ROOM"},
		{black, "6;MOVE;1;2;1;3;0", "NOT_YOUR_TURN"},
		{white, "6;MOVE;1;2;1;3;0", "NOT_YOUR_PIECE"},
		{white, "6;MOVE;1;5;0;9;1", "OUT_OF_BOARD"},
		{white, "6;MOVE;1;5;0;3;0", "INVALID_MOVE"},
		{white, "6;MOVE;1;5;0;6;1", "DEST_NOT_EMPTY"},
	} {
		test.ep.reset()
		s.Handle(test.ep, test.raw)
		test.ep.findError(t, test.code)
		// Every rejection strikes the invalid-message meter; clear
		// it so the whole table runs against a live session.
		if tok := s.endpoints[test.ep.String()]; tok != "" {
			s.players[tok].invalidCount = 0
		}
	}

	// Nothing above may have advanced the game.
	if r.Turn != dama.Player1 {
		t.Errorf("turn advanced to %s", r.Turn)
	}
}

func TestMoveNotInGame(t *testing.T) {
	s := testServer()
	ep := &fakeEndpoint{name: "10.0.0.1:1111"}
	login(t, s, ep, "alice")
	s.Handle(ep, "2;CREATE_ROOM;x")
	ep.reset()

	s.Handle(ep, "6;MOVE;1;5;0;4;1")
	ep.findError(t, "ROOM_NOT_IN_GAME")
}

func TestMovePausedRoom(t *testing.T) {
	s := testServer()
	white, black, r := startGame(t, s)

	// Black drops off the net and the sweep pauses the room.
	btoken := s.endpoints[black.String()]
	s.players[btoken].LastSeen = time.Now().Add(-30 * time.Second)
	s.sweep(time.Now())
	white.reset()

	s.Handle(white, "6;MOVE;1;5;0;4;1")
	white.findError(t, "GAME_PAUSED")
	if !r.LastTurnAt.IsZero() {
		t.Error("clock restarted with a seat still paused")
	}
}

func TestMandatoryCapture(t *testing.T) {
	s := testServer()
	white, _, r := startGame(t, s)
	r.Board = boardOf(t,
		"........",
		"........",
		".....b..",
		"........",
		"...b....",
		"..w.....",
		"........",
		"........")

	s.Handle(white, "6;MOVE;1;5;2;4;1")
	white.findError(t, "MUST_CAPTURE")
	white.reset()

	s.Handle(white, "7;MOVE;1;5;2;3;4")
	st := white.find(t, "GAME_STATE")
	board := st.KV["board"]
	if board[4*8+3] != '.' {
		t.Errorf("captured piece still on the board: %q", board)
	}
	// A further capture exists from the landing square, so the
	// chain continues and the turn stays put.
	if st.KV["turn"] != "PLAYER1" {
		t.Errorf("turn = %q, want PLAYER1", st.KV["turn"])
	}
	if st.KV["lock"] != "3,4" {
		t.Errorf("lock = %q, want 3,4", st.KV["lock"])
	}
	if r.CaptureLock == nil || *r.CaptureLock != (dama.Square{Row: 3, Col: 4}) {
		t.Errorf("capture lock = %v", r.CaptureLock)
	}

	// Moving any other piece mid-chain is rejected.
	white.reset()
	s.Handle(white, "8;MOVE;1;5;2;4;1")
	white.findError(t, "MUST_CONTINUE_CAPTURE")

	// Finishing the chain rotates the turn.
	white.reset()
	s.Handle(white, "9;MOVE;1;3;4;1;6")
	st = white.find(t, "GAME_STATE")
	if st.KV["turn"] != "PLAYER2" {
		t.Errorf("turn = %q, want PLAYER2", st.KV["turn"])
	}
	if r.CaptureLock != nil {
		t.Error("capture lock survived the end of the chain")
	}
}

func TestMoveIdempotent(t *testing.T) {
	s := testServer()
	white, black, r := startGame(t, s)

	s.Handle(white, "6;MOVE;1;5;0;4;1")
	before := r.Board.String()
	white.reset()
	black.reset()

	// A duplicated datagram is dropped without any reply.
	s.Handle(white, "6;MOVE;1;5;0;4;1")
	if len(white.sent) != 0 || len(black.sent) != 0 {
		t.Errorf("replay produced output: %v %v", white.sent, black.sent)
	}
	if r.Board.String() != before {
		t.Error("replay mutated the board")
	}
	if r.Turn != dama.Player2 {
		t.Errorf("turn = %s, want PLAYER2", r.Turn)
	}
}

func TestMovePromotion(t *testing.T) {
	s := testServer()
	white, _, r := startGame(t, s)
	r.Board = boardOf(t,
		"........",
		"..w.....",
		"........",
		"........",
		"........",
		"b.......",
		"........",
		"........")

	s.Handle(white, "6;MOVE;1;1;2;0;3")
	st := white.find(t, "GAME_STATE")
	if st.KV["board"][0*8+3] != 'W' {
		t.Errorf("man was not promoted: %q", st.KV["board"])
	}
}

func TestMoveWinNoPieces(t *testing.T) {
	s := testServer()
	white, black, r := startGame(t, s)
	r.Board = boardOf(t,
		"........",
		"........",
		"........",
		"........",
		"...b....",
		"..w.....",
		"........",
		"........")

	s.Handle(white, "6;MOVE;1;5;2;3;4")
	for _, ep := range []*fakeEndpoint{white, black} {
		end := ep.find(t, "GAME_END")
		if end.KV["reason"] != dama.ReasonWhiteWinNoPieces {
			t.Errorf("reason = %q", end.KV["reason"])
		}
		if end.KV["winner"] != "WHITE" {
			t.Errorf("winner = %q", end.KV["winner"])
		}
	}
	if r.Status != dama.Waiting || len(r.Seats) != 0 {
		t.Error("room was not reset after the win")
	}
}

func TestMoveWinNoMoves(t *testing.T) {
	s := testServer()
	white, _, r := startGame(t, s)
	// Black's only man sits on the back rank with nowhere to go.
	r.Board = boardOf(t,
		"........",
		"........",
		"........",
		"........",
		"........",
		"..w.....",
		"........",
		"b.......")

	s.Handle(white, "6;MOVE;1;5;2;4;1")
	end := white.find(t, "GAME_END")
	if end.KV["reason"] != dama.ReasonWhiteWinNoMoves {
		t.Errorf("reason = %q", end.KV["reason"])
	}
}

func TestLegalMoves(t *testing.T) {
	s := testServer()
	white, _, r := startGame(t, s)

	s.Handle(white, "6;LEGAL_MOVES;1;5;0")
	m := white.find(t, "LEGAL_MOVES")
	if m.ID != 6 {
		t.Errorf("echoed id %d, want 6", m.ID)
	}
	if m.KV["from"] != "5,0" || m.KV["to"] != "4,1" {
		t.Errorf("unexpected destinations: %v", m.Params)
	}
	if m.KV["mustCapture"] != "0" {
		t.Errorf("mustCapture = %q, want 0", m.KV["mustCapture"])
	}

	r.Board = boardOf(t,
		"........",
		"........",
		"........",
		"........",
		"...b....",
		"..w.....",
		"........",
		"........")
	white.reset()
	s.Handle(white, "7;LEGAL_MOVES;1;5;2")
	m = white.find(t, "LEGAL_MOVES")
	if m.KV["to"] != "3,4" || m.KV["mustCapture"] != "1" {
		t.Errorf("unexpected capture listing: %v", m.Params)
	}

	white.reset()
	s.Handle(white, "8;LEGAL_MOVES;1;0;0")
	white.findError(t, "INVALID_SQUARE")
	white.reset()
	s.Handle(white, "9;LEGAL_MOVES;1;8;1")
	white.findError(t, "INVALID_SQUARE")
}

func TestLegalMovesErrors(t *testing.T) {
	s := testServer()
	white, black, r := startGame(t, s)

	for _, test := range []struct {
		raw  string
		code string
	}{
		{"6;LEGAL_MOVES;1;4;1", "NO_PIECE"},
		{"6;LEGAL_MOVES;1;2;1", "NOT_YOUR_PIECE"},
	} {
		white.reset()
		s.Handle(white, test.raw)
		white.findError(t, test.code)
		s.players[s.endpoints[white.String()]].invalidCount = 0
	}

	// Mid-chain, every square but the locked one is refused.
	lock := dama.Square{Row: 3, Col: 4}
	r.CaptureLock = &lock
	white.reset()
	s.Handle(white, "7;LEGAL_MOVES;1;5;0")
	white.findError(t, "MUST_CONTINUE_CAPTURE")
	r.CaptureLock = nil
	s.players[s.endpoints[white.String()]].invalidCount = 0

	// A paused room refuses the query outright.
	btoken := s.endpoints[black.String()]
	s.players[btoken].LastSeen = time.Now().Add(-30 * time.Second)
	s.sweep(time.Now())
	white.reset()
	s.Handle(white, "8;LEGAL_MOVES;1;5;0")
	white.findError(t, "GAME_PAUSED")
}
