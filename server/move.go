// Move Handling
//
// Copyright (c) 2024, 2025
//
// This file is part of go-dama.
//
// go-dama is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-dama is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-dama. If not, see
// <http://www.gnu.org/licenses/>

package server

import (
	"fmt"
	"strings"
	"time"

	"go-dama"
	"go-dama/proto"
)

// handleMove applies one move to a room.  The board kernel only
// mutates on success, so a rejection leaves the room untouched.
func (s *Server) handleMove(p *Player, m *proto.Message, now time.Time) *reject {
	var coords [5]int
	for i := range coords {
		n, ok := m.Int(i)
		if !ok {
			return failf("INVALID_FORMAT", "Expected room id and four coordinates")
		}
		coords[i] = n
	}

	// Duplicated datagrams are recognised by the monotonic message
	// id and silently dropped.
	if m.ID <= p.LastMoveMsgID {
		return nil
	}

	r, ok := s.rooms[coords[0]]
	if !ok {
		return fail("ROOM_NOT_FOUND")
	}
	if r.Status != dama.InGame {
		return fail("ROOM_NOT_IN_GAME")
	}
	seat := r.seatIndex(p.Token)
	if seat < 0 {
		return fail("NOT_IN_ROOM")
	}
	if seatColor(seat) != r.Turn.Color() {
		return fail("NOT_YOUR_TURN")
	}
	if r.LastTurnAt.IsZero() || !s.allSeatsConnected(r) {
		return fail("GAME_PAUSED")
	}

	mover := seatColor(seat)
	from := dama.Square{Row: coords[1], Col: coords[2]}
	to := dama.Square{Row: coords[3], Col: coords[4]}

	res, err := r.Board.Move(mover, r.CaptureLock, from, to)
	if err != nil {
		rerr, ok := err.(dama.RuleError)
		if !ok {
			return failf("INVALID_MOVE", err.Error())
		}
		return fail(string(rerr))
	}

	p.LastMoveMsgID = m.ID
	if res.Continues {
		// The chain is not over: same player, same piece.
		lock := to
		r.CaptureLock = &lock
	} else {
		r.CaptureLock = nil
		if r.Turn == dama.Player1 {
			r.Turn = dama.Player2
		} else {
			r.Turn = dama.Player1
		}
	}
	r.LastTurnAt = now
	r.RemainingTurnMs = -1

	s.broadcastGameState(m.ID, r, now)

	if reason := winReason(r.Board, mover); reason != "" {
		s.sendGameEnd(m.ID, r, reason, mover)
	}
	return nil
}

// winReason inspects the opponent of MOVER after a move was applied
// and returns the terminal reason code, or "" while the game goes on.
func winReason(b dama.Board, mover dama.Color) string {
	opp := mover.Other()
	switch {
	case !b.HasPiece(opp):
		if mover == dama.White {
			return dama.ReasonWhiteWinNoPieces
		}
		return dama.ReasonBlackWinNoPieces
	case !b.HasMove(opp):
		if mover == dama.White {
			return dama.ReasonWhiteWinNoMoves
		}
		return dama.ReasonBlackWinNoMoves
	}
	return ""
}

// handleLegalMoves answers a destination query for one square.
func (s *Server) handleLegalMoves(p *Player, m *proto.Message) *reject {
	var coords [3]int
	for i := range coords {
		n, ok := m.Int(i)
		if !ok {
			return failf("INVALID_FORMAT", "Expected room id and coordinates")
		}
		coords[i] = n
	}

	r, ok := s.rooms[coords[0]]
	if !ok {
		return fail("ROOM_NOT_FOUND")
	}
	if r.Status != dama.InGame {
		return fail("ROOM_NOT_IN_GAME")
	}
	seat := r.seatIndex(p.Token)
	if seat < 0 {
		return fail("NOT_IN_ROOM")
	}
	if r.LastTurnAt.IsZero() || !s.allSeatsConnected(r) {
		return fail("GAME_PAUSED")
	}

	row, col := coords[1], coords[2]
	if !dama.InBoard(row, col) || !dama.DarkSquare(row, col) {
		return fail("INVALID_SQUARE")
	}

	mine := seatColor(seat)
	mustCapture := r.Board.HasCapture(mine) || r.CaptureLock != nil

	// A query the querier cannot act on is an error, not an empty
	// list: the client is told exactly why the square yields nothing.
	if r.CaptureLock != nil && *r.CaptureLock != (dama.Square{Row: row, Col: col}) {
		return fail("MUST_CONTINUE_CAPTURE")
	}
	switch piece := r.Board.Get(row, col); {
	case piece == dama.Empty:
		return fail("NO_PIECE")
	case dama.PieceColor(piece) != mine:
		return fail("NOT_YOUR_PIECE")
	}

	var dests []dama.Square
	if mustCapture {
		dests = r.Board.CaptureMoves(row, col)
	} else {
		dests = r.Board.SimpleMoves(row, col)
	}

	var list []string
	for _, d := range dests {
		list = append(list, d.String())
	}
	capture := "0"
	if mustCapture {
		capture = "1"
	}
	s.send(p.Endpoint, proto.Format(m.ID, "LEGAL_MOVES",
		fmt.Sprintf("room=%d", r.ID),
		fmt.Sprintf("from=%d,%d", row, col),
		"to="+strings.Join(list, "|"),
		"mustCapture="+capture))
	return nil
}
