// Common Types and Wire Codes
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

package dama

import "fmt"

type (
	Color      uint8
	Turn       uint8
	RoomStatus uint8
)

const (
	// Piece colors
	NoColor Color = iota
	White
	Black
)

const (
	// Whose turn it is in a room
	NoTurn Turn = iota
	Player1
	Player2
)

const (
	// Room lifecycle states
	Waiting RoomStatus = iota
	InGame
	Finished
)

func (c Color) String() string {
	switch c {
	case White:
		return "WHITE"
	case Black:
		return "BLACK"
	default:
		return "NONE"
	}
}

// Other returns the opposing color.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (t Turn) String() string {
	switch t {
	case Player1:
		return "PLAYER1"
	case Player2:
		return "PLAYER2"
	default:
		return "NONE"
	}
}

// Color returns the piece color the turn belongs to.  Seat 0 plays
// white and moves first, so PLAYER1 is always white.
func (t Turn) Color() Color {
	switch t {
	case Player1:
		return White
	case Player2:
		return Black
	default:
		return NoColor
	}
}

func (s RoomStatus) String() string {
	switch s {
	case Waiting:
		return "WAITING"
	case InGame:
		return "IN_GAME"
	case Finished:
		return "FINISHED"
	default:
		panic(fmt.Sprintf("Illegal room status: %d", uint8(s)))
	}
}

// Square is a board coordinate.  Only dark squares are playable.
type Square struct {
	Row, Col int
}

func (s Square) String() string {
	return fmt.Sprintf("%d,%d", s.Row, s.Col)
}

// RuleError is a move rejection whose string form is the wire error
// code sent back to the offending client.
type RuleError string

func (e RuleError) Error() string { return string(e) }

const (
	ErrOutOfBoard          RuleError = "OUT_OF_BOARD"
	ErrInvalidSquare       RuleError = "INVALID_SQUARE"
	ErrNoPiece             RuleError = "NO_PIECE"
	ErrNotYourPiece        RuleError = "NOT_YOUR_PIECE"
	ErrDestNotEmpty        RuleError = "DEST_NOT_EMPTY"
	ErrInvalidMove         RuleError = "INVALID_MOVE"
	ErrInvalidDirection    RuleError = "INVALID_DIRECTION"
	ErrMustCapture         RuleError = "MUST_CAPTURE"
	ErrMustContinueCapture RuleError = "MUST_CONTINUE_CAPTURE"
	ErrNoOpponentToCapture RuleError = "NO_OPPONENT_TO_CAPTURE"
)

// Terminal reason codes carried in GAME_END.
const (
	ReasonWhiteWinNoPieces = "WHITE_WIN_NO_PIECES"
	ReasonBlackWinNoPieces = "BLACK_WIN_NO_PIECES"
	ReasonWhiteWinNoMoves  = "WHITE_WIN_NO_MOVES"
	ReasonBlackWinNoMoves  = "BLACK_WIN_NO_MOVES"
	ReasonOpponentLeft     = "OPPONENT_LEFT"
	ReasonOpponentTimeout  = "OPPONENT_TIMEOUT"
	ReasonTurnTimeout      = "TURN_TIMEOUT"
)
