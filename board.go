// Czech Draughts Board Implementation
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

// BoardSize is the side length of the playing board.
const BoardSize = 8

// Empty marks an unoccupied cell in the wire representation.
const Empty = '.'

// Board is the row-major wire representation of an 8x8 draughts
// board.  Cells hold '.', 'w', 'b' for men and 'W', 'B' for kings.
// All methods treat the board as authoritative; Move is the only one
// that mutates it.
type Board []byte

// MakeBoard returns the starting position: black men on the dark
// squares of rows 0-2, white men on the dark squares of rows 5-7.
func MakeBoard() Board {
	b := make(Board, BoardSize*BoardSize)
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			i := r*BoardSize + c
			b[i] = Empty
			if !DarkSquare(r, c) {
				continue
			}
			if r < 3 {
				b[i] = 'b'
			} else if r > 4 {
				b[i] = 'w'
			}
		}
	}
	return b
}

func (b Board) String() string { return string(b) }

// Copy returns a deep copy of the board.
func (b Board) Copy() Board {
	c := make(Board, len(b))
	copy(c, b)
	return c
}

// InBoard reports whether the coordinate lies on the board.
func InBoard(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// DarkSquare reports whether the square is playable.
func DarkSquare(row, col int) bool {
	return (row+col)%2 == 1
}

// PieceColor returns the owner of a cell value.
func PieceColor(p byte) Color {
	switch p {
	case 'w', 'W':
		return White
	case 'b', 'B':
		return Black
	default:
		return NoColor
	}
}

// IsKing reports whether the cell value is a promoted piece.
func IsKing(p byte) bool {
	return p == 'W' || p == 'B'
}

func (b Board) Get(row, col int) byte {
	i := row*BoardSize + col
	if i < 0 || i >= len(b) {
		return Empty
	}
	return b[i]
}

func (b Board) set(row, col int, p byte) {
	i := row*BoardSize + col
	if i < 0 || i >= len(b) {
		return
	}
	b[i] = p
}

// Count returns the number of pieces of COLOR on the board.
func (b Board) Count(color Color) (n int) {
	for _, p := range b {
		if PieceColor(p) == color {
			n++
		}
	}
	return
}

// directions lists the diagonal step vectors a piece may take.  Men
// only ever move and capture forwards; kings use all four diagonals.
func directions(p byte) [][2]int {
	if IsKing(p) {
		return [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	}
	if p == 'w' {
		return [][2]int{{-1, -1}, {-1, 1}}
	}
	return [][2]int{{1, -1}, {1, 1}}
}

// CanCaptureFrom reports whether the piece on (row, col) has at least
// one capture available.
func (b Board) CanCaptureFrom(row, col int) bool {
	p := b.Get(row, col)
	mine := PieceColor(p)
	if mine == NoColor {
		return false
	}

	for _, d := range directions(p) {
		dr, dc := d[0], d[1]
		if !IsKing(p) {
			tr, tc := row+2*dr, col+2*dc
			if !InBoard(tr, tc) || !DarkSquare(tr, tc) {
				continue
			}
			if b.Get(tr, tc) != Empty {
				continue
			}
			mid := b.Get(row+dr, col+dc)
			if PieceColor(mid) == mine.Other() {
				return true
			}
			continue
		}

		// Flying king: slide until blocked, a single enemy
		// with at least one empty square behind it is a jump.
		enemy := false
		for r, c := row+dr, col+dc; InBoard(r, c); r, c = r+dr, c+dc {
			cur := b.Get(r, c)
			if cur == Empty {
				if enemy {
					return true
				}
				continue
			}
			if PieceColor(cur) == mine || enemy {
				break
			}
			enemy = true
		}
	}
	return false
}

// HasCapture reports whether any piece of COLOR can capture.
func (b Board) HasCapture(color Color) bool {
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if PieceColor(b.Get(r, c)) != color {
				continue
			}
			if b.CanCaptureFrom(r, c) {
				return true
			}
		}
	}
	return false
}

// HasPiece reports whether COLOR has any piece left.
func (b Board) HasPiece(color Color) bool {
	return b.Count(color) > 0
}

// HasMove reports whether COLOR has any legal move, capture or not.
func (b Board) HasMove(color Color) bool {
	if b.HasCapture(color) {
		return true
	}
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			p := b.Get(r, c)
			if PieceColor(p) != color {
				continue
			}
			for _, d := range directions(p) {
				nr, nc := r+d[0], c+d[1]
				if !InBoard(nr, nc) || !DarkSquare(nr, nc) {
					continue
				}
				if b.Get(nr, nc) == Empty {
					return true
				}
			}
		}
	}
	return false
}

// SimpleMoves enumerates the non-capturing destinations of the piece
// on (row, col).
func (b Board) SimpleMoves(row, col int) []Square {
	p := b.Get(row, col)
	if PieceColor(p) == NoColor {
		return nil
	}

	var out []Square
	for _, d := range directions(p) {
		dr, dc := d[0], d[1]
		if !IsKing(p) {
			nr, nc := row+dr, col+dc
			if InBoard(nr, nc) && DarkSquare(nr, nc) && b.Get(nr, nc) == Empty {
				out = append(out, Square{nr, nc})
			}
			continue
		}
		for r, c := row+dr, col+dc; InBoard(r, c); r, c = r+dr, c+dc {
			if b.Get(r, c) != Empty {
				break
			}
			out = append(out, Square{r, c})
		}
	}
	return out
}

// CaptureMoves enumerates the capture destinations of the piece on
// (row, col).  For kings every empty square behind the jumped piece
// up to the next obstruction is a landing square.
func (b Board) CaptureMoves(row, col int) []Square {
	p := b.Get(row, col)
	mine := PieceColor(p)
	if mine == NoColor {
		return nil
	}

	var out []Square
	for _, d := range directions(p) {
		dr, dc := d[0], d[1]
		if !IsKing(p) {
			tr, tc := row+2*dr, col+2*dc
			if !InBoard(tr, tc) || !DarkSquare(tr, tc) {
				continue
			}
			if b.Get(tr, tc) != Empty {
				continue
			}
			mid := b.Get(row+dr, col+dc)
			if PieceColor(mid) == mine.Other() {
				out = append(out, Square{tr, tc})
			}
			continue
		}

		enemy := false
		for r, c := row+dr, col+dc; InBoard(r, c); r, c = r+dr, c+dc {
			cur := b.Get(r, c)
			if cur == Empty {
				if enemy {
					out = append(out, Square{r, c})
				}
				continue
			}
			if PieceColor(cur) == mine || enemy {
				break
			}
			enemy = true
		}
	}
	return out
}

// MoveResult describes a successfully applied move.
type MoveResult struct {
	Capture  bool
	Captured Square // meaningful iff Capture
	Promoted bool
	// Continues is set when the moved piece can capture again
	// from its landing square, ie. the capture chain is not over
	// and the turn must not rotate.
	Continues bool
}

// Move validates and applies a move for MOVER.  LOCK, when non-nil,
// is the square the player must continue capturing from.  The board
// is only mutated when the returned error is nil; errors are
// RuleError values carrying the wire code.
func (b Board) Move(mover Color, lock *Square, from, to Square) (MoveResult, error) {
	var res MoveResult

	if lock != nil && (from.Row != lock.Row || from.Col != lock.Col) {
		return res, ErrMustContinueCapture
	}
	if !InBoard(from.Row, from.Col) || !InBoard(to.Row, to.Col) {
		return res, ErrOutOfBoard
	}
	if !DarkSquare(from.Row, from.Col) || !DarkSquare(to.Row, to.Col) {
		return res, ErrInvalidSquare
	}

	piece := b.Get(from.Row, from.Col)
	if piece == Empty {
		return res, ErrNoPiece
	}
	if PieceColor(piece) != mover {
		return res, ErrNotYourPiece
	}
	if b.Get(to.Row, to.Col) != Empty {
		return res, ErrDestNotEmpty
	}

	dRow := to.Row - from.Row
	dCol := to.Col - from.Col
	if dRow == 0 || abs(dRow) != abs(dCol) {
		return res, ErrInvalidMove
	}

	captureAvailable := b.HasCapture(mover)

	var capture bool
	var captured Square

	if IsKing(piece) {
		stepRow, stepCol := sign(dRow), sign(dCol)
		enemies := 0
		for r, c := from.Row+stepRow, from.Col+stepCol; r != to.Row || c != to.Col; r, c = r+stepRow, c+stepCol {
			cur := b.Get(r, c)
			if cur == Empty {
				continue
			}
			if PieceColor(cur) == mover {
				return res, ErrInvalidMove
			}
			enemies++
			if enemies > 1 {
				return res, ErrInvalidMove
			}
			captured = Square{r, c}
		}
		capture = enemies == 1
		if !capture && captureAvailable {
			return res, ErrMustCapture
		}
	} else {
		simple := abs(dRow) == 1
		jump := abs(dRow) == 2
		if !simple && !jump {
			return res, ErrInvalidMove
		}

		forward := -1
		if mover == Black {
			forward = 1
		}
		if sign(dRow) != forward {
			return res, ErrInvalidDirection
		}

		if simple && captureAvailable {
			return res, ErrMustCapture
		}
		if jump {
			captured = Square{from.Row + dRow/2, from.Col + dCol/2}
			mid := b.Get(captured.Row, captured.Col)
			if PieceColor(mid) != mover.Other() {
				return res, ErrNoOpponentToCapture
			}
			capture = true
		}
	}

	// Validation is complete, apply the move.
	if capture {
		b.set(captured.Row, captured.Col, Empty)
	}
	b.set(to.Row, to.Col, piece)
	b.set(from.Row, from.Col, Empty)

	if !IsKing(piece) {
		if (mover == White && to.Row == 0) || (mover == Black && to.Row == BoardSize-1) {
			if mover == White {
				piece = 'W'
			} else {
				piece = 'B'
			}
			b.set(to.Row, to.Col, piece)
			res.Promoted = true
		}
	}

	res.Capture = capture
	res.Captured = captured
	if capture {
		res.Continues = len(b.CaptureMoves(to.Row, to.Col)) > 0
	}
	return res, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}
