// Room Registry and State Machine
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
	"sort"
	"strings"
	"time"

	"go-dama"
	"go-dama/proto"
)

// Room is a two-seat game container.  Rooms persist across games and
// are reset to WAITING on every terminal transition.
type Room struct {
	ID     int
	Name   string
	Status dama.RoomStatus
	Seats  []string // player tokens, seat 0 plays white
	Turn   dama.Turn
	Board  dama.Board

	// CaptureLock points at the square the player on turn must
	// keep capturing from, nil outside a chain.
	CaptureLock *dama.Square

	// LastTurnAt anchors the turn clock.  The zero value means the
	// clock is frozen and RemainingTurnMs holds the remainder;
	// otherwise RemainingTurnMs is -1.
	LastTurnAt      time.Time
	RemainingTurnMs int64
}

func seatColor(i int) dama.Color {
	if i == 0 {
		return dama.White
	}
	return dama.Black
}

func (r *Room) seatIndex(token string) int {
	for i, t := range r.Seats {
		if t == token {
			return i
		}
	}
	return -1
}

func (s *Server) sortedRooms() []*Room {
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

// roomsOf lists the rooms a player occupies, in id order.
func (s *Server) roomsOf(p *Player) []*Room {
	var out []*Room
	for _, r := range s.sortedRooms() {
		if r.seatIndex(p.Token) >= 0 {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) allSeatsConnected(r *Room) bool {
	for _, t := range r.Seats {
		p := s.players[t]
		if p == nil || !p.Connected {
			return false
		}
	}
	return true
}

func (s *Server) handleListRooms(p *Player, m *proto.Message) *reject {
	rooms := s.sortedRooms()
	if len(rooms) == 0 {
		s.send(p.Endpoint, proto.Format(m.ID, "ROOMS_EMPTY"))
		return nil
	}
	for _, r := range rooms {
		s.send(p.Endpoint, proto.Format(m.ID, "ROOM",
			fmt.Sprintf("id=%d", r.ID),
			"name="+r.Name,
			fmt.Sprintf("players=%d", len(r.Seats)),
			"status="+r.Status.String()))
	}
	return nil
}

func (s *Server) handleCreateRoom(p *Player, m *proto.Message) *reject {
	if len(m.Params) < 1 {
		return failf("INVALID_FORMAT", "Missing name")
	}
	if detail := checkName(strings.TrimSpace(m.Params[0])); detail != "" {
		return failf("INVALID_FORMAT", detail)
	}
	if len(s.rooms) >= s.conf.MaxRooms {
		return fail("SERVER_FULL")
	}

	// The client-supplied name is validated but replaced with a
	// server-assigned table label.
	r := &Room{
		ID:              s.nextRoomID,
		Name:            fmt.Sprintf("Table %d", s.nextTable),
		Status:          dama.Waiting,
		RemainingTurnMs: -1,
	}
	s.nextRoomID++
	s.nextTable++
	s.rooms[r.ID] = r
	s.conf.Log.Printf("Player %d created room %d (%s)", p.ID, r.ID, r.Name)

	s.send(p.Endpoint, proto.Format(m.ID, "CREATE_ROOM_OK",
		fmt.Sprintf("room=%d", r.ID), "name="+r.Name))
	return nil
}

func (s *Server) handleJoinRoom(p *Player, m *proto.Message, now time.Time) *reject {
	id, ok := m.Int(0)
	if !ok {
		return failf("INVALID_FORMAT", "Missing room id")
	}
	r, ok := s.rooms[id]
	if !ok {
		return fail("ROOM_NOT_FOUND")
	}

	if r.seatIndex(p.Token) < 0 {
		if r.Status != dama.Waiting {
			return fail("ROOM_NOT_AVAILABLE")
		}
		if len(r.Seats) >= 2 {
			return fail("ROOM_FULL")
		}
		r.Seats = append(r.Seats, p.Token)
	}
	s.send(p.Endpoint, proto.Format(m.ID, "JOIN_ROOM_OK",
		fmt.Sprintf("room=%d", r.ID),
		fmt.Sprintf("players=%d/2", len(r.Seats))))

	if r.Status == dama.Waiting && len(r.Seats) == 2 {
		s.startGame(m.ID, r, now)
	}
	return nil
}

// startGame transitions a full room into play.  ID is the id of the
// join that filled the second seat, echoed to both players.
func (s *Server) startGame(id int, r *Room, now time.Time) {
	r.Status = dama.InGame
	r.Turn = dama.Player1
	r.Board = dama.MakeBoard()
	r.CaptureLock = nil
	r.LastTurnAt = now
	r.RemainingTurnMs = -1
	s.conf.Log.Printf("Room %d (%s): game started", r.ID, r.Name)

	for i, t := range r.Seats {
		p := s.players[t]
		if p == nil {
			continue
		}
		params := []string{
			fmt.Sprintf("room=%d", r.ID),
			"you=" + seatColor(i).String(),
		}
		if other := s.players[r.Seats[1-i]]; other != nil {
			params = append(params, "opponent="+other.Nick)
		}
		s.send(p.Endpoint, proto.Format(id, "GAME_START", params...))
	}
	s.broadcastGameState(id, r, now)
}

func (s *Server) handleLeaveRoom(p *Player, m *proto.Message) *reject {
	id, ok := m.Int(0)
	if !ok {
		return failf("INVALID_FORMAT", "Missing room id")
	}
	r, ok := s.rooms[id]
	if !ok {
		return fail("ROOM_NOT_FOUND")
	}
	if r.seatIndex(p.Token) < 0 {
		return fail("NOT_IN_ROOM")
	}

	s.send(p.Endpoint, proto.Format(m.ID, "LEAVE_ROOM_OK",
		fmt.Sprintf("room=%d", r.ID)))
	s.vacateSeat(m.ID, r, p, dama.ReasonOpponentLeft)
	return nil
}

// vacateSeat removes a player from a room.  An abandoned game is won
// by the remaining seat; an emptied room is reset.
func (s *Server) vacateSeat(id int, r *Room, p *Player, reason string) {
	i := r.seatIndex(p.Token)
	if i < 0 {
		return
	}
	r.Seats = append(r.Seats[:i], r.Seats[i+1:]...)

	if r.Status == dama.InGame && len(r.Seats) == 1 {
		// Seat colors were fixed at game start, so the remaining
		// seat keeps the color of its original index.
		winner := seatColor(1 - i)
		s.sendGameEnd(id, r, reason, winner)
		return
	}
	if len(r.Seats) == 0 {
		s.resetRoom(r)
	}
}

// sendGameEnd declares a terminal result to every remaining seat and
// resets the room.  Sweep-initiated results pass id 0.
func (s *Server) sendGameEnd(id int, r *Room, reason string, winner dama.Color) {
	r.Status = dama.Finished
	s.conf.Log.Printf("Room %d (%s): game over, %s, winner %s",
		r.ID, r.Name, reason, winner)
	line := proto.Format(id, "GAME_END",
		fmt.Sprintf("room=%d", r.ID),
		"reason="+reason,
		"winner="+winner.String())
	for _, t := range r.Seats {
		if p := s.players[t]; p != nil && p.Connected {
			s.send(p.Endpoint, line)
		}
	}
	s.resetRoom(r)
}

func (s *Server) resetRoom(r *Room) {
	r.Status = dama.Waiting
	r.Seats = nil
	r.Turn = dama.NoTurn
	r.Board = nil
	r.CaptureLock = nil
	r.LastTurnAt = time.Time{}
	r.RemainingTurnMs = -1
}

// remainingMs evaluates the turn clock: the frozen remainder while
// paused, the live countdown otherwise.
func (s *Server) remainingMs(r *Room, now time.Time) int64 {
	if r.LastTurnAt.IsZero() {
		if r.RemainingTurnMs >= 0 {
			return r.RemainingTurnMs
		}
		return s.conf.TurnTimeoutMs
	}
	rem := s.conf.TurnTimeoutMs - now.Sub(r.LastTurnAt).Milliseconds()
	if rem < 0 {
		rem = 0
	}
	return rem
}

// freezeClock stops the turn clock, measuring the elapsed turn time
// against EFF rather than the wall clock so that a stalled server
// does not eat into the remainder.
func (s *Server) freezeClock(r *Room, eff time.Time) {
	if r.LastTurnAt.IsZero() {
		return
	}
	rem := s.conf.TurnTimeoutMs - eff.Sub(r.LastTurnAt).Milliseconds()
	if rem < 0 {
		rem = 0
	}
	r.RemainingTurnMs = rem
	r.LastTurnAt = time.Time{}
}

// unfreezeLiveRooms restarts the clock of any frozen room of P whose
// seats are all reachable again.  An outage freeze leaves both seats
// connected and unpaused, so nothing but returning traffic would ever
// resume such a room.
func (s *Server) unfreezeLiveRooms(p *Player, now time.Time) {
	for _, r := range s.roomsOf(p) {
		if r.Status != dama.InGame || !r.LastTurnAt.IsZero() {
			continue
		}
		if s.allSeatsConnected(r) {
			s.conf.Debug.Printf("Room %d: resuming after outage", r.ID)
			s.resumeRoom(r, now)
		}
	}
}

// resumeRoom re-anchors a frozen clock so the remainder is preserved.
func (s *Server) resumeRoom(r *Room, now time.Time) {
	if !r.LastTurnAt.IsZero() {
		return
	}
	rem := r.RemainingTurnMs
	if rem < 0 {
		rem = s.conf.TurnTimeoutMs
	}
	r.LastTurnAt = now.Add(-time.Duration(s.conf.TurnTimeoutMs-rem) * time.Millisecond)
	r.RemainingTurnMs = -1
}

// pauseRoom freezes the clock and notifies the seats that can still
// be reached.
func (s *Server) pauseRoom(r *Room, eff time.Time) {
	s.freezeClock(r, eff)
	for _, t := range r.Seats {
		if p := s.players[t]; p != nil && p.Connected {
			s.sendGamePaused(r, p)
		}
	}
}

// sendGamePaused tells TO when the absent opponent forfeits.  The
// advertised deadline is the latest resume deadline among the paused
// seats, as wall-clock milliseconds.
func (s *Server) sendGamePaused(r *Room, to *Player) {
	var by time.Time
	for _, t := range r.Seats {
		p := s.players[t]
		if p != nil && p.Paused && p.ResumeDeadline.After(by) {
			by = p.ResumeDeadline
		}
	}
	if by.IsZero() {
		by = time.Now().Add(s.conf.ReconnectWindow())
	}
	s.send(to.Endpoint, proto.Format(0, "GAME_PAUSED",
		fmt.Sprintf("room=%d", r.ID),
		fmt.Sprintf("resumeBy=%d", by.UnixMilli())))
}

// broadcastGameState emits the authoritative room state to both
// seats, echoing the id of the triggering request (0 when the server
// acts on its own).
func (s *Server) broadcastGameState(id int, r *Room, now time.Time) {
	params := []string{
		fmt.Sprintf("room=%d", r.ID),
		"turn=" + r.Turn.String(),
		"board=" + r.Board.String(),
		fmt.Sprintf("remainingMs=%d", s.remainingMs(r, now)),
	}
	if r.CaptureLock != nil {
		params = append(params, "lock="+r.CaptureLock.String())
	}
	line := proto.Format(id, "GAME_STATE", params...)
	for _, t := range r.Seats {
		if p := s.players[t]; p != nil && p.Connected {
			s.send(p.Endpoint, line)
		}
	}
}
