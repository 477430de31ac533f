// Timeout Sweep
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
	"time"

	"go-dama"
)

// sweep runs all periodic checks.  It is invoked with the lock held,
// after every handled datagram and on every receive timeout, so its
// accuracy is bounded by the 500 ms read deadline.  Timers are state
// values, not OS timers.
func (s *Server) sweep(now time.Time) {
	s.resendConfigs(now)
	s.freezeOutageRooms(now)
	s.checkHeartbeats(now)
	s.checkTurnClocks(now)
	s.expireReconnects(now)
	s.reapOrphanedRooms(now)
}

func (s *Server) resendConfigs(now time.Time) {
	for _, p := range s.players {
		if p.Connected && !p.ConfigAcked &&
			now.Sub(p.lastConfigSent) >= configResend {
			s.sendConfig(p, now)
		}
	}
}

// freezeOutageRooms detects a stall of the server itself: when every
// seat of an in-game room has been silent past the pause threshold,
// the turn clock is frozen against the most recent sign of life so
// the outage is not billed to the player on turn.
func (s *Server) freezeOutageRooms(now time.Time) {
	threshold := s.conf.PauseThreshold()
	for _, r := range s.rooms {
		if r.Status != dama.InGame || r.LastTurnAt.IsZero() {
			continue
		}
		var latest time.Time
		stale := true
		for _, t := range r.Seats {
			p := s.players[t]
			if p == nil {
				continue
			}
			if now.Sub(p.LastSeen) <= threshold {
				stale = false
				break
			}
			if p.LastSeen.After(latest) {
				latest = p.LastSeen
			}
		}
		if stale && !latest.IsZero() {
			s.conf.Debug.Printf("Room %d: freezing clock after outage", r.ID)
			s.freezeClock(r, latest)
		}
	}
}

func (s *Server) checkHeartbeats(now time.Time) {
	deadline := s.conf.HeartbeatTimeout()
	for _, p := range s.players {
		if p.Paused || now.Sub(p.LastSeen) <= deadline {
			continue
		}
		s.conf.Log.Printf("Player %d (%s) timed out, pausing", p.ID, p.Nick)
		p.Connected = false
		p.Paused = true
		p.ResumeDeadline = now.Add(s.conf.ReconnectWindow())

		for _, r := range s.roomsOf(p) {
			if r.Status == dama.InGame {
				s.pauseRoom(r, now)
			} else {
				s.vacateSeat(0, r, p, dama.ReasonOpponentLeft)
			}
		}
	}
}

func (s *Server) checkTurnClocks(now time.Time) {
	for _, r := range s.rooms {
		if r.Status != dama.InGame || r.LastTurnAt.IsZero() {
			continue
		}
		if now.Sub(r.LastTurnAt).Milliseconds() <= s.conf.TurnTimeoutMs {
			continue
		}
		// The player on turn forfeits.
		loser := r.Turn.Color()
		winner := dama.NoColor
		for i, t := range r.Seats {
			if seatColor(i) != loser && s.players[t] != nil {
				winner = seatColor(i)
			}
		}
		s.sendGameEnd(0, r, dama.ReasonTurnTimeout, winner)
	}
}

func (s *Server) expireReconnects(now time.Time) {
	var expired []*Player
	for _, p := range s.players {
		if p.Paused && !p.ResumeDeadline.IsZero() && now.After(p.ResumeDeadline) {
			expired = append(expired, p)
		}
	}
	for _, p := range expired {
		s.conf.Log.Printf("Player %d (%s) never reconnected, dropping",
			p.ID, p.Nick)
		for _, r := range s.roomsOf(p) {
			if r.Status != dama.InGame {
				s.vacateSeat(0, r, p, dama.ReasonOpponentTimeout)
				continue
			}
			// The opponent wins if they are still live, that is
			// connected or within their own grace window.
			winner := dama.NoColor
			for i, t := range r.Seats {
				if t == p.Token {
					continue
				}
				o := s.players[t]
				if o == nil {
					continue
				}
				if !o.Paused || now.Before(o.ResumeDeadline) {
					winner = seatColor(i)
				}
			}
			s.sendGameEnd(0, r, dama.ReasonOpponentTimeout, winner)
		}
		for key, t := range s.endpoints {
			if t == p.Token {
				delete(s.endpoints, key)
			}
		}
		delete(s.players, p.Token)
	}
}

// reapOrphanedRooms resets in-game rooms nobody can come back to.
func (s *Server) reapOrphanedRooms(now time.Time) {
	for _, r := range s.rooms {
		if r.Status != dama.InGame {
			continue
		}
		orphaned := true
		for _, t := range r.Seats {
			p := s.players[t]
			if p == nil {
				continue
			}
			if p.Connected || now.Before(p.ResumeDeadline) {
				orphaned = false
				break
			}
		}
		if orphaned {
			s.conf.Debug.Printf("Room %d: orphaned, resetting", r.ID)
			s.resetRoom(r)
		}
	}
}
