// Game Server State and Transport
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

// Package server implements the stateful dama server: session and
// room registries, the message dispatcher and the timeout sweep.  All
// mutable state is guarded by a single mutex held across parse,
// dispatch, emit and sweep.
package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go-dama/conf"
	"go-dama/proto"
)

// An Endpoint is a return address for outbound messages.  The string
// form doubles as the binding key in the session registry, so it has
// to be stable for the lifetime of the peer address.
type Endpoint interface {
	fmt.Stringer
	Send(line []byte) error
}

type udpEndpoint struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

func (u *udpEndpoint) String() string { return u.addr.String() }

func (u *udpEndpoint) Send(line []byte) error {
	_, err := u.conn.WriteToUDP(line, u.addr)
	return err
}

// Server owns every player session and room.
type Server struct {
	conf *conf.Conf

	mu        sync.Mutex
	players   map[string]*Player // token -> session
	endpoints map[string]string  // endpoint key -> token
	rooms     map[int]*Room

	nextPlayerID int
	nextRoomID   int
	nextTable    int
	started      time.Time

	conn *net.UDPConn
}

// Prepare creates the server and registers it with the configuration.
func Prepare(c *conf.Conf) *Server {
	s := &Server{
		conf:         c,
		players:      make(map[string]*Player),
		endpoints:    make(map[string]string),
		rooms:        make(map[int]*Room),
		nextPlayerID: 1,
		nextRoomID:   1,
		nextTable:    1,
	}
	c.Register(s)
	if c.DiscoveryPort != 0 {
		c.Register(&discoverer{conf: c})
	}
	return s
}

func (s *Server) String() string {
	return fmt.Sprintf("Game socket (%s:%d)", s.conf.Host, s.conf.Port)
}

// Start binds the game socket and runs the receive loop.  The read
// deadline bounds the sweep latency while no traffic arrives.
func (s *Server) Start() {
	addr := &net.UDPAddr{
		IP:   net.ParseIP(s.conf.Host),
		Port: int(s.conf.Port),
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		s.conf.Log.Fatal(err)
	}
	s.mu.Lock()
	s.conn = conn
	s.started = time.Now()
	s.mu.Unlock()
	s.conf.Log.Printf("Listening on %s", conn.LocalAddr())

	buf := make([]byte, proto.MaxDatagram)
	for {
		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, raddr, err := conn.ReadFromUDP(buf)
		switch {
		case errors.Is(err, net.ErrClosed):
			return
		case errors.Is(err, os.ErrDeadlineExceeded):
			s.mu.Lock()
			s.sweep(time.Now())
			s.mu.Unlock()
			continue
		case err != nil:
			s.conf.Log.Printf("Receive failed: %s", err)
			continue
		}
		s.Handle(&udpEndpoint{conn: conn, addr: raddr}, string(buf[:n]))
	}
}

func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
}

// send transmits best-effort: a failed send is logged and swallowed,
// state already committed is never unwound.
func (s *Server) send(ep Endpoint, line []byte) {
	if err := ep.Send(line); err != nil {
		s.conf.Log.Printf("Failed to send to %s: %s", ep, err)
	}
	s.conf.Debug.Printf("-> %s: %q", ep, line)
}

// RoomInfo is a read-only view of a room for the status page.
type RoomInfo struct {
	ID      int
	Name    string
	Players int
	Status  string
}

// Stats is a point-in-time snapshot of the server for the web
// interface, taken under the lock.
type Stats struct {
	Players int
	Rooms   []RoomInfo
	Uptime  time.Duration
}

func (s *Server) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Players: len(s.players)}
	if !s.started.IsZero() {
		st.Uptime = time.Since(s.started).Round(time.Second)
	}
	for _, r := range s.sortedRooms() {
		st.Rooms = append(st.Rooms, RoomInfo{
			ID:      r.ID,
			Name:    r.Name,
			Players: len(r.Seats),
			Status:  r.Status.String(),
		})
	}
	return st
}
