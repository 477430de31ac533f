// WebSocket Bridge
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

package web

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// The bridge carries the same public protocol as the game
	// socket, so cross-origin pages may connect.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsEndpoint adapts a WebSocket connection to the server's endpoint
// abstraction.  The "ws:" prefix keeps the binding key disjoint from
// UDP addresses.  All writes happen under the server lock, which
// satisfies the one-writer requirement of the connection.
type wsEndpoint struct {
	conn *websocket.Conn
}

func (w *wsEndpoint) String() string {
	return "ws:" + w.conn.RemoteAddr().String()
}

func (w *wsEndpoint) Send(line []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, line)
}

// socket upgrades an HTTP request and feeds each text frame through
// the regular dispatcher, one message per frame just like one message
// per datagram.
func (w *Web) socket(wr http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(wr, req, nil)
	if err != nil {
		w.conf.Log.Printf("Failed to upgrade %s: %s", req.RemoteAddr, err)
		return
	}
	defer conn.Close()
	w.conf.Debug.Printf("WebSocket peer %s connected", conn.RemoteAddr())

	ep := &wsEndpoint{conn: conn}
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			// The session stays alive until the heartbeat
			// timeout, a reconnect can resume it.
			w.conf.Debug.Printf("WebSocket peer %s gone: %s",
				conn.RemoteAddr(), err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		w.game.Handle(ep, string(data))
	}
}
