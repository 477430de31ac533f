// Configuration Specification
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

package conf

import (
	"flag"
	"log"
	"time"
)

const defconf = "go-dama.toml"

func init() {
	def := &defaultConfig

	flag.StringVar(&def.Host, "host", def.Host,
		"Address to bind the game socket to")
	flag.UintVar(&def.Port, "port", def.Port,
		"Port to use for the game socket")
	flag.UintVar(&def.DiscoveryPort, "discovery-port", def.DiscoveryPort,
		"Port to answer DISCOVER broadcasts on")
	flag.IntVar(&def.MaxPlayers, "players", def.MaxPlayers,
		"Number of concurrent sessions the server admits")
	flag.IntVar(&def.MaxRooms, "rooms", def.MaxRooms,
		"Number of rooms the server provides")
	flag.Int64Var(&def.TimeoutMs, "timeout-ms", def.TimeoutMs,
		"Heartbeat timeout in milliseconds")
	flag.IntVar(&def.TimeoutGrace, "timeout-grace", def.TimeoutGrace,
		"Multiplier applied to the heartbeat timeout")
	flag.Int64Var(&def.TurnTimeoutMs, "turn-timeout-ms", def.TurnTimeoutMs,
		"Per-turn clock in milliseconds")
	flag.Int64Var(&def.ReconnectWindowMs, "reconnect-window-ms", def.ReconnectWindowMs,
		"Grace window for token reconnects in milliseconds")

	flag.BoolVar(&def.WebInterface, "www", def.WebInterface,
		"Enable the web status interface")
	flag.UintVar(&def.WebPort, "wwwport", def.WebPort,
		"Port to use for the HTTP server")
	flag.BoolVar(&def.WebSocket, "websocket", def.WebSocket,
		"Enable WebSocket connections")

	flag.BoolVar(&debug, "debug", debug, "Enable debug output")
	flag.BoolVar(&silent, "silent", silent, "Disable all log output")
	flag.BoolVar(&dump, "dump-config", dump, "Dump configuration to standard output")
	flag.StringVar(&cfile, "conf", cfile, "Path to configuration file")
}

// Conf is the effective server configuration.
type Conf struct {
	Log   *log.Logger
	Debug *log.Logger

	// Transport configuration
	Host          string // Address the game socket binds to
	Port          uint   // Game socket port
	DiscoveryPort uint   // Discovery responder port, 0 disables

	// Admission limits
	MaxPlayers int
	MaxRooms   int

	// Clocks, all in milliseconds on the wire and flags
	TimeoutMs         int64
	TimeoutGrace      int
	TurnTimeoutMs     int64
	ReconnectWindowMs int64

	// Website configuration
	WebInterface bool
	WebPort      uint
	WebSocket    bool

	// Internal state
	man []Manager // List of system managers
	run bool      // Running flag
}

// Configuration object used by default
var defaultConfig = Conf{
	Host:          "0.0.0.0",
	Port:          5000,
	DiscoveryPort: 9999,

	MaxPlayers: 10,
	MaxRooms:   5,

	TimeoutMs:         20000,
	TimeoutGrace:      1,
	TurnTimeoutMs:     60000,
	ReconnectWindowMs: 60000,

	WebInterface: true,
	WebPort:      8080,
	WebSocket:    true,
}

var (
	debug  = false
	silent = false
	dump   = false
	cfile  = defconf
)

// HeartbeatTimeout is the effective heartbeat deadline.
func (c *Conf) HeartbeatTimeout() time.Duration {
	return time.Duration(c.TimeoutMs*int64(c.TimeoutGrace)) * time.Millisecond
}

// PauseThreshold is the staleness bound used to detect a server-side
// outage: never more than 12 seconds, never more than the heartbeat.
func (c *Conf) PauseThreshold() time.Duration {
	hb := c.HeartbeatTimeout()
	if hb > 12*time.Second {
		return 12 * time.Second
	}
	return hb
}

// TurnTimeout is the per-turn clock.
func (c *Conf) TurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeoutMs) * time.Millisecond
}

// ReconnectWindow is the grace period granted to paused sessions.
func (c *Conf) ReconnectWindow() time.Duration {
	return time.Duration(c.ReconnectWindowMs) * time.Millisecond
}
