// Configuration loading and dumping
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
	"io"
	"log"
	"os"

	"go-dama"

	"github.com/BurntSushi/toml"
)

// On-disk representation
type conf struct {
	Debug bool `toml:"debug"`
	Proto struct {
		Host      string `toml:"host"`
		Port      uint   `toml:"port"`
		Discovery uint   `toml:"discovery"`
	} `toml:"proto"`
	Limits struct {
		Players int `toml:"players"`
		Rooms   int `toml:"rooms"`
	} `toml:"limits"`
	Game struct {
		Timeout         int64 `toml:"timeout"`
		Grace           int   `toml:"grace"`
		TurnTimeout     int64 `toml:"turn-timeout"`
		ReconnectWindow int64 `toml:"reconnect-window"`
	} `toml:"game"`
	Web struct {
		Enabled   bool `toml:"enabled"`
		Port      uint `toml:"port"`
		Websocket bool `toml:"websocket"`
	} `toml:"web"`
}

// Parse a configuration from R over the defaults
func load(r io.Reader) (*Conf, error) {
	c := defaultConfig

	var data conf
	data.Proto.Host = c.Host
	data.Proto.Port = c.Port
	data.Proto.Discovery = c.DiscoveryPort
	data.Limits.Players = c.MaxPlayers
	data.Limits.Rooms = c.MaxRooms
	data.Game.Timeout = c.TimeoutMs
	data.Game.Grace = c.TimeoutGrace
	data.Game.TurnTimeout = c.TurnTimeoutMs
	data.Game.ReconnectWindow = c.ReconnectWindowMs
	data.Web.Enabled = c.WebInterface
	data.Web.Port = c.WebPort
	data.Web.Websocket = c.WebSocket

	_, err := toml.NewDecoder(r).Decode(&data)
	if err != nil {
		return nil, err
	}

	if data.Debug {
		debug = true
	}
	c.Host = data.Proto.Host
	c.Port = data.Proto.Port
	c.DiscoveryPort = data.Proto.Discovery
	c.MaxPlayers = data.Limits.Players
	c.MaxRooms = data.Limits.Rooms
	c.TimeoutMs = data.Game.Timeout
	c.TimeoutGrace = data.Game.Grace
	c.TurnTimeoutMs = data.Game.TurnTimeout
	c.ReconnectWindowMs = data.Game.ReconnectWindow
	c.WebInterface = data.Web.Enabled
	c.WebPort = data.Web.Port
	c.WebSocket = data.Web.Websocket

	return &c, nil
}

// Load reads the configuration file (if available) and applies the
// logging flags.  flag.Parse must have run.
func Load() *Conf {
	var c *Conf

	file, err := os.Open(cfile)
	if err != nil {
		if !os.IsNotExist(err) || cfile != defconf {
			log.Fatal(err)
		}
		def := defaultConfig
		c = &def
	} else {
		defer file.Close()
		c, err = load(file)
		if err != nil {
			log.Fatal(err)
		}
	}

	c.Log = log.Default()
	c.Debug = dama.Debug
	switch {
	case debug:
		c.Debug.SetOutput(os.Stderr)
		log.Default().SetFlags(log.LstdFlags | log.Lshortfile)
		c.Debug.Println("Debug logging has been enabled")
	case silent:
		c.Log.SetOutput(io.Discard)
	}

	// Dump the configuration onto stdout if requested
	if dump {
		if err := c.Dump(os.Stdout); err != nil {
			log.Fatalln("Failed to dump configuration:", err)
		}
		os.Exit(0)
	}

	return c
}

// Serialise the configuration into a writer
func (c *Conf) Dump(wr io.Writer) error {
	var data conf

	data.Proto.Host = c.Host
	data.Proto.Port = c.Port
	data.Proto.Discovery = c.DiscoveryPort
	data.Limits.Players = c.MaxPlayers
	data.Limits.Rooms = c.MaxRooms
	data.Game.Timeout = c.TimeoutMs
	data.Game.Grace = c.TimeoutGrace
	data.Game.TurnTimeout = c.TurnTimeoutMs
	data.Game.ReconnectWindow = c.ReconnectWindowMs
	data.Web.Enabled = c.WebInterface
	data.Web.Port = c.WebPort
	data.Web.Websocket = c.WebSocket

	return toml.NewEncoder(wr).Encode(data)
}
