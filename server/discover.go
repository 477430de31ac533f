// Discovery Responder
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
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"go-dama/conf"
	"go-dama/proto"
)

// discoverer answers LAN broadcasts so clients can find the game
// socket without configuration.
type discoverer struct {
	conf *conf.Conf

	mu   sync.Mutex
	conn *net.UDPConn
}

func (d *discoverer) String() string {
	return fmt.Sprintf("Discovery responder (:%d)", d.conf.DiscoveryPort)
}

func (d *discoverer) Start() {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(d.conf.DiscoveryPort)})
	if err != nil {
		d.conf.Log.Fatal(err)
	}
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()

	buf := make([]byte, 64)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if errors.Is(err, net.ErrClosed) {
			return
		} else if err != nil {
			d.conf.Log.Printf("Discovery receive failed: %s", err)
			continue
		}
		if strings.TrimSpace(string(buf[:n])) != "DISCOVER" {
			continue
		}

		reply := proto.Format(0, "ENDPOINT",
			"host="+d.hostFor(raddr),
			fmt.Sprintf("port=%d", d.conf.Port))
		if _, err := conn.WriteToUDP(reply, raddr); err != nil {
			d.conf.Log.Printf("Discovery reply to %s failed: %s", raddr, err)
		}
	}
}

// hostFor picks the address to advertise.  An explicit bind address
// is authoritative; a wildcard bind is resolved to the local address
// a datagram towards the requester would leave from.
func (d *discoverer) hostFor(raddr *net.UDPAddr) string {
	if ip := net.ParseIP(d.conf.Host); ip != nil && !ip.IsUnspecified() {
		return d.conf.Host
	}
	probe, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return d.conf.Host
	}
	defer probe.Close()
	return probe.LocalAddr().(*net.UDPAddr).IP.String()
}

func (d *discoverer) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
	}
}
