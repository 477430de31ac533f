// Wire Protocol Codec
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

// Package proto implements the datagram text protocol: one message
// per datagram, formatted as
//
//	<id>;<TYPE>[;<param>]*[\n]
//
// where every parameter is positional and parameters of the form
// key=value are additionally exposed through a key/value view.
package proto

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxDatagram is the ingress cap per datagram.
const MaxDatagram = 1024

var errMalformed = errors.New("malformed message")

// Message is a parsed inbound datagram.
type Message struct {
	ID     int
	Type   string
	Params []string          // positional view, in wire order
	KV     map[string]string // key=value view, nil when absent
}

// Parse destructs a single protocol line.  Trailing whitespace and
// newlines are tolerated; everything else must match the grammar.
func Parse(raw string) (*Message, error) {
	raw = strings.TrimRight(raw, " \t\r\n")
	if raw == "" {
		return nil, errMalformed
	}

	parts := strings.Split(raw, ";")
	if len(parts) < 2 {
		return nil, errMalformed
	}

	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || id < 0 {
		return nil, errMalformed
	}

	typ := strings.TrimSpace(parts[1])
	if typ == "" {
		return nil, errMalformed
	}

	m := &Message{ID: id, Type: typ}
	for _, p := range parts[2:] {
		m.Params = append(m.Params, p)
		if k, v, ok := strings.Cut(p, "="); ok {
			if m.KV == nil {
				m.KV = make(map[string]string)
			}
			m.KV[k] = v
		}
	}
	return m, nil
}

// Int parses the I-th positional parameter as an integer.
func (m *Message) Int(i int) (int, bool) {
	if i >= len(m.Params) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(m.Params[i]))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Format renders an outbound message.  Each element of PARAMS is
// appended verbatim as one positional parameter, so key=value pairs
// are passed preformatted.  The trailing newline is included.
func Format(id int, typ string, params ...string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d;%s", id, typ)
	for _, p := range params {
		buf.WriteByte(';')
		buf.WriteString(p)
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// Error renders an ERROR reply, optionally with a free-text detail.
func Error(id int, code, detail string) []byte {
	if detail == "" {
		return Format(id, "ERROR", code)
	}
	return Format(id, "ERROR", code, detail)
}
