// Web Status Interface
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

// Package web serves a read-only status page and, optionally, a
// WebSocket bridge that speaks the same protocol as the game socket.
package web

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go-dama/conf"
	"go-dama/server"
)

//go:embed index.tmpl
var indexSrc string

type Web struct {
	conf *conf.Conf
	game *server.Server
	tmpl *template.Template
	srv  *http.Server
}

// Prepare wires the web interface and registers it with the
// configuration.
func Prepare(c *conf.Conf, game *server.Server) *Web {
	w := &Web{
		conf: c,
		game: game,
		tmpl: template.Must(template.New("index").Parse(indexSrc)),
	}
	c.Register(w)
	return w
}

func (w *Web) String() string {
	return fmt.Sprintf("Web interface (:%d)", w.conf.WebPort)
}

func (w *Web) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", w.index)
	mux.HandleFunc("/robots.txt", func(wr http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(wr, "User-agent: *\nDisallow: /\n")
	})
	if w.conf.WebSocket {
		mux.HandleFunc("/socket", w.socket)
	}

	w.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", w.conf.WebPort),
		Handler: mux,
	}
	err := w.srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		w.conf.Log.Fatal(err)
	}
}

func (w *Web) index(wr http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(wr, req)
		return
	}
	if err := w.tmpl.Execute(wr, w.game.Snapshot()); err != nil {
		w.conf.Log.Printf("Failed to render status page: %s", err)
	}
}

func (w *Web) Shutdown() {
	if w.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.srv.Shutdown(ctx)
}
