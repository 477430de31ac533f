// Server Entry Point
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

package main

import (
	"flag"

	"go-dama/conf"
	"go-dama/server"
	"go-dama/web"
)

func main() {
	flag.Parse()
	c := conf.Load()

	game := server.Prepare(c)
	if c.WebInterface {
		web.Prepare(c, game)
	}

	c.Start()
}
