// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/rehab_computer/internal/app"
	"github.com/relabs-tech/rehab_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "rehab_config.txt", "path to KEY=VALUE config file")
	flag.Parse()

	log.Println("starting rehab-computer console")

	// Load configuration; a missing file means defaults plus environment
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
