// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/gps_simulator/internal/app"
	"github.com/relabs-tech/gps_simulator/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to KEY=VALUE config file")
	flag.Parse()

	log.Println("starting gps-simulator console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
