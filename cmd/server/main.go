// Package main is the entry point for the midiroll API server
package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/log"
	"github.com/james-see/midiroll/pkg/api"
	"github.com/james-see/midiroll/pkg/config"
)

func main() {
	configPath := flag.String("config", "midiroll.yaml", "Config file path")
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "midiroll-server"})
	logger.Info("starting API server", "port", cfg.Server.Port, "div", cfg.Quantize.Div)
	logger.Infof("swagger docs available at http://localhost:%d/swagger/index.html", cfg.Server.Port)

	if err := api.StartServer(cfg.Server.Port, cfg.Options()); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
