package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cardlens/rectify"
	"github.com/cardlens/rectify/internal/config"
	"github.com/cardlens/rectify/internal/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to JSON config file (defaults apply when omitted)")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	engine := rectify.NewWithConfig(cfg)
	handler := server.NewHandler(engine, cfg.Server)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
	}

	log.Printf("rectify server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
