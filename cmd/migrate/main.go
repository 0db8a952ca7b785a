package main

import (
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"
	"pushhook/internal/engine/dispatch"
	"pushhook/internal/pkg/logger"
	"pushhook/internal/platform/config"
	"pushhook/internal/platform/database"
	"pushhook/internal/platform/migrations"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up, down or status")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	vapid := flag.Bool("vapid", false, "Print a new VAPID key pair and exit")

	flag.Parse()

	if *vapid {
		privateKey, publicKey, err := dispatch.GenerateVAPIDKeys()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to generate VAPID keys")
		}
		fmt.Printf("PUSH_VAPID_PUBLIC_KEY=%s\nPUSH_VAPID_PRIVATE_KEY=%s\n", publicKey, privateKey)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	migrations.SetLogger(log.Logger)
	if err := migrations.Run(db.DB, db.Dialect, *direction); err != nil {
		log.Fatal().Err(err).Str("direction", *direction).Msg("Migration failed")
	}

	log.Info().Str("direction", *direction).Msg("Migration completed successfully")
}
