// Command migrate applies or rolls back the database schema.
package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"lab_booking/internal/config"
	"lab_booking/internal/logging"
	"lab_booking/internal/storage"
)

func main() {
	rollback := flag.Bool("rollback", false, "roll back the last applied migration")
	flag.Parse()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	db, err := storage.ConnectDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	if *rollback {
		if err := storage.RollbackLast(db); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		log.Info().Msg("last migration rolled back")
		return
	}

	if err := storage.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Int("migrations", len(storage.Migrations())).Msg("database is up to date")
}
