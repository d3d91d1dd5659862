package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/numclash/go-server/internal/httpserver"
	"github.com/numclash/go-server/internal/lobby"
	"github.com/numclash/go-server/internal/match"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(getEnv("DB_PATH", "./data/numclash.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	lobbies := lobby.NewRegistry()
	matches := match.NewStore()
	srv := httpserver.New(lobbies, matches, db)

	port := getEnv("PORT", "5180")
	log.Info().Str("port", port).Msg("starting numclash server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
