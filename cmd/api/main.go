package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/oklib/courseflow/internal/pkg/logger"
	"github.com/oklib/courseflow/internal/server"
)

func main() {
	// Optional; real deployments set the environment directly.
	_ = godotenv.Load()

	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
