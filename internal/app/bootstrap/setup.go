package bootstrap

import (
	"fmt"

	"github.com/charmbracelet/log"

	"ipwarden/internal/config"
	"ipwarden/internal/database"
	"ipwarden/internal/trust"
)

// Setup loads the settings file, connects the database, and wires the trust
// pipeline the server and jobs share.
func Setup() (*trust.Service, error) {
	config.ReadSettings()

	if _, err := database.SetupDB(); err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	svc := trust.NewService()
	log.Debug("Trust pipeline wired")

	return svc, nil
}
