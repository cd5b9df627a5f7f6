package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/saltyorg/norm/database"
	"github.com/saltyorg/norm/internal/logging"
)

// App is the environment-driven configuration of the norm binary.
type App struct {
	DB  database.Config `envPrefix:"NORM_DB_"`
	Log logging.Options `envPrefix:"NORM_LOG_"`
}

// Load reads App from the process environment.
func Load() (App, error) {
	var app App
	if err := ParseEnv(&app); err != nil {
		return App{}, err
	}
	return app, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
