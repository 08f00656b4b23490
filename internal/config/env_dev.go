//go:build dev

package config

import (
	"os"

	"github.com/joho/godotenv"
)

func loadDotEnv() error {
	path := ".env"
	if custom := os.Getenv("ENV_FILE"); custom != "" {
		path = custom
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}
