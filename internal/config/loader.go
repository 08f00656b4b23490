package config

import "fmt"

// LoadFromEnv reads the process environment. Builds tagged dev also read a
// .env file first.
func LoadFromEnv() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return Load(FromEnviron())
}
