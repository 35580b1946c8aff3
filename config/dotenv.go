package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env.local and .env from the working directory.
// godotenv never overwrites variables that are already set, so the process
// environment wins over .env.local, which wins over .env.
// Returns the files actually loaded.
func LoadDotEnv() []string { return loadDotEnv(".") }

func loadDotEnv(dir string) []string {
	var loaded []string
	for _, name := range []string{".env.local", ".env"} {
		f := filepath.Join(dir, name)
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}
