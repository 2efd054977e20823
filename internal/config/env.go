package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const DefaultDotEnvPath = ".env"

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	p := strings.TrimSpace(path)
	if p == "" {
		p = DefaultDotEnvPath
	}
	if err := godotenv.Load(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", p, err)
	}
	return nil
}

// ResolveToken reads the API token from the variable named by the settings.
func ResolveToken(s Settings) (string, bool) {
	name := strings.TrimSpace(s.APITokenEnv)
	if name == "" {
		name = DefaultTokenEnv
	}
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
