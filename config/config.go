// Package config loads server settings from defaults, an optional .env file
// and SCHOOLS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SCHOOLS"

type Config struct {
	Port           int
	DB             string
	AllowedOrigins []string
}

// Load reads configuration. dotEnvPath may be empty; a missing file is not
// an error.
func Load(dotEnvPath string) (*Config, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", dotEnvPath, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("port", 8080)
	v.SetDefault("db", "schools.db")
	v.SetDefault("allowed_origins", "http://localhost:5173,http://localhost:8080")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	port := v.GetInt("port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("config: invalid port %d", port)
	}

	return &Config{
		Port:           port,
		DB:             v.GetString("db"),
		AllowedOrigins: splitList(v.GetString("allowed_origins")),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
