package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	DefaultEndpoint = "ws://localhost:8080/ws"
	DefaultEnvFile  = ".env"

	EnvEndpoint = "BLAB_ENDPOINT"
)

type Config struct {
	Endpoint string
	Dev      bool
	LogPath  string
	EnvFile  string
}

func Default() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		EnvFile:  DefaultEnvFile,
	}
}

func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "WebSocket endpoint of the chat server")
	flags.BoolVar(&c.Dev, "dev", c.Dev, "Development mode")
	flags.StringVar(&c.LogPath, "logPath", c.LogPath, "Path to save the log file")
	flags.StringVar(&c.EnvFile, "env", c.EnvFile, "Optional .env file to load")
}

// Resolve loads the env file and applies environment overrides for every
// setting not given explicitly on the command line, then validates the
// result. A missing env file is not an error.
func (c *Config) Resolve(flags *pflag.FlagSet) error {
	if c.EnvFile != "" {
		if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", c.EnvFile, err)
		}
	}

	if flags == nil || !flags.Changed("endpoint") {
		if v := os.Getenv(EnvEndpoint); v != "" {
			c.Endpoint = v
		}
	}

	return c.Validate()
}

func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid endpoint %q: scheme must be ws or wss", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", c.Endpoint)
	}
	return nil
}
