package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, cfg *Config, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestDefaults(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	cfg := Default()
	cfg.EnvFile = ""
	flags := newFlags(t, &cfg)

	require.NoError(t, cfg.Resolve(flags))
	assert.Equal(t, "ws://localhost:8080/ws", cfg.Endpoint)
	assert.False(t, cfg.Dev)
	assert.Empty(t, cfg.LogPath)
}

func TestFlagsParsed(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	cfg := Default()
	flags := newFlags(t, &cfg, "--endpoint", "wss://chat.example.com/ws", "--dev", "--logPath", "/tmp", "--env", "")

	require.NoError(t, cfg.Resolve(flags))
	assert.Equal(t, "wss://chat.example.com/ws", cfg.Endpoint)
	assert.True(t, cfg.Dev)
	assert.Equal(t, "/tmp", cfg.LogPath)
}

func TestEnvironmentOverridesDefault(t *testing.T) {
	t.Setenv(EnvEndpoint, "ws://10.0.0.1:9000/ws")
	cfg := Default()
	cfg.EnvFile = ""
	flags := newFlags(t, &cfg)

	require.NoError(t, cfg.Resolve(flags))
	assert.Equal(t, "ws://10.0.0.1:9000/ws", cfg.Endpoint)
}

func TestFlagBeatsEnvironment(t *testing.T) {
	t.Setenv(EnvEndpoint, "ws://10.0.0.1:9000/ws")
	cfg := Default()
	cfg.EnvFile = ""
	flags := newFlags(t, &cfg, "--endpoint", "ws://localhost:1234/ws")

	require.NoError(t, cfg.Resolve(flags))
	assert.Equal(t, "ws://localhost:1234/ws", cfg.Endpoint)
}

func TestEnvFileLoaded(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	os.Unsetenv(EnvEndpoint)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(EnvEndpoint+"=ws://from-file:8080/ws\n"), 0o600))

	cfg := Default()
	flags := newFlags(t, &cfg, "--env", envFile)

	require.NoError(t, cfg.Resolve(flags))
	assert.Equal(t, "ws://from-file:8080/ws", cfg.Endpoint)
}

func TestMissingEnvFileIgnored(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	cfg := Default()
	cfg.EnvFile = filepath.Join(t.TempDir(), "nope.env")

	assert.NoError(t, cfg.Resolve(nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		endpoint string
		wantErr  bool
	}{
		{"ws://localhost:8080/ws", false},
		{"wss://example.com/ws", false},
		{"http://localhost:8080/ws", true},
		{"localhost:8080", true},
		{"ws:///ws", true},
		{"://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			err := Config{Endpoint: tt.endpoint}.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
