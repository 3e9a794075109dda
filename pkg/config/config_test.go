package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validYAML = `
environment: test
server:
  port: 9090
monitor:
  interval: 5s
  underlyings: [SPX]
  risk_free_rate: 0.05
feed:
  mode: sim
  sim_seed: 42
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Equal(t, "test", cfg.Environment)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.Monitor.Interval)
	require.Equal(t, []string{"SPX"}, cfg.Monitor.Underlyings)
	require.Equal(t, "sim", cfg.Feed.Mode)
	require.Equal(t, int64(42), cfg.Feed.SimSeed)
}

func TestLoadValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing environment", "feed:\n  mode: sim\nmonitor:\n  underlyings: [SPX]\n"},
		{"missing underlyings", "environment: test\nfeed:\n  mode: sim\n"},
		{"unknown feed mode", "environment: test\nfeed:\n  mode: carrier-pigeon\nmonitor:\n  underlyings: [SPX]\n"},
		{"ws without url", "environment: test\nfeed:\n  mode: ws\nmonitor:\n  underlyings: [SPX]\n"},
		{"kafka enabled without brokers", "environment: test\nfeed:\n  mode: sim\nmonitor:\n  underlyings: [SPX]\nkafka:\n  enabled: true\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("UNDERLYINGS", "SPX,XSP,NDX")
	t.Setenv("MONITOR_INTERVAL", "2s")
	t.Setenv("MONITOR_MAX_CONTRACTS", "250")
	t.Setenv("SIM_SEED", "7")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Equal(t, []string{"SPX", "XSP", "NDX"}, cfg.Monitor.Underlyings)
	require.Equal(t, 2*time.Second, cfg.Monitor.Interval)
	require.Equal(t, 250, cfg.Monitor.MaxContracts)
	require.Equal(t, int64(7), cfg.Feed.SimSeed)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
