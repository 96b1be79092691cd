package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, "localhost:8084", cfg.Address())
	assert.Equal(t, "token", cfg.Backend.SessionCookie)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SECURITY_TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")
	t.Setenv("POS_BASE_URL", "https://pos.example.com")
	t.Setenv("POS_RATE_LIMIT_RPS", "2.5")
	t.Setenv("REPORT_TIMEZONE", "Asia/Kolkata")
	t.Setenv("REPORTS_FILE", "reports.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, Duration(3*time.Second), cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Security.TrustedProxies)
	assert.Equal(t, "https://pos.example.com", cfg.Backend.BaseURL)
	assert.InDelta(t, 2.5, cfg.Backend.RateLimitRPS, 1e-9)
	assert.Equal(t, "reports.json", cfg.Data.ReportsFile)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoad_IgnoresUnparsableEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("SERVER_IDLE_TIMEOUT", "forever")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, Duration(60*time.Second), cfg.Server.IdleTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "fizzy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 7000
write_timeout = "45s"

[logger]
format = "text"

[backend]
base_url = "https://file.example.com"
max_concurrency = 8
rate_limit_rps = 1.5

[report]
timezone = "UTC"
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("POS_MAX_CONCURRENCY", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout.Std())
	assert.Equal(t, "text", cfg.Logger.Format)
	assert.Equal(t, "https://file.example.com", cfg.Backend.BaseURL)
	assert.InDelta(t, 1.5, cfg.Backend.RateLimitRPS, 1e-9)
	assert.Equal(t, 2, cfg.Backend.MaxConcurrency, "environment wins over the file")
	assert.Equal(t, "UTC", cfg.Report.Timezone)
	assert.Equal(t, Duration(10*time.Second), cfg.Server.ReadTimeout, "unset keys keep defaults")
}

func TestMergeFile_Durations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fizzy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
read_timeout = "5s"
shutdown_timeout = "1m30s"

[backend]
timeout = "250ms"
`), 0o600))

	cfg := Defaults()
	require.NoError(t, cfg.mergeFile(path))

	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 90*time.Second, cfg.Server.ShutdownTimeout.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Backend.Timeout.Std())
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout.Std())
}

func TestMergeFile_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fizzy.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nread_timeout = \"soon\"\n"), 0o600))

	err := Defaults().mergeFile(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("2m")))
	assert.Equal(t, 2*time.Minute, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2m0s", string(text))
	assert.Equal(t, "2m0s", d.String())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("POS_SESSION_COOKIE=fizzy_session\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("POS_SESSION_COOKIE") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fizzy_session", cfg.Backend.SessionCookie)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"zero concurrency", map[string]string{"POS_MAX_CONCURRENCY": "0"}},
		{"negative backend rps", map[string]string{"POS_RATE_LIMIT_RPS": "-1"}},
		{"unknown timezone", map[string]string{"REPORT_TIMEZONE": "Mars/Olympus"}},
		{"missing config file", map[string]string{"CONFIG_FILE": "does-not-exist.toml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLocation_Local(t *testing.T) {
	cfg := Defaults()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Same(t, time.Local, loc)
}
