package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("USER_CACHE_TTL", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "8008", cfg.Port)
	require.Equal(t, ":8008", cfg.Addr())
	require.Equal(t, DriverSQLite, cfg.DBDriver)
	require.Equal(t, 5*time.Minute, cfg.UserCacheTTL)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load([]string{"--port", "9100", "--db-driver", "postgres", "--db-dsn", "host=db user=app"})
	require.NoError(t, err)
	require.Equal(t, "9100", cfg.Port)
	require.Equal(t, DriverPostgres, cfg.DBDriver)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	_, err := Load([]string{"--db-driver", "mysql"})
	require.Error(t, err)
}

func TestLoad_RejectsBadCacheTTL(t *testing.T) {
	t.Setenv("USER_CACHE_TTL", "soon")
	_, err := Load(nil)
	require.Error(t, err)
}

// unsetenv clears key for the test and restores it afterwards.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_JWTSettingsFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("JWT_SECRET=from-dotenv-secret\nJWT_TTL=2h\n"), 0o600))
	chdir(t, dir)
	unsetenv(t, "JWT_SECRET")
	unsetenv(t, "JWT_TTL")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "from-dotenv-secret", cfg.JWTSecret)
	require.Equal(t, 2*time.Hour, cfg.JWTTTL)
	require.Equal(t, "project-management-api", cfg.JWTIssuer)
}

func TestLoad_EnvBeatsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET=from-dotenv-secret\n"), 0o600))
	chdir(t, dir)
	t.Setenv("JWT_SECRET", "from-environment")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "from-environment", cfg.JWTSecret)
}

func TestLoad_ReleaseModeNeedsSecret(t *testing.T) {
	chdir(t, t.TempDir())
	unsetenv(t, "JWT_SECRET")

	_, err := Load([]string{"--gin-mode", "release"})
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load([]string{"--gin-mode", "release"})
	require.NoError(t, err)
	require.Equal(t, "a-real-secret", cfg.JWTSecret)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
