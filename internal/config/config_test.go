package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"HTTP_LISTEN_ADDR=:9999\nQUEUE_NAME=replica-test\nAUTH_TOKEN_TTL=1h\nPOSTGRES_WRITE_HOST=db\nHTTP_CORS_ORIGINS=a|b\n"), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"HTTP_LISTEN_ADDR", "QUEUE_NAME", "AUTH_TOKEN_TTL", "POSTGRES_WRITE_HOST", "HTTP_CORS_ORIGINS"} {
			os.Unsetenv(k)
		}
	})

	require.NoError(t, Load(path))
	c := Get()
	assert.Equal(t, ":9999", c.HttpListenAddr)
	assert.Equal(t, "replica-test", c.QueueName)
	assert.Equal(t, time.Hour, c.AuthTokenTTL)
	assert.Equal(t, "db", c.PostgresWrite().Host)
	assert.Equal(t, "5432", c.PostgresWrite().Port)
	assert.Equal(t, []string{"a", "b"}, c.HttpCORSOrigins)
	assert.Zero(t, c.HttpRequestTimeout)
	assert.Equal(t, "none", c.ReplicaSink)
	assert.NotEmpty(t, c.QueueConsumerName)
}

func TestLoad_MissingFile(t *testing.T) {
	assert.Error(t, Load("/does/not/exist.env"))
}

func TestArgEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.env")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	assert.Equal(t, path, ArgEnvPath([]string{"api", "--env=" + path}))
	assert.Equal(t, "", ArgEnvPath([]string{"api", "--env=/nope"}))
	assert.Equal(t, "", ArgEnvPath([]string{"api"}))
}
