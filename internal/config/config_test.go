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
	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data", conf.DataDir)
	assert.Equal(t, "notes.db", conf.DBFile)
	assert.Equal(t, 4, conf.Storage.MaxOpenConns)
	assert.Equal(t, 5*time.Second, conf.Storage.BusyTimeout)
	assert.Equal(t, 2, conf.Live.MaxConcurrentQueries)
	assert.Equal(t, "localhost:8090", conf.Server.Addr())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.yaml")
	yaml := `
data_dir: /tmp/notes
log:
  level: debug
storage:
  max_open_conns: 8
  busy_timeout: 2s
server:
  port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("MEMONOTES_LOG__FORMAT", "text")
	t.Setenv("MEMONOTES_SERVER__PORT", "9100")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/notes", conf.DataDir)
	assert.Equal(t, "debug", conf.Log.Level)
	assert.Equal(t, "text", conf.Log.Format)
	assert.Equal(t, 8, conf.Storage.MaxOpenConns)
	assert.Equal(t, 2*time.Second, conf.Storage.BusyTimeout)
	assert.Equal(t, 9100, conf.Server.Port)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "notes.db", conf.DBFile)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "storage.busy_timeout", envKey("MEMONOTES_STORAGE__BUSY_TIMEOUT"))
	assert.Equal(t, "data_dir", envKey("MEMONOTES_DATA_DIR"))
}
