package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", c.Relay.ListenAddress)
	assert.Equal(t, 256, c.Relay.SendBuffer)
	assert.Equal(t, 30*time.Second, c.Board.AutoSaveInterval)
	assert.Equal(t, 100, c.Undo.MaxSteps)
	assert.Equal(t, 300*time.Millisecond, c.Undo.MergeInterval)
	assert.Equal(t, slog.LevelInfo, c.SlogLevel())
}

func TestFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
storage:
  driver: sqlite
  dsn: boards.db
board:
  room: design
  autosave_interval: 5s
`), 0o600))
	t.Setenv("INKBOARD_BOARD_ROOM", "from-env")
	t.Setenv("INKBOARD_RELAY_SEND_BUFFER", "32")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.Storage.Driver)
	assert.Equal(t, "boards.db", c.Storage.DSN)
	assert.Equal(t, 5*time.Second, c.Board.AutoSaveInterval)
	assert.Equal(t, "from-env", c.Board.Room)
	assert.Equal(t, 32, c.Relay.SendBuffer)
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())
}

func TestMissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
