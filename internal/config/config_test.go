package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 5, cfg.Game.BoardSlots)
	assert.Equal(t, 4, cfg.Game.OpeningHand)
	assert.Equal(t, 6, cfg.Game.DiceSides)
	assert.Equal(t, "", cfg.Catalog.CSVPath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `server:
  address: ":9090"
game:
  board_slots: 7
  dice_sides: 20
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 7, cfg.Game.BoardSlots)
	assert.Equal(t, 20, cfg.Game.DiceSides)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 4, cfg.Game.OpeningHand)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidBoardSlots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("game:\n  board_slots: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidDiceSides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("game:\n  dice_sides: 1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
