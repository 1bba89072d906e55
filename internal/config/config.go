package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Game    GameConfig    `mapstructure:"game"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig covers the websocket gateway.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// GameConfig covers match rules tunables.
type GameConfig struct {
	BoardSlots  int `mapstructure:"board_slots"`
	OpeningHand int `mapstructure:"opening_hand"`
	DiceSides   int `mapstructure:"dice_sides"`
}

// CatalogConfig covers card definition loading.
type CatalogConfig struct {
	CSVPath string `mapstructure:"csv_path"`
}

// LoggingConfig covers logger initialization.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given YAML file with environment
// overrides (prefix ARENA, dots replaced by underscores). Every key has a
// default, so a missing file still yields a runnable configuration.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("game.board_slots", 5)
	v.SetDefault("game.opening_hand", 4)
	v.SetDefault("game.dice_sides", 6)
	v.SetDefault("catalog.csv_path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Game.BoardSlots < 1 {
		return nil, fmt.Errorf("game.board_slots must be at least 1, got %d", cfg.Game.BoardSlots)
	}
	if cfg.Game.DiceSides < 2 {
		return nil, fmt.Errorf("game.dice_sides must be at least 2, got %d", cfg.Game.DiceSides)
	}

	return &cfg, nil
}
