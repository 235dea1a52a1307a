package config

import (
	_ "embed"

	"github.com/dvjones/twenty48/internal/engine"
)

//go:embed defaults/twenty48.yaml
var defaultYAML []byte

// Default returns the hardcoded default configuration.
func Default() Config {
	return Config{
		Board: BoardConfig{
			Rows: engine.DefaultRows,
			Cols: engine.DefaultCols,
		},
		Rules: RulesConfig{
			WinningTile:       engine.DefaultWinningTile,
			Spawn4Probability: engine.DefaultSpawn4Probability,
		},
		Storage: StorageConfig{
			HighScorePath: "~/.twenty48/highscore.dat",
			HistoryDBPath: "~/.twenty48/history.db",
		},
	}
}

// DefaultYAML returns the embedded default YAML document.
func DefaultYAML() []byte {
	return defaultYAML
}
