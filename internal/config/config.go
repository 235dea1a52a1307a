// Package config provides YAML-based configuration loading for the
// twenty48 session controller.
package config

// Config contains all settings for a twenty48 installation.
type Config struct {
	Board   BoardConfig   `yaml:"board"`
	Rules   RulesConfig   `yaml:"rules"`
	Storage StorageConfig `yaml:"storage"`
}

// BoardConfig defines the board dimensions.
type BoardConfig struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// RulesConfig defines the game rules.
type RulesConfig struct {
	WinningTile       int     `yaml:"winning_tile"`
	Spawn4Probability float64 `yaml:"spawn4_probability"`
}

// StorageConfig defines where durable state lives.
type StorageConfig struct {
	HighScorePath string `yaml:"high_score_path"`
	HistoryDBPath string `yaml:"history_db_path"`
}

// Normalize fills zero-valued fields with the defaults. Explicitly set
// but unplayable values are left alone so they surface as errors at game
// construction instead of being silently corrected.
func (c *Config) Normalize() {
	def := Default()

	if c.Board.Rows == 0 {
		c.Board.Rows = def.Board.Rows
	}
	if c.Board.Cols == 0 {
		c.Board.Cols = def.Board.Cols
	}
	if c.Rules.WinningTile == 0 {
		c.Rules.WinningTile = def.Rules.WinningTile
	}
	if c.Rules.Spawn4Probability == 0 {
		c.Rules.Spawn4Probability = def.Rules.Spawn4Probability
	}
	if c.Storage.HighScorePath == "" {
		c.Storage.HighScorePath = def.Storage.HighScorePath
	}
	if c.Storage.HistoryDBPath == "" {
		c.Storage.HistoryDBPath = def.Storage.HistoryDBPath
	}
}
