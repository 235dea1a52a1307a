// twenty48 is a terminal 2048-style game built around an explicit
// session protocol: win and game-over decision points, an undo
// negotiation, durable high scores and resumable saves.
//
// Usage:
//
//	twenty48 play                - Play a game
//	twenty48 scores              - Show the session history
//	twenty48 highscore           - Show the durable high score
//	twenty48 inspect <file>      - Summarize a saved game
//	twenty48 config              - Show the effective configuration
//
// Global flags:
//
//	--config <path>      - Config file (default: ~/.twenty48/config.yaml)
//	--db <path>          - History database (default: from config)
//	--score-file <path>  - High score record (default: from config)
//	--seed <value>       - RNG seed for reproducible games
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dvjones/twenty48/internal/config"
)

var (
	// Global flags
	flagConfig    string
	flagDBPath    string
	flagScoreFile string
	flagSeed      int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "twenty48",
	Short: "2048 in your terminal, with undo negotiation and durable records",
	Long: `twenty48 is a terminal 2048-style game. Beyond the sliding and
merging it keeps a durable high score that survives crashes, records
every finished session, offers to take back the move that ended a game
and saves running games for later.

Available commands:
  play       - Play a game
  scores     - View the session history
  highscore  - Show the durable high score
  inspect    - Summarize a saved game file
  config     - Show the effective configuration

Examples:
  twenty48 play
  twenty48 play --rows 5 --cols 5
  twenty48 play --load ~/.twenty48/save.dat
  twenty48 scores --stats
  twenty48 inspect ~/.twenty48/save.dat`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML (default: ~/.twenty48/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to history database (default: from config)")
	rootCmd.PersistentFlags().StringVar(&flagScoreFile, "score-file", "", "Path to high score record (default: from config)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")

	// Add subcommands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(highscoreCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
}

// newLogger builds the stderr logger shared by all commands.
func newLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "twenty48",
	})
}

// loadConfig resolves the effective configuration with the global flag
// overrides applied on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagDBPath != "" {
		cfg.Storage.HistoryDBPath = flagDBPath
	}
	if flagScoreFile != "" {
		cfg.Storage.HighScorePath = flagScoreFile
	}
	return cfg, nil
}
