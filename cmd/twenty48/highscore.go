package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvjones/twenty48/internal/highscore"
)

var highscoreCmd = &cobra.Command{
	Use:   "highscore",
	Short: "Show the durable high score",
	Long: `Print the best score from the crash-safe high score record.

This is the single value games compare against; the full per-session
history lives in 'twenty48 scores'.`,
	Args: cobra.NoArgs,
	Run:  runHighscore,
}

func runHighscore(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := highscore.Open(cfg.Storage.HighScorePath)
	if store == nil {
		fmt.Fprintf(os.Stderr, "Error opening high score record: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	fmt.Printf("Best: %d\n", store.Best())
	fmt.Printf("Record file: %s\n", store.Path())
}
