package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvjones/twenty48/internal/history"
)

var (
	flagLimit  int
	flagRecent bool
	flagStats  bool
	flagClear  bool
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show the session history",
	Long: `Display the best recorded sessions, newest sessions or aggregate
statistics from the history database.

Examples:
  twenty48 scores
  twenty48 scores --limit 25
  twenty48 scores --recent
  twenty48 scores --stats
  twenty48 scores --clear`,
	Args: cobra.NoArgs,
	Run:  runScores,
}

func init() {
	scoresCmd.Flags().IntVar(&flagLimit, "limit", 10, "Number of sessions to show")
	scoresCmd.Flags().BoolVar(&flagRecent, "recent", false, "Order by finish time instead of score")
	scoresCmd.Flags().BoolVar(&flagStats, "stats", false, "Show aggregate statistics")
	scoresCmd.Flags().BoolVar(&flagClear, "clear", false, "Delete all recorded sessions")
}

func runScores(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := history.Open(cfg.Storage.HistoryDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if flagClear {
		if err := store.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing history: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("History cleared.")
		return
	}

	if flagStats {
		printStats(store)
		return
	}

	var entries []history.Entry
	if flagRecent {
		entries, err = store.Recent(flagLimit)
	} else {
		entries, err = store.TopScores(flagLimit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving sessions: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No sessions recorded yet.")
		fmt.Println()
		fmt.Println("Play 'twenty48 play' to record the first one!")
		return
	}

	if flagRecent {
		fmt.Println("Recent Sessions")
	} else {
		fmt.Println("Best Sessions")
	}
	fmt.Println()

	fmt.Printf("  %-4s  %-8s  %-6s  %-8s  %-14s  %s\n", "Rank", "Score", "Moves", "Max Tile", "Outcome", "Date")
	fmt.Printf("  %-4s  %-8s  %-6s  %-8s  %-14s  %s\n", "----", "-----", "-----", "--------", "-------", "----")

	for i, e := range entries {
		dateStr := e.CreatedAt.Format("2006-01-02 15:04")
		fmt.Printf("  %-4d  %-8d  %-6d  %-8d  %-14s  %s\n", i+1, e.Score, e.Moves, e.MaxTile, e.Outcome, dateStr)
	}
}

func printStats(store *history.Store) {
	stats, err := store.GetStats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving statistics: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Session Statistics")
	fmt.Println()
	fmt.Printf("  Games played:  %d\n", stats.GamesCount)
	fmt.Printf("  Wins:          %d\n", stats.Wins)
	fmt.Printf("  Best score:    %d\n", stats.HighScore)
	fmt.Printf("  Average score: %.1f\n", stats.AvgScore)
	fmt.Printf("  Total moves:   %d\n", stats.TotalMoves)
	if !stats.LastPlayed.IsZero() {
		fmt.Printf("  Last played:   %s\n", stats.LastPlayed.Format("2006-01-02 15:04"))
	}
}
