package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvjones/twenty48/internal/savegame"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize a saved game",
	Long: `Decode a saved game file and print what it holds without starting
a session.

Examples:
  twenty48 inspect ~/.twenty48/save.dat`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) {
	eng, err := savegame.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading save file: %v\n", err)
		os.Exit(1)
	}

	undoNote := "no"
	if eng.UndoPossible() {
		undoNote = "yes"
	}

	fmt.Printf("Board:        %dx%d\n", eng.Rows(), eng.Cols())
	fmt.Printf("Score:        %d\n", eng.Score())
	fmt.Printf("Moves:        %d\n", eng.MoveCount())
	fmt.Printf("Max tile:     %d\n", eng.MaxTile())
	fmt.Printf("Winning tile: %d\n", eng.WinningTile())
	fmt.Printf("Status:       %s\n", eng.Status())
	fmt.Printf("Undo held:    %s\n", undoNote)
}
