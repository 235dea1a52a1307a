package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dvjones/twenty48/internal/engine"
	"github.com/dvjones/twenty48/internal/highscore"
	"github.com/dvjones/twenty48/internal/history"
	"github.com/dvjones/twenty48/internal/savegame"
	"github.com/dvjones/twenty48/internal/session"
)

var (
	flagLoad     string
	flagRows     int
	flagCols     int
	flagSaveFile string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a game",
	Long: `Start an interactive game. Commands are typed one per line.

Controls:
  up/down/left/right (or w/a/s/d)  - slide the board
  undo (or z)                      - take back the last move
  save [path] / load [path]        - save or resume a game
  quit (or q)                      - finish the session

When the winning tile appears you choose whether to keep playing. When
a game ends you may take back the final move once; the high score is
already durable either way.

Examples:
  twenty48 play
  twenty48 play --rows 5 --cols 6
  twenty48 play --seed 42
  twenty48 play --load ~/.twenty48/save.dat`,
	Args: cobra.NoArgs,
	Run:  runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagLoad, "load", "", "Resume the saved game at this path")
	playCmd.Flags().IntVar(&flagRows, "rows", 0, "Board rows (default from config)")
	playCmd.Flags().IntVar(&flagCols, "cols", 0, "Board columns (default from config)")
	playCmd.Flags().StringVar(&flagSaveFile, "save-file", "~/.twenty48/save.dat", "Default path for the save and load commands")
}

func runPlay(cmd *cobra.Command, args []string) {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	rows, cols := cfg.Board.Rows, cfg.Board.Cols
	if flagRows > 0 {
		rows = flagRows
	}
	if flagCols > 0 {
		cols = flagCols
	}

	var eng *engine.Engine
	if flagLoad != "" {
		eng, err = savegame.Load(flagLoad)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading saved game: %v\n", err)
			os.Exit(1)
		}
	} else {
		eng, err = engine.NewWithOptions(rows, cols, engine.Options{
			WinningTile:       cfg.Rules.WinningTile,
			Spawn4Probability: cfg.Rules.Spawn4Probability,
			Seed:              flagSeed,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	opts := session.Options{Logger: logger}

	// A broken record degrades to score zero, a broken database to an
	// unrecorded session. The game itself always works.
	scores, err := highscore.Open(cfg.Storage.HighScorePath)
	if err != nil {
		logger.Warn("high score record unavailable", "error", err)
	}
	if scores != nil {
		opts.HighScores = scores
	}

	hist, err := history.Open(cfg.Storage.HistoryDBPath)
	if err != nil {
		logger.Warn("could not open history database", "error", err)
	} else {
		opts.Results = hist
		defer hist.Close()
	}

	runLoop(session.New(eng, opts))
}

func runLoop(ctrl *session.Controller) {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	in := bufio.NewScanner(os.Stdin)

	if interactive {
		fmt.Println("Reach the winning tile. Type 'help' for the commands.")
	}
	printBoard(ctrl.Observable())

	for ctrl.Phase() != session.PhaseClosed {
		if interactive {
			fmt.Print("> ")
		}
		if !in.Scan() {
			// Input ended: close the session, declining anything open
			settleAndClose(ctrl)
			break
		}

		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		word := strings.ToLower(fields[0])
		arg := ""
		if len(fields) > 1 {
			arg = fields[1]
		}

		switch word {
		case "w", "up":
			move(ctrl, in, interactive, engine.DirUp)
		case "s", "down":
			move(ctrl, in, interactive, engine.DirDown)
		case "a", "left":
			move(ctrl, in, interactive, engine.DirLeft)
		case "d", "right":
			move(ctrl, in, interactive, engine.DirRight)
		case "z", "undo":
			if ctrl.AttemptUndo() {
				printBoard(ctrl.Observable())
			} else {
				fmt.Println("Nothing to undo.")
			}
		case "save":
			path := savePath(arg)
			if err := ctrl.SaveGame(path); err != nil {
				fmt.Printf("Cannot save: %v\n", err)
			} else {
				fmt.Printf("Saved to %s\n", path)
			}
		case "load":
			path := savePath(arg)
			if err := ctrl.LoadGame(path); err != nil {
				fmt.Printf("Cannot load: %v\n", err)
			} else {
				fmt.Printf("Loaded %s\n", path)
				printBoard(ctrl.Observable())
			}
		case "h", "help", "?":
			printHelp()
		case "q", "quit", "exit":
			if dec := ctrl.RequestClose(); dec != nil {
				resolveDecision(ctrl, in, interactive, dec)
			}
		default:
			fmt.Printf("Unknown command %q. Type 'help' for the commands.\n", word)
		}
	}

	final := ctrl.Observable()
	fmt.Printf("Final score %d, best %d.\n", final.Score, final.HighScore)
}

// move forwards one slide and walks whatever decision it surfaces.
func move(ctrl *session.Controller, in *bufio.Scanner, interactive bool, dir engine.Direction) {
	res := ctrl.AttemptMove(dir)
	if !res.Moved {
		fmt.Println("Nothing moves that way.")
		return
	}
	printBoard(ctrl.Observable())
	if res.Decision != nil {
		resolveDecision(ctrl, in, interactive, res.Decision)
	}
}

// resolveDecision prompts for one decision point and applies the answer.
// Continuing after a win can surface the undo offer right away when the
// winning move also locked the board.
func resolveDecision(ctrl *session.Controller, in *bufio.Scanner, interactive bool, dec *session.DecisionRequest) {
	switch dec.Kind {
	case session.DecisionContinueAfterWin:
		fmt.Println("You reached the winning tile!")
		if askYesNo(in, interactive, "Keep playing?") {
			if next := ctrl.ResolveContinueAfterWin(true); next != nil {
				resolveDecision(ctrl, in, interactive, next)
			}
		} else {
			ctrl.ResolveContinueAfterWin(false)
		}

	case session.DecisionUndoOffer:
		fmt.Printf("Game over at score %d.\n", ctrl.Observable().Score)
		if dec.HighScoreWasJustSet {
			fmt.Println("New high score!")
		}
		if askYesNo(in, interactive, "Take back the last move?") {
			ctrl.ResolveUndoOffer(true)
			if ctrl.Phase() == session.PhaseActive {
				fmt.Println("Move taken back.")
				printBoard(ctrl.Observable())
			}
		} else {
			ctrl.ResolveUndoOffer(false)
		}
	}
}

// askYesNo reads lines until one answers the question. An input that
// ends mid-question counts as no.
func askYesNo(in *bufio.Scanner, interactive bool, prompt string) bool {
	for {
		if interactive {
			fmt.Printf("%s [y/n] ", prompt)
		}
		if !in.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(in.Text())) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}

// settleAndClose closes the session, declining anything still open.
func settleAndClose(ctrl *session.Controller) {
	for ctrl.Phase() != session.PhaseClosed {
		dec := ctrl.RequestClose()
		if dec == nil {
			return
		}
		switch dec.Kind {
		case session.DecisionContinueAfterWin:
			ctrl.ResolveContinueAfterWin(false)
		case session.DecisionUndoOffer:
			ctrl.ResolveUndoOffer(false)
		}
	}
}

func printBoard(obs session.ObservableState) {
	fmt.Println()
	for _, row := range obs.CellValues {
		for _, v := range row {
			if v == 0 {
				fmt.Printf("%6s", ".")
			} else {
				fmt.Printf("%6d", v)
			}
		}
		fmt.Println()
	}
	fmt.Println()

	undoNote := ""
	if obs.UndoAvailable {
		undoNote = "  undo available"
	}
	fmt.Printf("Score %d  Best %d  Moves %d%s\n", obs.Score, obs.HighScore, obs.MoveCount, undoNote)
}

func printHelp() {
	fmt.Print(`Commands:
  up, down, left, right  - slide the board (w/a/s/d work too)
  undo, z                - take back the last move
  save [path]            - save the running game
  load [path]            - load a saved game
  help, ?                - show this help
  quit, q                - finish the session
`)
}

// savePath picks the explicit argument over the --save-file default.
func savePath(arg string) string {
	if arg != "" {
		return arg
	}
	return flagSaveFile
}
