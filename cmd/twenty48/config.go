package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dvjones/twenty48/internal/config"
)

var flagInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration the other commands would run with, after
merging the config file, the defaults and the command-line overrides.

With --init, write the annotated default config to
~/.twenty48/config.yaml instead.

Examples:
  twenty48 config
  twenty48 config --config ./my-config.yaml
  twenty48 config --init`,
	Args: cobra.NoArgs,
	Run:  runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&flagInit, "init", false, "Write the default config to ~/.twenty48/config.yaml")
}

func runConfig(cmd *cobra.Command, args []string) {
	if flagInit {
		writeDefaultConfig()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding config: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(out))
}

func writeDefaultConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	path := filepath.Join(home, ".twenty48", "config.yaml")

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists, not overwriting\n", path)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, config.DefaultYAML(), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\n", path)
}
