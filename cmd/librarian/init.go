package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"librarian/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize librarian in a repository",
	Long: `Create the .librarian directory with a default configuration.

Examples:
  librarian init
  librarian init --repo=/path/to/repo
  librarian init --force     # overwrite existing config`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	repoRoot := mustGetRepoRoot()

	dir := filepath.Join(repoRoot, ".librarian")
	configPath := filepath.Join(dir, "config.json")

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", configPath)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	cfg := config.DefaultConfig()
	cfg.RepoRoot = repoRoot
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(repoRoot); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Initialized librarian in %s\n", dir)
	fmt.Println("Next steps:")
	fmt.Println("  librarian index ./src     # index source files")
	fmt.Println("  librarian search <query>  # search the index")
	return nil
}
