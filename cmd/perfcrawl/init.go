package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/perfumedb/perfcrawl/internal/config"
)

//go:embed templates/perfcrawl.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new perfcrawl configuration file",
		Long: `Initialize creates a new .perfcrawl configuration file in the current directory.

The generated file includes:
- Default politeness settings (delays, session breaks)
- Commented examples for proxies and pinned User-Agents
- A place to keep a default brand list for multi-brand runs

Examples:
  # Create .perfcrawl in current directory
  perfcrawl init

  # Create config file at a specific path
  perfcrawl init -o myconfig.yaml

  # Force overwrite existing file
  perfcrawl init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/perfcrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Created configuration file: %s\n", outputPath)
	fmt.Println("\nEdit this file to tune politeness settings such as:")
	fmt.Println("  - Request delay and session breaks")
	fmt.Println("  - Proxy rotation")
	fmt.Println("  - A default brand list for multi-brand runs")

	return nil
}
