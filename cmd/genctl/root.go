package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/af-corp/genroute/internal/config"
	"github.com/af-corp/genroute/internal/models"
	"github.com/spf13/cobra"
)

var (
	flagConfigDir string
	flagAddr      string
	flagJSON      bool
)

var rootCmd = &cobra.Command{
	Use:           "genctl",
	Short:         "genroute operator CLI",
	Long:          "Inspect model selection, estimate costs and query a running genroute server.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigDir, "config", "c", "", "Configuration directory (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "http://localhost:8080", "Address of a running genroute server")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON output")
}

// loadModelConfig reads the generation section of genroute.yaml in --config, or the
// built-in defaults when no directory is given.
func loadModelConfig() (models.ModelConfig, error) {
	cfg := config.DefaultConfig()
	if flagConfigDir != "" {
		if err := config.LoadFile(filepath.Join(flagConfigDir, "genroute.yaml"), cfg); err != nil {
			return models.ModelConfig{}, err
		}
	}
	mcfg, err := cfg.Generation.ModelConfig()
	if err != nil {
		return models.ModelConfig{}, fmt.Errorf("invalid generation config: %w", err)
	}
	return mcfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
