package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/pkg/config"
	"github.com/FACorreiaa/go-museumradar/internal/pkg/logger"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "museumradar",
	Short: "MuseumRadar: AI-assisted museum discovery",
	Long: `MuseumRadar finds museums around a position or in a named place with a
generative-AI backend and streams a live activities guide for the area.

Commands:
  serve     Start the web server
  discover  Run one museum search from the terminal
  ask       Ask a free-text question with web-grounded sources`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func setup(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Log.Encoding, zap.String("service", cfg.Observability.ServiceName)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = logger.Log
	return nil
}
