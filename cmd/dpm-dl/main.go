package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/handiism/dpm-downloader/internal/config"
	"github.com/handiism/dpm-downloader/internal/download"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Persistent flags
var (
	configPath    string
	verbose       bool
	sourceName    string
	catalogPath   string
	outputDir     string
	dezoomifyPath string
)

var rootCmd = &cobra.Command{
	Use:   "dpm-dl",
	Short: "Crawl and download zoomable paintings of the Palace Museum",
	Long: `dpm-dl crawls the painting catalog of the Palace Museum (dpm.org.cn),
writes Deep Zoom descriptors for every painting and downloads the full
images with dezoomify-rs.

Sources:
  mhj         Minghua Ji (minghuaji.dpm.org.cn)
  collection  Collection (www.dpm.org.cn)

For interactive mode, use: dpm-tui`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")
	rootCmd.PersistentFlags().StringVarP(&sourceName, "source", "s", "", "Source site: mhj or collection (overrides config)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog CSV file (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Directory for descriptors and images (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dezoomifyPath, "dezoomify", "", "dezoomify-rs executable (overrides config, DEZOOMIFY_RS wins)")
}

// loadSettings reads the config file and applies the persistent flags.
func loadSettings() (*config.Settings, error) {
	settings := config.DefaultSettings()
	if configPath != "" {
		var err error
		settings, err = config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if sourceName != "" {
		settings.Source = sourceName
	}
	if catalogPath != "" {
		settings.CatalogPath = catalogPath
	}
	if outputDir != "" {
		settings.DescriptorDir = outputDir
		settings.ImageDir = outputDir
	}
	if dezoomifyPath != "" {
		settings.DezoomifyPath = dezoomifyPath
	}
	return settings, settings.Validate()
}

// newManager builds a Manager whose progress goes to the context logger.
func newManager(ctx context.Context, settings *config.Settings) (*download.Manager, error) {
	log := zerolog.Ctx(ctx)
	manager, err := download.NewManager(settings, func(event download.ProgressEvent) {
		logEvent(log, event)
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("source", manager.Source().String()).Str("catalog", settings.CatalogPath).Msg("Settings loaded")
	return manager, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(os.Stderr, false)
	cobra.OnInitialize(func() {
		logger = newLogger(os.Stderr, verbose)
	})
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cmd.SetContext(logger.WithContext(cmd.Context()))
	}

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	if download.IsFatal(err) || errors.Is(ctx.Err(), context.Canceled) {
		logger.Warn().Msg("Interrupted, cancelled.")
		os.Exit(130)
	}
	logger.Error().Err(err).Msg("Failed")
	os.Exit(1)
}
