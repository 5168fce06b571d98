package main

import (
	"github.com/spf13/cobra"
)

var (
	startPage   int
	withDetails bool
	paintingIDs []string
	force       bool
	noLargest   bool
	thumbnails  bool
	retries     int
)

func init() {
	catalogCmd.Flags().IntVar(&startPage, "start-page", 1, "First list page to fetch")
	catalogCmd.Flags().BoolVar(&withDetails, "details", false, "Fetch painting details after the list")

	for _, cmd := range []*cobra.Command{dziCmd, downloadCmd} {
		cmd.Flags().StringSliceVar(&paintingIDs, "id", nil, "Painting id(s), default every catalog painting")
		cmd.Flags().BoolVarP(&force, "force", "f", false, "Regenerate descriptors that already exist")
	}
	downloadCmd.Flags().BoolVar(&noLargest, "no-largest", false, "Let dezoomify-rs pick the resolution")
	downloadCmd.Flags().BoolVar(&thumbnails, "thumbnails", false, "Write a JPEG thumbnail of every image")
	downloadCmd.Flags().IntVar(&retries, "retries", -1, "Tile download retries (default from config)")

	rootCmd.AddCommand(catalogCmd, detailsCmd, dziCmd, downloadCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Fetch the painting list into the catalog CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		manager, err := newManager(cmd.Context(), settings)
		if err != nil {
			return err
		}
		if err := manager.FetchCatalog(cmd.Context(), startPage); err != nil {
			return err
		}
		if withDetails {
			return manager.FetchDetails(cmd.Context())
		}
		return nil
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details",
	Short: "Fetch material, color and dimensions of catalog paintings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		manager, err := newManager(cmd.Context(), settings)
		if err != nil {
			return err
		}
		return manager.FetchDetails(cmd.Context())
	},
}

var dziCmd = &cobra.Command{
	Use:     "dzi [id...]",
	Aliases: []string{"descriptors"},
	Short:   "Write Deep Zoom descriptors of paintings",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		if force {
			settings.SkipExisting = false
		}
		manager, err := newManager(cmd.Context(), settings)
		if err != nil {
			return err
		}
		return manager.GenerateDescriptors(cmd.Context(), append(paintingIDs, args...))
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [id...]",
	Short: "Download painting images with dezoomify-rs",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		if force {
			settings.SkipExisting = false
		}
		if noLargest {
			settings.DownloadLargest = false
		}
		if thumbnails {
			settings.CreateThumbnail = true
		}
		if retries >= 0 {
			settings.DownloadRetries = retries
		}
		manager, err := newManager(cmd.Context(), settings)
		if err != nil {
			return err
		}
		return manager.DownloadImages(cmd.Context(), append(paintingIDs, args...))
	},
}
