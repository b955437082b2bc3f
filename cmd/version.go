package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/config"
	"github.com/BioHazard786/rtcstreamer/internal/ui"
	"github.com/BioHazard786/rtcstreamer/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print client and streamer versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%s %s\n", ui.BoldStyle.Render("client:  "), version.UserAgent())

		cfg, err := loadConfig(config.Options{})
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		v, err := newAPI(cfg).Version(ctx)
		if err != nil {
			return fmt.Errorf("query streamer version: %w", err)
		}
		fmt.Printf("%s %s\n", ui.BoldStyle.Render("streamer:"), v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
