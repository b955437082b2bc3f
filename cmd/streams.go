package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/config"
	"github.com/BioHazard786/rtcstreamer/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagPeers   bool
	flagDevices bool
)

var streamsCmd = &cobra.Command{
	Use:     "streams",
	Aliases: []string{"ls"},
	Short:   "List the streams, devices and peers a streamer offers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listStreams()
	},
}

func init() {
	streamsCmd.Flags().BoolVar(&flagPeers, "peers", false, "also list active peer connections")
	streamsCmd.Flags().BoolVar(&flagDevices, "devices", false, "also list capture devices")
	rootCmd.AddCommand(streamsCmd)
}

type listing struct {
	title string
	fetch func(context.Context) ([]string, error)
	items []string
}

func listStreams() error {
	cfg, err := loadConfig(config.Options{})
	if err != nil {
		return err
	}
	api := newAPI(cfg)

	lists := []*listing{{title: "Streams", fetch: api.Streams}}
	if flagDevices {
		lists = append(lists,
			&listing{title: "Video devices", fetch: api.VideoDevices},
			&listing{title: "Audio devices", fetch: api.AudioDevices},
		)
	}
	if flagPeers {
		lists = append(lists, &listing{title: "Peer connections", fetch: api.PeerConnections})
	}

	stopSpinner := ui.RunConnectionSpinner("Querying " + api.Base() + "...")
	defer stopSpinner()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range lists {
		g.Go(func() error {
			items, err := l.fetch(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", l.title, err)
			}
			l.items = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	stopSpinner()

	for _, l := range lists {
		fmt.Println(ui.ListTable(l.title, l.items))
		fmt.Println()
	}
	return nil
}
