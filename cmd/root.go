package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BioHazard786/rtcstreamer/internal/config"
	"github.com/BioHazard786/rtcstreamer/internal/logging"
	"github.com/BioHazard786/rtcstreamer/internal/request"
	"github.com/BioHazard786/rtcstreamer/internal/streamer"
	"github.com/BioHazard786/rtcstreamer/internal/ui"
	"github.com/BioHazard786/rtcstreamer/internal/version"
	"github.com/spf13/cobra"
)

var (
	flagStreamer string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
	flagLogLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "rtcstreamer",
	Short:   "Watch and relay webrtc-streamer sources from the terminal",
	Long:    `rtcstreamer talks to a webrtc-streamer server. It can negotiate a WebRTC session for a stream and record it, forward keyboard and mouse input over the session's data channel, list what the server offers, and publish streams into a Janus video room.`,
	Version: version.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagLogLevel != "" {
			logging.Setup(logging.ParseLevel(flagLogLevel))
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagStreamer, "streamer", "s", "", "webrtc-streamer URL (env STREAMER_URL)")
	pf.StringVar(&flagSTUN, "stun", "", "STUN server host:port, overrides the streamer's ICE servers")
	pf.StringVar(&flagTURN, "turn", "", "TURN server host, overrides the streamer's ICE servers")
	pf.StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	pf.StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	pf.BoolVar(&flagRelay, "relay", false, "only use relay candidates")
	pf.StringVar(&flagLogLevel, "log-level", "", "trace, debug, info, warn or error (env LOG_LEVEL)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

// signalContext is cancelled on interrupt or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig(opts config.Options) (*config.Config, error) {
	opts.StreamerURL = flagStreamer
	opts.STUNServer = flagSTUN
	opts.TURNServer = flagTURN
	opts.TURNUser = flagTURNUser
	opts.TURNPass = flagTURNPass
	opts.ForceRelay = flagRelay

	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

func newAPI(cfg *config.Config) *streamer.API {
	client := request.NewClient(request.WithLogger(slog.Default().With("component", "request")))
	return streamer.NewAPI(cfg.StreamerURL, client)
}
