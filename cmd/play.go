package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/config"
	"github.com/BioHazard786/rtcstreamer/internal/input"
	"github.com/BioHazard786/rtcstreamer/internal/media"
	"github.com/BioHazard786/rtcstreamer/internal/streamer"
	"github.com/BioHazard786/rtcstreamer/internal/ui"
	"github.com/BioHazard786/rtcstreamer/internal/utils"
	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"
)

var (
	flagAudio      string
	flagOptions    string
	flagRecord     string
	flagControl    bool
	flagCodec      string
	flagInterval   time.Duration
	flagNoCoalesce bool
)

var playCmd = &cobra.Command{
	Use:     "play <video-url>",
	Aliases: []string{"p"},
	Short:   "Open a WebRTC session for a stream",
	Long: `Negotiate a WebRTC session with the streamer for a video (and optionally audio) source.

Examples:
  rtcstreamer play rtsp://camera/stream
  rtcstreamer play --audio "audiocap://0" "videocap://0"
  rtcstreamer play --record ./out --options "rtptransport=tcp" rtsp://camera/stream
  rtcstreamer play --control --codec msgpack "screen://"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return play(args[0])
	},
}

func init() {
	f := playCmd.Flags()
	f.StringVarP(&flagAudio, "audio", "a", "", "audio source URL")
	f.StringVarP(&flagOptions, "options", "o", "", "options passed through to the streamer")
	f.StringVarP(&flagRecord, "record", "r", "", "record incoming tracks into this directory")
	f.BoolVarP(&flagControl, "control", "c", false, "forward keyboard and mouse input over the data channel")
	f.StringVar(&flagCodec, "codec", "json", "input batch encoding: json or msgpack")
	f.DurationVar(&flagInterval, "interval", input.DefaultInterval, "how often input batches are sent")
	f.BoolVar(&flagNoCoalesce, "no-coalesce", false, "send every mouse motion event")
	rootCmd.AddCommand(playCmd)
}

func play(videoURL string) error {
	cfg, err := loadConfig(config.Options{})
	if err != nil {
		return err
	}

	api := newAPI(cfg)
	showServerInfo(api, videoURL)

	client, err := newStreamerClient(cfg, api)
	if err != nil {
		return err
	}

	var rec *media.Recorder
	if flagRecord != "" {
		rec, err = media.NewRecorder(flagRecord, slog.Default().With("component", "recorder"))
		if err != nil {
			return err
		}
		client.OnTrack(rec.HandleTrack)
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	if flagControl {
		err = playWithControl(ctx, client, videoURL)
	} else {
		err = playWithStatus(ctx, client, videoURL)
	}

	summary := ui.SessionSummary{
		PeerID:   client.PeerID(),
		Stream:   videoURL,
		Duration: time.Since(start),
	}

	disconnectCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	client.Disconnect(disconnectCtx)
	done()
	summary.State = client.State().String()

	if rec != nil {
		if cerr := rec.Close(); cerr != nil {
			ui.PrintWarningf("closing recordings: %v", cerr)
		}
		for _, f := range rec.Files() {
			if st, err := os.Stat(f); err == nil {
				f = fmt.Sprintf("%s (%s)", f, utils.FormatSize(st.Size()))
			}
			summary.Records = append(summary.Records, f)
		}
	}

	fmt.Println()
	ui.RenderSessionSummary(summary)
	return err
}

func newStreamerClient(cfg *config.Config, api *streamer.API) (*streamer.Client, error) {
	factory, err := streamer.NewPionFactory(slog.Default())
	if err != nil {
		return nil, err
	}

	opts := []streamer.Option{
		streamer.WithLogger(slog.Default().With("component", "streamer")),
		streamer.WithICETransportPolicy(cfg.TransportPolicy()),
	}
	if servers := cfg.ICEServers(); servers != nil {
		opts = append(opts, streamer.WithIceServers(servers))
	}
	if !cfg.ForceRelay && cfg.TransportPolicy() == webrtc.ICETransportPolicyRelay {
		if _, reason := utils.RelayReason(); reason != "" {
			ui.PrintWarningf("Using relay candidates only (%s)", reason)
		}
	}

	return streamer.New(api, factory, opts...), nil
}

func showServerInfo(api *streamer.API, target string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	v, err := api.Version(ctx)
	if err != nil {
		slog.Debug("streamer version unavailable", "error", err)
	}
	fmt.Println(ui.ServerInfo{Streamer: api.Base(), Version: v, Target: target}.View())
	fmt.Println()
}

func stateLevel(st streamer.State) ui.Level {
	switch st {
	case streamer.StateConnected:
		return ui.LevelOK
	case streamer.StateFailed:
		return ui.LevelFailed
	case streamer.StateDisconnected:
		return ui.LevelDimmed
	default:
		return ui.LevelPending
	}
}

func iceLevel(st webrtc.ICEConnectionState) ui.Level {
	switch st {
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		return ui.LevelOK
	case webrtc.ICEConnectionStateDisconnected, webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateClosed:
		return ui.LevelDimmed
	default:
		return ui.LevelPending
	}
}

func playWithStatus(ctx context.Context, client *streamer.Client, videoURL string) error {
	status := ui.NewStatusUI(fmt.Sprintf("%s %s", ui.IconStream, utils.TruncateString(videoURL, 60)))

	client.OnStateChange(func(st streamer.State) {
		status.Set("session", st.String(), stateLevel(st))
	})
	client.OnICEConnectionState(func(st webrtc.ICEConnectionState) {
		status.Set("ice", st.String(), iceLevel(st))
	})
	client.OnTrack(func(t *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		status.Set(t.Kind().String(), t.Codec().MimeType, ui.LevelOK)
	})
	client.OnDataChannelMessage(func(msg webrtc.DataChannelMessage) {
		status.Logf("%s %s", ui.IconInfo, utils.TruncateString(string(msg.Data), 80))
	})
	client.OnError(func(op string, err error) {
		status.Logf("%s %s: %v", ui.IconError, op, err)
	})

	status.Start()
	defer status.Stop()

	connectErr := make(chan error, 1)
	go func() {
		connectErr <- client.Connect(ctx, videoURL, flagAudio, flagOptions)
	}()

	for {
		select {
		case err := <-connectErr:
			if err != nil {
				return err
			}
			connectErr = nil
		case <-status.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func playWithControl(ctx context.Context, client *streamer.Client, videoURL string) error {
	codec, err := input.CodecByName(flagCodec)
	if err != nil {
		return err
	}

	sp := ui.NewConnectionSpinner("Connecting to stream...")
	client.OnStateChange(func(st streamer.State) {
		sp.UpdateMessage(st.String() + "...")
	})
	sp.Start()
	if err := client.Connect(ctx, videoURL, flagAudio, flagOptions); err != nil {
		sp.Error("Connection failed")
		return err
	}
	sp.Success("Connected as " + client.PeerID())

	bridge := input.NewBridge(input.FromClient(client),
		input.WithCodec(codec),
		input.WithInterval(flagInterval),
		input.WithCoalescing(!flagNoCoalesce),
		input.WithLogger(slog.Default().With("component", "input")),
	)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go bridge.Run(runCtx)

	capture := make(chan error, 1)
	go func() {
		capture <- input.NewCapture(bridge, fmt.Sprintf("%s Controlling %s", ui.IconKeyboard, videoURL)).Run()
	}()

	select {
	case err = <-capture:
	case <-ctx.Done():
	}
	stop()

	sent, dropped := bridge.Stats()
	ui.PrintInfof("Sent %d input batches, dropped %d", sent, dropped)
	return err
}
