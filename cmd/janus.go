package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/config"
	"github.com/BioHazard786/rtcstreamer/internal/janus"
	"github.com/BioHazard786/rtcstreamer/internal/request"
	"github.com/BioHazard786/rtcstreamer/internal/ui"
	"github.com/BioHazard786/rtcstreamer/internal/utils"
	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagJanusURL  string
	flagRoom      int64
	flagName      string
	flagKeepAlive time.Duration
	flagRedis     string
)

var janusCmd = &cobra.Command{
	Use:   "janus <stream-url>...",
	Short: "Publish streams into a Janus video room",
	Long: `Publish one or more streamer sources into a Janus video room. The streamer
negotiates the media; this command only relays signaling to the gateway.

Examples:
  rtcstreamer janus rtsp://camera/stream
  rtcstreamer janus --url ws://janus:8188 --room 1234 --name lobby rtsp://cam/1 rtsp://cam/2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publish(args)
	},
}

var janusListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List streams published through the shared Redis store",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listConnections()
	},
}

func init() {
	pf := janusCmd.PersistentFlags()
	pf.StringVarP(&flagJanusURL, "url", "u", "", "Janus gateway URL, http(s) or ws(s) (env JANUS_URL)")
	pf.StringVar(&flagRedis, "redis", "", "Redis address for the shared connection store (env REDIS_ADDR)")

	f := janusCmd.Flags()
	f.Int64Var(&flagRoom, "room", 0, "video room id (env JANUS_ROOM)")
	f.StringVarP(&flagName, "name", "n", "", "display name, numbered when publishing several streams")
	f.DurationVar(&flagKeepAlive, "keepalive", 0, "keepalive interval once a stream is up (env KEEPALIVE)")

	janusCmd.AddCommand(janusListCmd)
	rootCmd.AddCommand(janusCmd)
}

func loadJanusConfig() (*config.Config, error) {
	return loadConfig(config.Options{
		JanusURL:  flagJanusURL,
		JanusRoom: flagRoom,
		KeepAlive: flagKeepAlive,
		RedisAddr: flagRedis,
	})
}

func openStore(ctx context.Context, cfg *config.Config) (janus.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return janus.NewMemoryStore(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return janus.NewRedisStore(rdb, ""), func() { rdb.Close() }, nil
}

func displayName(base, url string, i, n int) string {
	if base == "" {
		base = utils.TruncateString(url, 32)
	}
	if n > 1 {
		return base + "-" + strconv.Itoa(i+1)
	}
	return base
}

func roomLevel(state string) ui.Level {
	switch state {
	case janus.StateJoined, janus.StateUp:
		return ui.LevelOK
	case janus.StateDown, janus.StateLeft:
		return ui.LevelDimmed
	case janus.StateJoinFailed, janus.StatePublishNoSDP:
		return ui.LevelFailed
	default:
		return ui.LevelPending
	}
}

func publish(urls []string) error {
	cfg, err := loadJanusConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	logger := slog.Default().With("component", "janus")
	client := request.NewClient(request.WithLogger(slog.Default().With("component", "request")))
	transport, err := janus.NewTransport(ctx, cfg.JanusURL, client, logger)
	if err != nil {
		return err
	}

	room := janus.NewVideoRoom(transport, newAPI(cfg),
		janus.WithStore(store),
		janus.WithLogger(logger),
		janus.WithKeepAlive(cfg.KeepAlive),
	)

	status := ui.NewStatusUI(fmt.Sprintf("%s Room %d on %s", ui.IconRoom, cfg.JanusRoom, cfg.JanusURL))
	room.SubscribeEvents(func(name, state string) {
		status.Set(name, state, roomLevel(state))
	})
	status.Start()
	defer status.Stop()

	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		name := displayName(flagName, u, i, len(urls))
		g.Go(func() error {
			if err := room.Join(gctx, cfg.JanusRoom, u, name); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	joined := make(chan error, 1)
	go func() { joined <- g.Wait() }()

	var joinErr error
	select {
	case joinErr = <-joined:
		if joinErr == nil {
			status.Logf("%s %d stream(s) published", ui.IconSuccess, len(urls))
			select {
			case <-status.Done():
			case <-ctx.Done():
			}
		}
	case <-status.Done():
	case <-ctx.Done():
	}

	leaveCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	status.Stop()
	if err := room.Close(leaveCtx); err != nil {
		if joinErr == nil {
			joinErr = err
		}
	} else {
		ui.PrintSuccess(fmt.Sprintf("Left room %d", cfg.JanusRoom))
	}
	return joinErr
}

func listConnections() error {
	cfg, err := loadJanusConfig()
	if err != nil {
		return err
	}
	if cfg.RedisAddr == "" {
		return fmt.Errorf("no shared store configured, set --redis or REDIS_ADDR")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	conns, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(conns) == 0 {
		ui.PrintInfo("No published streams")
		return nil
	}

	t := pretty.NewWriter()
	t.SetStyle(pretty.StyleRounded)
	t.AppendHeader(pretty.Row{"Room", "Name", "Stream", "Session", "Peer", "Up for"})
	for _, c := range conns {
		t.AppendRow(pretty.Row{
			c.Room,
			c.Name,
			utils.TruncateString(c.URL, 40),
			c.SessionID,
			utils.TruncateString(c.PeerID, 12),
			utils.FormatTimeDuration(time.Since(c.Joined)),
		})
	}
	fmt.Println(t.Render())
	return nil
}
