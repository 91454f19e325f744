package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/gatewatch/internal/config"
	"github.com/kozaktomas/gatewatch/internal/detector"
	"github.com/kozaktomas/gatewatch/internal/events"
	"github.com/kozaktomas/gatewatch/internal/frame"
	"github.com/kozaktomas/gatewatch/internal/metrics"
	"github.com/kozaktomas/gatewatch/internal/monitor"
	"github.com/kozaktomas/gatewatch/internal/web"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the camera and record attendance",
	Long: `Run the recognition engine. Every cycle the latest camera frame is matched
against the enrolled gallery; people who appear are checked in or out and
unknown faces are reported to the sighting register.

A status server exposes /api/v1/status, an SSE event stream on
/api/v1/events, start/stop controls and Prometheus metrics.

Examples:
  # Poll the camera configured by CAMERA_SNAPSHOT_URL
  gatewatch monitor

  # Replay a single still image and write annotated frames
  gatewatch monitor --image door.jpg --snapshot-dir ./debug

  # Wait for an operator to start the session over HTTP
  gatewatch monitor --idle`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().String("image", "", "Use a still image instead of the camera")
	monitorCmd.Flags().String("snapshot-dir", "", "Write the latest frame with overlay to this directory")
	monitorCmd.Flags().Duration("period", 0, "Cycle period (default from CYCLE_PERIOD)")
	monitorCmd.Flags().Float64("max-distance", 0, "Override the recognition distance threshold")
	monitorCmd.Flags().Int("port", 8081, "Status server port")
	monitorCmd.Flags().Bool("no-server", false, "Do not start the status server")
	monitorCmd.Flags().Bool("idle", false, "Do not start a session until requested over HTTP")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	logger, closeLog := config.SetupLogger(cfg.Log.File, cfg.Log.Level)
	defer closeLog()

	applyMonitorFlags(cmd, cfg)

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	frames, err := setupFrameSource(ctx, g, cmd, cfg, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics, err := metrics.NewEngineMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	broadcaster := events.NewBroadcaster()
	sinks := events.Fanout{events.NewLogSink(logger), broadcaster}
	if cfg.MQTT.Broker != "" {
		mqttClient, err := events.ConnectMQTT(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		defer mqttClient.Disconnect(250)
		sinks = append(sinks, events.NewMQTTSink(mqttClient, cfg.MQTT.Topic, logger))
	}

	mon := monitor.New(monitor.Deps{
		Frames:     frames,
		Extractor:  detector.NewClient(cfg.Detector.URL, cfg.Detector.Timeout),
		Gallery:    client,
		Attendance: client,
		Unknowns:   client,
		Events:     sinks,
		Metrics:    engineMetrics,
		Logger:     logger,
	}, monitor.OptionsFromConfig(cfg.Engine))

	if !mustGetBool(cmd, "no-server") {
		webCfg := cfg.Web
		webCfg.Port = mustGetInt(cmd, "port")
		server := web.NewEngineServer(webCfg, web.EngineDeps{
			BaseCtx:     ctx,
			Engine:      mon,
			Broadcaster: broadcaster,
			Gatherer:    registry,
		}, logger)
		g.Go(func() error { return server.Run(ctx) })
		fmt.Printf("Status server on http://%s:%d/api/v1/status\n", webCfg.Host, webCfg.Port)
	}

	if mustGetBool(cmd, "idle") {
		g.Go(func() error {
			<-ctx.Done()
			if err := mon.Stop(); err != nil && !errors.Is(err, monitor.ErrNotRunning) {
				return err
			}
			return nil
		})
	} else {
		g.Go(func() error { return mon.Run(ctx) })
	}

	fmt.Println("Monitoring... press Ctrl+C to stop")
	return g.Wait()
}

func applyMonitorFlags(cmd *cobra.Command, cfg *config.Config) {
	if dir := mustGetString(cmd, "snapshot-dir"); dir != "" {
		cfg.Engine.SnapshotDir = dir
	}
	if period := mustGetDuration(cmd, "period"); period > 0 {
		cfg.Engine.CyclePeriod = period
	}
	if d := mustGetFloat64(cmd, "max-distance"); d > 0 {
		cfg.Engine.RecognizeDistance = d
	}
}

// setupFrameSource returns a still image source for --image, otherwise starts
// the snapshot poller in g.
func setupFrameSource(ctx context.Context, g *errgroup.Group, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (monitor.FrameSource, error) {
	if path := mustGetString(cmd, "image"); path != "" {
		src, err := frame.NewFileSource(path, cfg.Camera.Width, cfg.Camera.Height)
		if err != nil {
			return nil, fmt.Errorf("failed to load image: %w", err)
		}
		return src, nil
	}
	if cfg.Camera.SnapshotURL == "" {
		return nil, errors.New("CAMERA_SNAPSHOT_URL environment variable or --image is required")
	}
	src := frame.NewSnapshotSource(cfg.Camera.SnapshotURL, cfg.Camera.SampleInterval, logger)
	src.SetMaxSize(cfg.Camera.Width, cfg.Camera.Height)
	g.Go(func() error { return src.Run(ctx) })
	return src, nil
}
