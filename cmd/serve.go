package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/gatewatch/internal/config"
	"github.com/kozaktomas/gatewatch/internal/constants"
	"github.com/kozaktomas/gatewatch/internal/database/postgres"
	"github.com/kozaktomas/gatewatch/internal/metrics"
	"github.com/kozaktomas/gatewatch/internal/sightings"
	"github.com/kozaktomas/gatewatch/internal/timesheet"
	"github.com/kozaktomas/gatewatch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance service",
	Long: `Start the attendance and sighting service the monitor reports to.
Identities, attendance events and unknown sightings are stored in PostgreSQL
(pgvector). Migrations run on startup.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Float64("reidentify-distance", constants.DefaultReidentifyDistance,
		"Max distance for an unknown face to count as a repeat sighting")
}

// resolveServeHostPort applies flags that were set explicitly over the environment
func resolveServeHostPort(cmd *cobra.Command, cfg *config.WebConfig) {
	if cmd.Flags().Changed("port") {
		cfg.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = mustGetString(cmd, "host")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	logger, closeLog := config.SetupLogger(cfg.Log.File, cfg.Log.Level)
	defer closeLog()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, applied, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()
	for _, name := range applied {
		fmt.Printf("Applied migration %s\n", name)
	}
	store := postgres.NewStore(pool)

	registry := prometheus.NewRegistry()
	serviceMetrics, err := metrics.NewServiceMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	rules, err := timesheet.RulesFromConfig(cfg.Attendance)
	if err != nil {
		return fmt.Errorf("invalid attendance configuration: %w", err)
	}
	attendance := timesheet.NewService(store.Identities, store.Attendance, rules, serviceMetrics)

	sightingRegistry := sightings.NewRegistry(store.Sightings, mustGetFloat64(cmd, "reidentify-distance"), serviceMetrics, logger)
	if err := sightingRegistry.Load(ctx); err != nil {
		return err
	}
	fmt.Printf("Sighting index built with %d unknown people\n", sightingRegistry.Count())

	webCfg := cfg.Web
	resolveServeHostPort(cmd, &webCfg)
	server := web.NewServiceServer(webCfg, web.ServiceDeps{
		Identities: store.Identities,
		Attendance: attendance,
		Sightings:  sightingRegistry,
		Gatherer:   registry,
	}, logger)

	fmt.Printf("Starting gatewatch service on http://%s:%d\n", webCfg.Host, webCfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}
