package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/dispatch"
	"github.com/jonathan/outreach-agent/internal/jobs"
	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/server"
	"github.com/jonathan/outreach-agent/internal/server/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that runs hunts as background jobs and exposes the lead table and
email dispatch over REST. Bearer authentication is enabled when JWT_SECRET is set.`,
	RunE: runServe,
}

var (
	serveStore   storeFlags
	servePort    int
	serveWorkers int
)

func init() {
	serveStore.register(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 1, "Number of hunts run concurrently")
	rootCmd.AddCommand(serveCmd)
}

// operatorName is the account POST /auth/token accepts.
func operatorName() string {
	if name := os.Getenv("OPERATOR_NAME"); name != "" {
		return name
	}
	return "operator"
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(serveStore.configPath, func(c *config.Config) { serveStore.apply(cmd, c) })
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	hunter, cleanup, err := pipeline.NewHunter(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	queue := jobs.NewQueue(ctx, hunter.Hunt, jobs.Options{Workers: serveWorkers, Logger: logger})
	defer func() { _ = queue.Close() }()

	srvCfg := server.Config{
		Port:       servePort,
		Store:      store,
		Queue:      queue,
		Dispatcher: dispatch.NewDispatcher(dispatch.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort), logger),
		Defaults:   *cfg,
		Operator:   operatorName(),
		RateLimit:  ratelimit.LoadConfig(),
		Logger:     logger,
	}
	if os.Getenv("JWT_SECRET") != "" {
		jwtCfg, err := config.NewJWTConfig()
		if err != nil {
			return err
		}
		passwords, err := config.NewPasswordConfig()
		if err != nil {
			return err
		}
		srvCfg.JWT = jwtCfg
		srvCfg.Passwords = passwords
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
