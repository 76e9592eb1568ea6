package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/mateusmeyer/pjlink-server/internal/logger"
	"github.com/mateusmeyer/pjlink-server/internal/mockprojector"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/server"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "pjlinkd",
		Usage:   "reference PJLink v2.00 projector-control server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Value: ":4352", Usage: "TCP listen address"},
			&cli.BoolFlag{Name: "discovery", Value: true, Usage: "enable UDP broadcast discovery (%2SRCH)"},
			&cli.StringFlag{Name: "discovery-addr", Usage: "UDP discovery bind address (defaults to --listen's address with the same port)"},
			&cli.StringFlag{Name: "password", Usage: "require challenge-response authentication with this password"},
			&cli.StringFlag{Name: "name", Value: "projector-001", Usage: "projector name reported by NAME1"},
			&cli.StringFlag{Name: "class-type", Value: "2", Usage: "protocol class reported by CLSS"},
			&cli.StringFlag{Name: "manufacturer-name", Value: "mateusmeyer mocks", Usage: "manufacturer name reported by INF1"},
			&cli.StringFlag{Name: "product-name", Value: "projector-mock", Usage: "product name reported by INF2"},
			&cli.StringFlag{Name: "serial-number", Value: "faa13ebee21677a2c064fd6ce067b50e", Usage: "serial number reported by INFO"},
			&cli.StringFlag{Name: "software-version", Value: "1.0", Usage: "software version reported by INFO"},
			&cli.StringFlag{Name: "screen-resolution", Value: "1920x1080", Usage: "screen resolution reported by RRES"},
			&cli.StringFlag{Name: "recommended-screen-resolution", Value: "1920x1080", Usage: "recommended screen resolution reported by RRES"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug|info|warn|error"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "if set, serve Prometheus metrics on this address (e.g. :9090)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger.Init()
	if err := logger.SetLevel(c.String("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using default\n", err)
	}
	log := logger.Logger().With("component", "pjlinkd")

	opts := mockprojector.DefaultOptions()
	opts.Password = c.String("password")
	opts.ClassType = c.String("class-type")[0]
	opts.ManufacturerName = []byte(c.String("manufacturer-name"))
	opts.ProductName = []byte(c.String("product-name"))
	opts.ProjectorName = []byte(c.String("name"))
	opts.SerialNumber = []byte(c.String("serial-number"))
	opts.SoftwareVersion = []byte(c.String("software-version"))
	opts.ScreenResolution = []byte(c.String("screen-resolution"))
	opts.RecommendedScreenResolution = []byte(c.String("recommended-screen-resolution"))
	projector := mockprojector.New(opts)

	cfg := server.Config{TCPAddr: c.String("listen"), UDPAddr: c.String("discovery-addr")}

	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		m := newMetrics(reg)
		errCh := serveMetrics(addr, reg)
		go func() {
			if err := <-errCh; err != nil {
				log.Error("metrics server exited", "error", err)
			}
		}()
		log.Info("metrics endpoint enabled", "addr", addr)
		return runServer(c, log, server.New(cfg, instrument(projector, m)))
	}

	return runServer(c, log, server.New(cfg, projector))
}

func runServer(c *cli.Context, log *slog.Logger, srv *server.Server) error {
	ctx := context.Background()

	var err error
	if c.Bool("discovery") {
		err = srv.ListenTCPAndUDP(ctx)
	} else {
		err = srv.ListenTCPOnly(ctx)
	}
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	log.Info("pjlinkd listening", "addr", srv.Addr().String(), "version", version)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	log.Info("shutdown signal received")

	done := make(chan error, 1)
	go func() { done <- srv.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("server stop: %w", err)
		}
		log.Info("server stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Error("forced exit after shutdown timeout")
	}
	return nil
}
