package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/luxstay/receipt-engine/internal/api"
	"github.com/luxstay/receipt-engine/internal/backend"
	"github.com/luxstay/receipt-engine/internal/config"
	"github.com/luxstay/receipt-engine/internal/metrics"
	"github.com/luxstay/receipt-engine/internal/pdf"
	"github.com/luxstay/receipt-engine/internal/registry"
	"github.com/luxstay/receipt-engine/internal/renderer"
)

// Version is set during build via ldflags
var Version = "dev"

var cli struct {
	Config  string           `short:"c" help:"Configuration file path (optional)" type:"path"`
	Port    string           `short:"p" help:"Listen port (overrides config and SERVER_PORT)"`
	Version kong.VersionFlag `help:"Print version and exit"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("receipt-server"),
		kong.Description("HTTP API serving hotel reservation receipts."),
		kong.Vars{"version": Version},
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cli.Port != "" {
		cfg.Server.Port = cli.Port
	}

	logger := cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	reg, err := registry.New(cfg.Receipt.RegistryPath)
	if err != nil {
		return err
	}

	promReg := prom.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := api.NewServer(api.Deps{
		Renderer: renderer.New(cfg.Layout, pdf.Options{
			FontName:       cfg.Receipt.FontName,
			StrictEncoding: cfg.Receipt.StrictEncoding,
		}),
		Backend:        backend.NewClient(cfg.Backend.BaseURL, &http.Client{Timeout: cfg.Backend.Timeout}),
		Registry:       reg,
		Metrics:        metrics.NewPrometheusRecorder(promReg),
		MetricsHandler: metrics.HTTPHandler(promReg),
		Logger:         logger,
		Product:        cfg.Receipt.Product,
		CodeKind:       cfg.Receipt.CodeKind,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort("", cfg.Server.Port)
	logger.Info("Receipt engine started",
		"version", Version,
		"addr", addr,
		"backend", cfg.Backend.BaseURL,
		"registry", cfg.Receipt.RegistryPath)

	err = server.Run(ctx, addr, cfg.Server.ShutdownTimeout)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	logger.Info("Receipt engine stopped")
	return err
}
