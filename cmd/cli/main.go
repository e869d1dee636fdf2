package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/luxstay/receipt-engine/internal/config"
)

// Version is set during build via ldflags
var Version = "dev"

// Globals are shared by every command
type Globals struct {
	Config  string           `short:"c" help:"Configuration file path (optional)" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	ctx context.Context `kong:"-"`
}

// CLI is the receipt command line
type CLI struct {
	Globals

	Render      RenderCmd      `cmd:"" help:"Render a receipt document (JSON) to PDF"`
	Reservation ReservationCmd `cmd:"" help:"Fetch a reservation from the hotel backend and render its receipt"`
	Verify      VerifyCmd      `cmd:"" help:"Check the structure of a receipt PDF and list its text"`
	Preview     PreviewCmd     `cmd:"" help:"Render a receipt document to a PNG preview"`
	Receipts    ReceiptsCmd    `cmd:"" help:"List issued receipts from the registry"`
}

func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.Verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr))
	return cfg, nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("receipt"),
		kong.Description("Render, fetch and verify hotel reservation receipts."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cli.Globals.ctx = ctx

	if err := kctx.Run(&cli.Globals); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		stop()
		os.Exit(1)
	}
}
