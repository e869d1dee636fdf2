package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luxstay/receipt-engine/internal/backend"
	"github.com/luxstay/receipt-engine/internal/booking"
	"github.com/luxstay/receipt-engine/internal/config"
	"github.com/luxstay/receipt-engine/internal/pdf"
	"github.com/luxstay/receipt-engine/internal/registry"
	"github.com/luxstay/receipt-engine/internal/renderer"
	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
)

func newRenderer(cfg *config.Config, strict bool) *renderer.Renderer {
	return renderer.New(cfg.Layout, pdf.Options{
		FontName:       cfg.Receipt.FontName,
		StrictEncoding: strict || cfg.Receipt.StrictEncoding,
	})
}

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	Document string `arg:"" help:"Receipt document JSON file" type:"existingfile"`
	Output   string `short:"o" help:"Output PDF path (default: document name with .pdf)"`
	Strict   bool   `help:"Fail on characters the built-in font cannot encode"`
}

func (r *RenderCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	doc, err := receiptdoc.ParseFile(r.Document)
	if err != nil {
		return err
	}

	res, err := newRenderer(cfg, r.Strict).Render(doc)
	if err != nil {
		return err
	}

	out := r.Output
	if out == "" {
		out = strings.TrimSuffix(r.Document, filepath.Ext(r.Document)) + ".pdf"
	}
	if err := os.WriteFile(out, res.PDF, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printIssued(out, res)
	return nil
}

// ReservationCmd implements the 'reservation' command.
type ReservationCmd struct {
	ID       string `arg:"" help:"Reservation ID"`
	Output   string `short:"o" help:"Output directory or PDF path" default:"."`
	BaseURL  string `name:"api" help:"Hotel backend base URL (overrides config)"`
	NoRecord bool   `name:"no-record" help:"Do not add the receipt to the registry"`
}

func (r *ReservationCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	client := backend.NewClient(booking.Pick(r.BaseURL, cfg.Backend.BaseURL), &http.Client{Timeout: cfg.Backend.Timeout})
	resv, room, err := client.ReservationWithRoom(g.ctx, r.ID)
	if err != nil {
		return err
	}

	doc := booking.ReceiptFor(resv, room, booking.Options{
		Product:       cfg.Receipt.Product,
		CodeKind:      cfg.Receipt.CodeKind,
		ReservationID: r.ID,
	})
	res, err := newRenderer(cfg, false).Render(doc)
	if err != nil {
		return err
	}

	filename := booking.Filename(cfg.Receipt.Product, r.ID)
	out := r.Output
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, filename)
	}
	if err := os.WriteFile(out, res.PDF, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printIssued(out, res)

	if !r.NoRecord {
		reg, err := registry.New(cfg.Receipt.RegistryPath)
		if err != nil {
			return err
		}
		entry, err := reg.Record(registry.Receipt{
			ReservationID: r.ID,
			Filename:      filename,
			Data:          res.PDF,
			Truncated:     res.Plan.Truncated,
		})
		if err != nil {
			return err
		}
		fmt.Println(field("Receipt ID", entry.ID))
	}
	return nil
}

// VerifyCmd implements the 'verify' command.
type VerifyCmd struct {
	File  string `arg:"" help:"PDF file to check" type:"existingfile"`
	Texts bool   `short:"t" help:"Print every text string drawn on the page"`
}

func (v *VerifyCmd) Run(_ *Globals) error {
	data, err := os.ReadFile(v.File)
	if err != nil {
		return err
	}

	report, err := pdf.Inspect(data)
	if err != nil {
		return err
	}

	lines := []string{
		titleStyle.Render(filepath.Base(v.File)),
		field("Version", report.Version),
		field("Objects", len(report.Entries)),
		field("Pages", report.Pages),
		field("startxref", report.StartXref),
		field("Stream", fmt.Sprintf("%d bytes", len(report.Content))),
	}
	for _, e := range report.Entries {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("  obj %d @ %010d", e.Num, e.Offset)))
	}
	fmt.Println(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	if v.Texts {
		for _, t := range report.Texts {
			fmt.Println("  " + t)
		}
	}

	if err := checkReceiptShape(report); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ cross-reference offsets verified"))
	return nil
}

// checkReceiptShape rejects files that parse but are not single-page
// receipts with the fixed object layout.
func checkReceiptShape(report *pdf.Report) error {
	if len(report.Entries) != pdf.ObjectCount {
		return fmt.Errorf("expected %d objects, found %d", pdf.ObjectCount, len(report.Entries))
	}
	if report.Pages != 1 {
		return fmt.Errorf("expected one page, found %d", report.Pages)
	}
	return nil
}

// PreviewCmd implements the 'preview' command.
type PreviewCmd struct {
	Document string  `arg:"" help:"Receipt document JSON file" type:"existingfile"`
	Output   string  `short:"o" help:"Output PNG path (default: document name with .png)"`
	Width    int     `short:"w" help:"Resize the preview to this width in pixels"`
	Scale    float64 `help:"Pixels per PDF point" default:"2"`
	Font     string  `help:"TrueType font used for text" type:"path"`
}

func (p *PreviewCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	doc, err := receiptdoc.ParseFile(p.Document)
	if err != nil {
		return err
	}

	png, err := newRenderer(cfg, false).Preview(doc, renderer.PreviewOptions{
		Scale:    p.Scale,
		Width:    p.Width,
		FontPath: p.Font,
	})
	if err != nil {
		return err
	}

	out := p.Output
	if out == "" {
		out = strings.TrimSuffix(p.Document, filepath.Ext(p.Document)) + ".png"
	}
	if err := os.WriteFile(out, png, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Println(successStyle.Render("✓ preview written to " + out))
	return nil
}

// ReceiptsCmd implements the 'receipts' command.
type ReceiptsCmd struct {
	Reservation string `short:"r" help:"Only show receipts for this reservation"`
}

func (r *ReceiptsCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	reg, err := registry.New(cfg.Receipt.RegistryPath)
	if err != nil {
		return err
	}

	entries := reg.All()
	if r.Reservation != "" {
		entries = reg.ForReservation(r.Reservation)
	}
	if len(entries) == 0 {
		fmt.Println(mutedStyle.Render("No receipts issued yet"))
		return nil
	}

	for _, e := range entries {
		flag := ""
		if e.Truncated {
			flag = warningStyle.Render(" (truncated)")
		}
		fmt.Printf("%s  %s  %s%s\n",
			mutedStyle.Render(e.IssuedAt.Local().Format("2006-01-02 15:04")),
			e.Filename,
			mutedStyle.Render(fmt.Sprintf("%d bytes, %d downloads", e.Size, e.Downloads)),
			flag,
		)
	}
	return nil
}

func printIssued(out string, res *renderer.Result) {
	fmt.Println(successStyle.Render("✓ receipt written to " + out))
	fmt.Println(field("Size", fmt.Sprintf("%d bytes", len(res.PDF))))
	if res.Plan.Truncated {
		fmt.Println(warningStyle.Render("! content did not fit on one page and was truncated"))
	}
	for _, w := range res.Plan.Warnings {
		fmt.Println(warningStyle.Render("! " + w))
	}
}
