// Package layout turns a receipt document into absolute-positioned draw
// operations on a single fixed-size page.
package layout

import (
	"math"
	"strings"

	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
)

// engine holds the vertical cursor while a document is laid out
type engine struct {
	cfg  Config
	plan *Plan
	y    float64
	minY float64
}

// Layout computes the draw operations for doc. Content that would fall
// below the safety thresholds is dropped; there is never a second page.
func Layout(doc *receiptdoc.Document, cfg Config) *Plan {
	e := &engine{
		cfg: cfg,
		plan: &Plan{
			PageWidth:   cfg.PageWidth,
			PageHeight:  cfg.PageHeight,
			StrokeWidth: cfg.StrokeWidth,
		},
		y: cfg.TopY,
	}

	e.header(doc)

	boxTop := e.y + cfg.Spacing.BoxTop
	e.minY = e.y

	e.sections(doc.Sections)
	e.footer(doc.FooterLines)

	boxBottom := e.minY - cfg.Spacing.BoxPadding
	e.plan.Box = Rect{
		X: cfg.MarginX,
		Y: boxBottom,
		W: cfg.PageWidth - 2*cfg.MarginX,
		H: boxTop - boxBottom,
	}
	e.plan.MinY = e.minY
	e.strokeRect(e.plan.Box)

	if doc.Code != nil {
		if err := e.code(doc.Code); err != nil {
			e.plan.Warnings = append(e.plan.Warnings, "code skipped: "+err.Error())
		}
	}

	return e.plan
}

func (e *engine) header(doc *receiptdoc.Document) {
	x := e.cfg.MarginX

	e.setFont(e.cfg.Fonts.Title)
	e.textAt(x, e.y, doc.Title)
	e.y -= e.cfg.Spacing.Title

	e.setFont(e.cfg.Fonts.Subtitle)
	if doc.SubtitleLeft != "" {
		e.textAt(x, e.y, doc.SubtitleLeft)
	}
	if doc.SubtitleRight != "" {
		e.textAt(x, e.y-e.cfg.Spacing.SubtitleGap, doc.SubtitleRight)
	}
	e.y -= e.cfg.Spacing.Header

	e.line(x, e.y, e.cfg.PageWidth-x, e.y)
	e.y -= e.cfg.Spacing.Rule
}

func (e *engine) sections(sections []receiptdoc.Section) {
	for _, s := range sections {
		if e.belowSafety() {
			break
		}

		e.sectionTitle(s.Title)

		for _, r := range s.Rows {
			if e.belowSafety() {
				break
			}
			e.row(r)
		}

		if len(s.NoteLines) > 0 {
			e.notes(s.NoteLines)
		}

		e.y -= e.cfg.Spacing.SectionGap
		e.trackMin()
	}
}

func (e *engine) sectionTitle(title string) {
	left, right := e.columns()

	e.setFont(e.cfg.Fonts.Section)
	e.textAt(left, e.y, strings.ToUpper(title))
	e.y -= e.cfg.Spacing.SectionTitle
	e.trackMin()

	e.line(left, e.y+e.cfg.Spacing.RuleOffset, right, e.y+e.cfg.Spacing.RuleOffset)
	e.y -= e.cfg.Spacing.SectionRule
	e.trackMin()
}

func (e *engine) row(r receiptdoc.Row) {
	left, right := e.columns()

	size := e.cfg.Fonts.Row
	bold := false
	if r.Emphasis != nil {
		bold = r.Emphasis.Bold
		if r.Emphasis.FontSize > 0 {
			size = r.Emphasis.FontSize
		}
	}
	if bold {
		size++
	}

	e.setFont(size)
	e.textAt(left, e.y, r.Key)

	textW := e.cfg.Width.EstimateWidth(r.Value, size, bold)
	rx := math.Max(left+e.cfg.ValueColumn, right-textW)
	e.textAt(rx, e.y, r.Value)

	e.y -= e.cfg.Spacing.Row
	e.trackMin()
}

func (e *engine) notes(noteLines []string) {
	left, _ := e.columns()

	e.y -= e.cfg.Spacing.NoteGap
	e.setFont(e.cfg.Fonts.Note)

notes:
	for _, nl := range noteLines {
		if e.belowSafety() {
			break
		}
		for _, l := range Wrap(nl, e.cfg.WrapWidth) {
			if e.belowSafety() {
				break notes
			}
			e.textAt(left, e.y, l)
			e.y -= e.cfg.Spacing.Note
		}
	}

	e.trackMin()
}

func (e *engine) footer(lines []string) {
	x := e.cfg.MarginX
	off := e.cfg.Spacing.RuleOffset

	e.line(x, e.y+off, e.cfg.PageWidth-x, e.y+off)
	e.y -= e.cfg.Spacing.FooterGap

	e.setFont(e.cfg.Fonts.Footer)
	for _, f := range lines {
		if e.y < e.cfg.FooterSafetyY {
			e.plan.Truncated = true
			break
		}
		e.textAt(x, e.y, f)
		e.y -= e.cfg.Spacing.Footer
	}
}

// columns returns the key x position and the right edge of the value column
func (e *engine) columns() (float64, float64) {
	left := e.cfg.MarginX + e.cfg.Inset
	right := e.cfg.PageWidth - e.cfg.MarginX - e.cfg.Inset
	return left, right
}

func (e *engine) belowSafety() bool {
	if e.y < e.cfg.SafetyY {
		e.plan.Truncated = true
		return true
	}
	return false
}

func (e *engine) trackMin() {
	e.minY = math.Min(e.minY, e.y)
}

func (e *engine) setFont(size float64) {
	e.plan.Ops = append(e.plan.Ops, Op{Kind: OpSetFont, Size: size})
}

func (e *engine) textAt(x, y float64, text string) {
	e.plan.Ops = append(e.plan.Ops, Op{Kind: OpText, X: x, Y: y, Text: text})
}

func (e *engine) line(x1, y1, x2, y2 float64) {
	e.plan.Ops = append(e.plan.Ops, Op{Kind: OpLine, X: x1, Y: y1, X2: x2, Y2: y2})
}

func (e *engine) strokeRect(r Rect) {
	e.plan.Ops = append(e.plan.Ops, Op{Kind: OpStrokeRect, X: r.X, Y: r.Y, W: r.W, H: r.H})
}

func (e *engine) fillRect(r Rect) {
	e.plan.Ops = append(e.plan.Ops, Op{Kind: OpFillRect, X: r.X, Y: r.Y, W: r.W, H: r.H})
}
