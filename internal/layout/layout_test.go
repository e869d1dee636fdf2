package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *receiptdoc.Document {
	return &receiptdoc.Document{
		Title:         "LuxStay — Reservation Receipt",
		SubtitleLeft:  "Grand Hotel • Room #12",
		SubtitleRight: "March 1, 2025 → March 4, 2025  •  3 nights",
		Sections: []receiptdoc.Section{
			{Title: "Reservation", Rows: []receiptdoc.Row{{Key: "Reservation ID", Value: "#42"}}},
			{Title: "Charges", Rows: []receiptdoc.Row{
				{Key: "Subtotal", Value: "$106.07"},
				{Key: "Total", Value: "$109.25", Emphasis: &receiptdoc.Emphasis{Bold: true, FontSize: 12}},
			}},
		},
		FooterLines: []string{"Keep this receipt for check-in.", "Thank you"},
	}
}

func textOps(p *Plan) []Op {
	var ops []Op
	for _, op := range p.Ops {
		if op.Kind == OpText {
			ops = append(ops, op)
		}
	}
	return ops
}

func findText(t *testing.T, p *Plan, text string) Op {
	t.Helper()
	for _, op := range textOps(p) {
		if op.Text == text {
			return op
		}
	}
	t.Fatalf("text %q not found in plan", text)
	return Op{}
}

func TestLayout_HeaderPositions(t *testing.T) {
	plan := Layout(sampleDocument(), DefaultConfig())

	require.NotEmpty(t, plan.Ops)
	assert.Equal(t, Op{Kind: OpSetFont, Size: 22}, plan.Ops[0])

	title := findText(t, plan, "LuxStay — Reservation Receipt")
	assert.Equal(t, 54.0, title.X)
	assert.Equal(t, 742.0, title.Y)

	left := findText(t, plan, "Grand Hotel • Room #12")
	assert.Equal(t, 720.0, left.Y)

	right := findText(t, plan, "March 1, 2025 → March 4, 2025  •  3 nights")
	assert.Equal(t, 706.0, right.Y)
}

func TestLayout_SectionTitlesUppercasedInOrder(t *testing.T) {
	plan := Layout(sampleDocument(), DefaultConfig())

	var titles []string
	for _, text := range plan.Texts() {
		if text == strings.ToUpper(text) && (text == "RESERVATION" || text == "CHARGES") {
			titles = append(titles, text)
		}
	}
	assert.Equal(t, []string{"RESERVATION", "CHARGES"}, titles)

	first := findText(t, plan, "RESERVATION")
	assert.Equal(t, 70.0, first.X)
	assert.Equal(t, 674.0, first.Y)
}

func TestLayout_RowValueRightAligned(t *testing.T) {
	cfg := DefaultConfig()
	plan := Layout(sampleDocument(), cfg)

	key := findText(t, plan, "Subtotal")
	value := findText(t, plan, "$106.07")
	assert.Equal(t, 70.0, key.X)
	assert.Equal(t, key.Y, value.Y)

	// 7 chars * 0.55 * 11 * 1.9 from the right edge at 542
	want := 542 - 7*0.55*11*1.9
	assert.InDelta(t, want, value.X, 1e-9)
}

func TestLayout_BoldRowUsesLargerFont(t *testing.T) {
	plan := Layout(sampleDocument(), DefaultConfig())

	for i, op := range plan.Ops {
		if op.Kind == OpText && op.Text == "Total" {
			require.Greater(t, i, 0)
			assert.Equal(t, Op{Kind: OpSetFont, Size: 13}, plan.Ops[i-1])
			value := plan.Ops[i+1]
			assert.InDelta(t, 542-7*0.58*13*1.9, value.X, 1e-9)
			return
		}
	}
	t.Fatal("Total row not found")
}

func TestLayout_ValueClampedToMinimumColumn(t *testing.T) {
	doc := &receiptdoc.Document{
		Title: "Receipt",
		Sections: []receiptdoc.Section{{
			Title: "Guest",
			Rows:  []receiptdoc.Row{{Key: "Email", Value: strings.Repeat("x", 60) + "@example.com"}},
		}},
	}

	plan := Layout(doc, DefaultConfig())
	value := findText(t, plan, strings.Repeat("x", 60)+"@example.com")
	assert.Equal(t, 70.0+250.0, value.X)
}

func TestLayout_BoundingBoxFollowsContent(t *testing.T) {
	cfg := DefaultConfig()
	plan := Layout(sampleDocument(), cfg)

	var rects []Op
	for _, op := range plan.Ops {
		if op.Kind == OpStrokeRect {
			rects = append(rects, op)
		}
	}
	require.Len(t, rects, 1)

	// header ends at 742-22-28-18 = 674, box top sits 10 above it
	assert.Equal(t, 684.0, plan.Box.Y+plan.Box.H)
	assert.Equal(t, plan.MinY-8, plan.Box.Y)
	assert.Equal(t, 54.0, plan.Box.X)
	assert.Equal(t, 504.0, plan.Box.W)
	assert.Equal(t, Op{Kind: OpStrokeRect, X: plan.Box.X, Y: plan.Box.Y, W: plan.Box.W, H: plan.Box.H}, rects[0])

	for _, op := range textOps(plan) {
		if op.X == 70 {
			assert.GreaterOrEqual(t, op.Y, plan.MinY, "section text %q below box", op.Text)
		}
	}

	small := Layout(&receiptdoc.Document{Title: "Receipt"}, cfg)
	assert.Less(t, small.Box.H, plan.Box.H)
	assert.False(t, plan.Truncated)
}

func TestLayout_TruncatesOverflowingRows(t *testing.T) {
	rows := make([]receiptdoc.Row, 200)
	for i := range rows {
		rows[i] = receiptdoc.Row{Key: fmt.Sprintf("Row %d", i), Value: "$1.00"}
	}
	doc := &receiptdoc.Document{
		Title:       "Receipt",
		Sections:    []receiptdoc.Section{{Title: "Charges", Rows: rows}, {Title: "Never shown"}},
		FooterLines: []string{"Thank you"},
	}

	cfg := DefaultConfig()
	plan := Layout(doc, cfg)

	assert.True(t, plan.Truncated)
	assert.NotContains(t, plan.Texts(), "NEVER SHOWN")
	assert.NotContains(t, plan.Texts(), "Row 199")
	assert.Contains(t, plan.Texts(), "Row 0")
	assert.Contains(t, plan.Texts(), "Thank you")

	for _, op := range textOps(plan) {
		if strings.HasPrefix(op.Text, "Row ") {
			assert.GreaterOrEqual(t, op.Y, cfg.SafetyY)
		}
	}
	assert.GreaterOrEqual(t, plan.Box.Y, 0.0)
}

func TestLayout_FooterStopsAtFooterSafety(t *testing.T) {
	rows := make([]receiptdoc.Row, 36)
	for i := range rows {
		rows[i] = receiptdoc.Row{Key: "k", Value: "v"}
	}
	footer := make([]string, 20)
	for i := range footer {
		footer[i] = fmt.Sprintf("footer %d", i)
	}

	cfg := DefaultConfig()
	plan := Layout(&receiptdoc.Document{
		Title:       "Receipt",
		Sections:    []receiptdoc.Section{{Title: "Rows", Rows: rows}},
		FooterLines: footer,
	}, cfg)

	assert.True(t, plan.Truncated)
	assert.NotContains(t, plan.Texts(), "footer 19")
	for _, op := range textOps(plan) {
		if strings.HasPrefix(op.Text, "footer") {
			assert.GreaterOrEqual(t, op.Y, cfg.FooterSafetyY)
		}
	}
}

func TestLayout_NoteLinesWrapped(t *testing.T) {
	note := strings.TrimSpace(strings.Repeat("lorem ipsum dolor ", 20))
	doc := &receiptdoc.Document{
		Title:    "Receipt",
		Sections: []receiptdoc.Section{{Title: "Guest", Rows: []receiptdoc.Row{{Key: "Name", Value: "Ada"}}, NoteLines: []string{note}}},
	}

	cfg := DefaultConfig()
	plan := Layout(doc, cfg)

	var rowY float64
	for _, op := range textOps(plan) {
		if op.Text == "Name" {
			rowY = op.Y
		}
	}
	require.NotZero(t, rowY)

	var wrapped []Op
	var words []string
	for _, op := range textOps(plan) {
		if op.X == 70 && op.Y < rowY {
			wrapped = append(wrapped, op)
			words = append(words, op.Text)
		}
	}
	require.Greater(t, len(wrapped), 1)
	for i, op := range wrapped {
		assert.LessOrEqual(t, len(op.Text), cfg.WrapWidth)
		if i > 0 {
			assert.Equal(t, wrapped[i-1].Y-13, op.Y)
		}
	}
	assert.Equal(t, note, strings.Join(words, " "))
}

func TestLayout_CodeDrawnAsFilledRects(t *testing.T) {
	for _, kind := range []string{receiptdoc.CodeQR, receiptdoc.CodeCode128, receiptdoc.CodeCode39} {
		t.Run(kind, func(t *testing.T) {
			doc := sampleDocument()
			doc.Code = &receiptdoc.Code{Kind: kind, Value: "RES-42"}

			cfg := DefaultConfig()
			plan := Layout(doc, cfg)
			assert.Empty(t, plan.Warnings)

			fills := 0
			for _, op := range plan.Ops {
				if op.Kind != OpFillRect {
					continue
				}
				fills++
				assert.GreaterOrEqual(t, op.X, cfg.PageWidth/2)
				assert.LessOrEqual(t, op.X+op.W, cfg.PageWidth-cfg.MarginX+1e-9)
				assert.LessOrEqual(t, op.Y+op.H, cfg.TopY+cfg.Code.Rise+1e-9)
			}
			assert.Greater(t, fills, 0)
		})
	}
}

func TestLayout_UnencodableCodeIsWarning(t *testing.T) {
	doc := sampleDocument()
	doc.Code = &receiptdoc.Code{Kind: receiptdoc.CodeCode39, Value: "lower"}

	plan := Layout(doc, DefaultConfig())
	assert.Len(t, plan.Warnings, 1)
	for _, op := range plan.Ops {
		assert.NotEqual(t, OpFillRect, op.Kind)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{"empty", "   ", 10, nil},
		{"fits", "hello world", 20, []string{"hello world"}},
		{"breaks", "aaa bbb ccc", 7, []string{"aaa bbb", "ccc"}},
		{"collapses whitespace", "  a \t b\n c  ", 80, []string{"a b c"}},
		{"long word alone", "short averyveryverylongword end", 8, []string{"short", "averyveryverylongword", "end"}},
		{"counts runes", "ééé ééé", 7, []string{"ééé ééé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wrap(tt.text, tt.maxChars))
		})
	}
}

func TestWrap_LongNotePreservesWords(t *testing.T) {
	var words []string
	for i := 0; len(strings.Join(words, " ")) < 300; i++ {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	text := strings.Join(words, " ")

	lines := Wrap(text, 78)
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 78)
	}
	assert.Equal(t, words, strings.Fields(strings.Join(lines, " ")))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_height: 842\nwrap_width: 70\nfonts:\n  title: 18\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 842.0, cfg.PageHeight)
	assert.Equal(t, 70, cfg.WrapWidth)
	assert.Equal(t, 18.0, cfg.Fonts.Title)
	assert.Equal(t, 11.0, cfg.Fonts.Row)
	assert.Equal(t, 612.0, cfg.PageWidth)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.SafetyY = 800
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MarginX = 400
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.WrapWidth = 0
	assert.Error(t, bad.Validate())
}
