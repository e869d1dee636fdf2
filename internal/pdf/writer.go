// Package pdf serializes a laid-out receipt into a minimal single-page
// PDF 1.4 file and reads such files back for verification.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/luxstay/receipt-engine/internal/layout"
)

// ObjectCount is the number of indirect objects in every receipt file:
// catalog, page tree, page, font, content stream.
const ObjectCount = 5

const (
	objCatalog = iota + 1
	objPages
	objPage
	objFont
	objContent
)

const header = "%PDF-1.4\n%\xE2\xE3\xCF\xD3\n"

// Options controls serialization
type Options struct {
	// FontName is a standard Type1 font; defaults to Helvetica
	FontName string
	// StrictEncoding fails on characters outside WinAnsiEncoding instead
	// of substituting '?'
	StrictEncoding bool
}

// writer tracks the byte offset of each object as the file is written
type writer struct {
	buf     bytes.Buffer
	offsets []int
}

func (w *writer) object(num int, body []byte) {
	w.offsets = append(w.offsets, w.buf.Len())
	fmt.Fprintf(&w.buf, "%d 0 obj\n", num)
	w.buf.Write(body)
	w.buf.WriteString("\nendobj\n")
}

// Serialize encodes plan as a complete PDF file. The operation stream is
// encoded once; any failure aborts without partial output.
func Serialize(plan *layout.Plan, opts Options) ([]byte, error) {
	if opts.FontName == "" {
		opts.FontName = "Helvetica"
	}

	content, err := ContentStream(plan, opts.StrictEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to encode content stream: %w", err)
	}

	w := &writer{}
	w.buf.WriteString(header)

	w.object(objCatalog, []byte(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", objPages)))
	w.object(objPages, []byte(fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R] /Count 1 >>", objPage)))
	w.object(objPage, []byte(fmt.Sprintf(
		"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
		objPages, formatNumber(plan.PageWidth), formatNumber(plan.PageHeight), objFont, objContent,
	)))
	w.object(objFont, []byte(fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding >>", opts.FontName,
	)))

	var stream bytes.Buffer
	fmt.Fprintf(&stream, "<< /Length %d >>\nstream\n", len(content))
	stream.Write(content)
	stream.WriteString("\nendstream")
	w.object(objContent, stream.Bytes())

	xrefStart := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", len(w.offsets)+1)
	w.buf.WriteString("0000000000 65535 f \n")
	for _, off := range w.offsets {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root %d 0 R >>\n", len(w.offsets)+1, objCatalog)
	fmt.Fprintf(&w.buf, "startxref\n%d\n%%%%EOF\n", xrefStart)

	return w.buf.Bytes(), nil
}

// ContentStream encodes the draw operations of plan as PDF operators,
// one per line.
func ContentStream(plan *layout.Plan, strict bool) ([]byte, error) {
	var b bytes.Buffer
	stroke := formatNumber(plan.StrokeWidth)

	line := func(format string, args ...any) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, format, args...)
	}

	for i, op := range plan.Ops {
		switch op.Kind {
		case layout.OpSetFont:
			line("/F1 %s Tf", formatNumber(op.Size))
		case layout.OpText:
			text, err := encodeText(op.Text, strict)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", i, err)
			}
			line("BT")
			line("1 0 0 1 0 0 Tm")
			line("%s %s Td", formatNumber(op.X), formatNumber(op.Y))
			line("(%s) Tj", escapeLiteral(text))
			line("ET")
		case layout.OpLine:
			line("q")
			line("%s w", stroke)
			line("%s %s m", formatNumber(op.X), formatNumber(op.Y))
			line("%s %s l", formatNumber(op.X2), formatNumber(op.Y2))
			line("S")
			line("Q")
		case layout.OpStrokeRect:
			line("q")
			line("%s w", stroke)
			line("%s %s %s %s re", formatNumber(op.X), formatNumber(op.Y), formatNumber(op.W), formatNumber(op.H))
			line("S")
			line("Q")
		case layout.OpFillRect:
			line("q")
			line("0 g")
			line("%s %s %s %s re", formatNumber(op.X), formatNumber(op.Y), formatNumber(op.W), formatNumber(op.H))
			line("f")
			line("Q")
		default:
			return nil, fmt.Errorf("op %d: unknown operation %s", i, op.Kind)
		}
	}

	return b.Bytes(), nil
}
