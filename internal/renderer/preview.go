package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/luxstay/receipt-engine/internal/layout"
	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
)

// DefaultPreviewScale renders the page at 144 dpi
const DefaultPreviewScale = 2.0

var systemFonts = []string{
	"/System/Library/Fonts/Helvetica.ttc",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"C:\\Windows\\Fonts\\arial.ttf",
}

// PreviewOptions controls the raster preview
type PreviewOptions struct {
	// Scale is pixels per PDF point; zero means DefaultPreviewScale
	Scale float64
	// Width resizes the finished image to this many pixels wide, keeping
	// the aspect ratio. Zero keeps the full page size.
	Width int
	// FontPath is a TrueType font to draw text with. When empty the first
	// available system font is used, then gg's built-in face.
	FontPath string
}

// Preview renders doc to a PNG image
func (r *Renderer) Preview(doc *receiptdoc.Document, opts PreviewOptions) ([]byte, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}

	img := Rasterize(layout.Layout(doc, r.cfg), opts)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Rasterize draws plan onto a white page. PDF coordinates have their
// origin at the bottom left; the image is flipped accordingly.
func Rasterize(plan *layout.Plan, opts PreviewOptions) image.Image {
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultPreviewScale
	}

	w := int(plan.PageWidth * scale)
	h := int(plan.PageHeight * scale)
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	fontPath := opts.FontPath
	if fontPath == "" {
		fontPath = findSystemFont()
	}

	flip := func(y float64) float64 {
		return (plan.PageHeight - y) * scale
	}

	stroke := plan.StrokeWidth * scale
	fontSize := 0.0

	for _, op := range plan.Ops {
		switch op.Kind {
		case layout.OpSetFont:
			if op.Size != fontSize && fontPath != "" {
				// Keep the previous face if the font cannot be loaded
				_ = dc.LoadFontFace(fontPath, op.Size*scale)
			}
			fontSize = op.Size
		case layout.OpText:
			dc.DrawString(op.Text, op.X*scale, flip(op.Y))
		case layout.OpLine:
			dc.SetLineWidth(stroke)
			dc.DrawLine(op.X*scale, flip(op.Y), op.X2*scale, flip(op.Y2))
			dc.Stroke()
		case layout.OpStrokeRect:
			dc.SetLineWidth(stroke)
			dc.DrawRectangle(op.X*scale, flip(op.Y+op.H), op.W*scale, op.H*scale)
			dc.Stroke()
		case layout.OpFillRect:
			dc.DrawRectangle(op.X*scale, flip(op.Y+op.H), op.W*scale, op.H*scale)
			dc.Fill()
		}
	}

	img := dc.Image()
	if opts.Width > 0 && opts.Width != w {
		img = imaging.Resize(img, opts.Width, 0, imaging.Lanczos)
	}
	return img
}

func findSystemFont() string {
	for _, path := range systemFonts {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
