package layout

import (
	"fmt"
	"image/color"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
	"github.com/skip2/go-qrcode"
)

// code draws the header code in the top-right corner as filled rectangles
func (e *engine) code(c *receiptdoc.Code) error {
	if c.Value == "" {
		return nil
	}

	switch c.Kind {
	case receiptdoc.CodeQR, "":
		return e.qrCode(c.Value)
	case receiptdoc.CodeCode128:
		bc, err := code128.Encode(c.Value)
		if err != nil {
			return err
		}
		return e.barcode(bc)
	case receiptdoc.CodeCode39:
		bc, err := code39.Encode(c.Value, false, false)
		if err != nil {
			return err
		}
		return e.barcode(bc)
	default:
		return fmt.Errorf("unsupported code kind: %s", c.Kind)
	}
}

func (e *engine) qrCode(value string) error {
	qr, err := qrcode.New(value, qrcode.Medium)
	if err != nil {
		return err
	}
	qr.DisableBorder = true

	bitmap := qr.Bitmap()
	n := len(bitmap)
	if n == 0 {
		return nil
	}

	size := e.cfg.Code.QRSize
	module := size / float64(n)
	x0 := e.cfg.PageWidth - e.cfg.MarginX - size
	top := e.cfg.TopY + e.cfg.Code.Rise

	// One rectangle per horizontal run of dark modules
	for row, modules := range bitmap {
		y := top - float64(row+1)*module
		start := -1
		for col := 0; col <= len(modules); col++ {
			dark := col < len(modules) && modules[col]
			if dark && start < 0 {
				start = col
			}
			if !dark && start >= 0 {
				e.fillRect(Rect{
					X: x0 + float64(start)*module,
					Y: y,
					W: float64(col-start) * module,
					H: module,
				})
				start = -1
			}
		}
	}

	return nil
}

func (e *engine) barcode(bc barcode.Barcode) error {
	bounds := bc.Bounds()
	modules := bounds.Dx()
	if modules == 0 {
		return nil
	}

	scale := e.cfg.Code.BarWidth / float64(modules)
	x0 := e.cfg.PageWidth - e.cfg.MarginX - e.cfg.Code.BarWidth
	top := e.cfg.TopY + e.cfg.Code.Rise
	y := top - e.cfg.Code.BarHeight

	start := -1
	for x := 0; x <= modules; x++ {
		dark := x < modules && isDark(bc.At(bounds.Min.X+x, bounds.Min.Y))
		if dark && start < 0 {
			start = x
		}
		if !dark && start >= 0 {
			e.fillRect(Rect{
				X: x0 + float64(start)*scale,
				Y: y,
				W: float64(x-start) * scale,
				H: e.cfg.Code.BarHeight,
			})
			start = -1
		}
	}

	return nil
}

func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r+g+b < 3*0x8000
}
