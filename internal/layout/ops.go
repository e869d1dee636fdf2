package layout

// OpKind identifies a draw operation
type OpKind int

const (
	OpSetFont OpKind = iota
	OpText
	OpLine
	OpStrokeRect
	OpFillRect
)

func (k OpKind) String() string {
	switch k {
	case OpSetFont:
		return "font"
	case OpText:
		return "text"
	case OpLine:
		return "line"
	case OpStrokeRect:
		return "stroke-rect"
	case OpFillRect:
		return "fill-rect"
	default:
		return "unknown"
	}
}

// Op is one absolute-positioned drawing instruction. Coordinates use the
// PDF convention: origin bottom-left, y grows upward.
//
//	OpSetFont:    Size
//	OpText:       X, Y (baseline), Text (unescaped)
//	OpLine:       X, Y to X2, Y2
//	OpStrokeRect: X, Y (bottom-left), W, H
//	OpFillRect:   X, Y (bottom-left), W, H
type Op struct {
	Kind OpKind
	Size float64
	X    float64
	Y    float64
	X2   float64
	Y2   float64
	W    float64
	H    float64
	Text string
}

// Rect is an axis-aligned rectangle anchored at its bottom-left corner
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Plan is the output of the layout pass
type Plan struct {
	PageWidth   float64
	PageHeight  float64
	StrokeWidth float64
	Ops         []Op

	// Box is the content card drawn around the sections
	Box Rect
	// MinY is the lowest cursor position reached by section content
	MinY float64
	// Truncated reports that rows, notes, sections or footer lines were dropped
	Truncated bool
	// Warnings lists non-fatal problems such as an unencodable header code
	Warnings []string
}

// Texts returns the text of every text operation in order
func (p *Plan) Texts() []string {
	var out []string
	for _, op := range p.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}
