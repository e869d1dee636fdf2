package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the page geometry and typographic constants of a receipt.
// All values are in PDF user space units (1/72 inch).
type Config struct {
	PageWidth   float64 `yaml:"page_width"`
	PageHeight  float64 `yaml:"page_height"`
	MarginX     float64 `yaml:"margin_x"`
	TopY        float64 `yaml:"top_y"`
	Inset       float64 `yaml:"inset"`        // section content inset from the margin
	ValueColumn float64 `yaml:"value_column"` // minimum x offset of a value from the key column
	StrokeWidth float64 `yaml:"stroke_width"`

	Fonts   FontSizes     `yaml:"fonts"`
	Spacing Spacing       `yaml:"spacing"`
	Width   WidthEstimate `yaml:"width_estimate"`
	Code    CodeBox       `yaml:"code"`

	WrapWidth     int     `yaml:"wrap_width"`
	SafetyY       float64 `yaml:"safety_y"`        // sections stop below this
	FooterSafetyY float64 `yaml:"footer_safety_y"` // footer lines stop below this
}

// FontSizes per text role
type FontSizes struct {
	Title    float64 `yaml:"title"`
	Subtitle float64 `yaml:"subtitle"`
	Section  float64 `yaml:"section"`
	Row      float64 `yaml:"row"`
	Note     float64 `yaml:"note"`
	Footer   float64 `yaml:"footer"`
}

// Spacing holds the vertical cursor steps
type Spacing struct {
	Title        float64 `yaml:"title"`
	SubtitleGap  float64 `yaml:"subtitle_gap"`
	Header       float64 `yaml:"header"`
	Rule         float64 `yaml:"rule"`
	BoxTop       float64 `yaml:"box_top"`
	SectionTitle float64 `yaml:"section_title"`
	RuleOffset   float64 `yaml:"rule_offset"`
	SectionRule  float64 `yaml:"section_rule"`
	Row          float64 `yaml:"row"`
	NoteGap      float64 `yaml:"note_gap"`
	Note         float64 `yaml:"note"`
	SectionGap   float64 `yaml:"section_gap"`
	FooterGap    float64 `yaml:"footer_gap"`
	Footer       float64 `yaml:"footer"`
	BoxPadding   float64 `yaml:"box_padding"`
}

// WidthEstimate approximates rendered text width from character count.
// There are no glyph metrics: width = chars * factor * size * tuning.
type WidthEstimate struct {
	Regular float64 `yaml:"regular"`
	Bold    float64 `yaml:"bold"`
	Tuning  float64 `yaml:"tuning"`
}

// CodeBox places the optional header code
type CodeBox struct {
	Rise      float64 `yaml:"rise"` // top edge above TopY
	QRSize    float64 `yaml:"qr_size"`
	BarWidth  float64 `yaml:"bar_width"`
	BarHeight float64 `yaml:"bar_height"`
}

// DefaultConfig returns the US Letter receipt layout
func DefaultConfig() Config {
	return Config{
		PageWidth:   612,
		PageHeight:  792,
		MarginX:     54,
		TopY:        742,
		Inset:       16,
		ValueColumn: 250,
		StrokeWidth: 0.85,
		Fonts: FontSizes{
			Title:    22,
			Subtitle: 10,
			Section:  10,
			Row:      11,
			Note:     10,
			Footer:   9,
		},
		Spacing: Spacing{
			Title:        22,
			SubtitleGap:  14,
			Header:       28,
			Rule:         18,
			BoxTop:       10,
			SectionTitle: 14,
			RuleOffset:   6,
			SectionRule:  10,
			Row:          16,
			NoteGap:      2,
			Note:         13,
			SectionGap:   10,
			FooterGap:    14,
			Footer:       12,
			BoxPadding:   8,
		},
		Width: WidthEstimate{
			Regular: 0.55,
			Bold:    0.58,
			Tuning:  1.9,
		},
		Code: CodeBox{
			Rise:      18,
			QRSize:    56,
			BarWidth:  150,
			BarHeight: 36,
		},
		WrapWidth:     88,
		SafetyY:       130,
		FooterSafetyY: 70,
	}
}

// LoadConfig reads a YAML layout file on top of DefaultConfig
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read layout config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse layout config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks that the geometry is usable
func (c Config) Validate() error {
	if c.PageWidth <= 0 || c.PageHeight <= 0 {
		return fmt.Errorf("invalid page size %gx%g", c.PageWidth, c.PageHeight)
	}
	if c.MarginX < 0 || 2*(c.MarginX+c.Inset) >= c.PageWidth {
		return fmt.Errorf("margin_x %g and inset %g leave no content width", c.MarginX, c.Inset)
	}
	if c.TopY <= 0 || c.TopY > c.PageHeight {
		return fmt.Errorf("top_y %g must be within the page", c.TopY)
	}
	if c.SafetyY < 0 || c.SafetyY >= c.TopY {
		return fmt.Errorf("safety_y %g must be below top_y %g", c.SafetyY, c.TopY)
	}
	if c.FooterSafetyY < 0 || c.FooterSafetyY >= c.TopY {
		return fmt.Errorf("footer_safety_y %g must be below top_y %g", c.FooterSafetyY, c.TopY)
	}
	if c.WrapWidth <= 0 {
		return fmt.Errorf("wrap_width must be positive")
	}
	if c.Fonts.Title <= 0 || c.Fonts.Subtitle <= 0 || c.Fonts.Section <= 0 ||
		c.Fonts.Row <= 0 || c.Fonts.Note <= 0 || c.Fonts.Footer <= 0 {
		return fmt.Errorf("font sizes must be positive")
	}
	return nil
}
