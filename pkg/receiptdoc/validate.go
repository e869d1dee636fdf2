package receiptdoc

import (
	"errors"
	"fmt"
	"strings"
)

// MaxFontSize bounds row emphasis sizes
const MaxFontSize = 72

// ErrTitleRequired is returned when a document has no title
var ErrTitleRequired = errors.New("title is required")

// Validate checks a Document received from outside the process. The
// builder itself never rejects input; this is for API and CLI boundaries.
func Validate(d *Document) error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}

	for i, s := range d.Sections {
		for j, row := range s.Rows {
			if err := validateEmphasis(row.Emphasis); err != nil {
				return fmt.Errorf("section[%d] '%s' row[%d]: %w", i, s.Title, j, err)
			}
		}
	}

	if d.Code != nil {
		if err := validateCode(d.Code); err != nil {
			return fmt.Errorf("code: %w", err)
		}
	}

	return nil
}

func validateEmphasis(e *Emphasis) error {
	if e == nil {
		return nil
	}
	if e.FontSize < 0 || e.FontSize > MaxFontSize {
		return fmt.Errorf("invalid fontSize %g (must be between 0 and %d)", e.FontSize, MaxFontSize)
	}
	return nil
}

func validateCode(c *Code) error {
	if c.Value == "" {
		return fmt.Errorf("code requires value")
	}

	switch c.Kind {
	case CodeQR, CodeCode128:
		return nil
	case CodeCode39:
		for _, r := range c.Value {
			if !strings.ContainsRune(code39Charset, r) {
				return fmt.Errorf("character %q cannot be encoded as code39", r)
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid code kind '%s' (must be qr, code128, or code39)", c.Kind)
	}
}

const code39Charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-. $/+%"
