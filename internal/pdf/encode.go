package pdf

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnencodable is returned in strict mode when text contains a character
// the built-in font encoding cannot represent.
var ErrUnencodable = errors.New("character not representable in WinAnsiEncoding")

// Symbols outside Windows-1252 that have a readable ASCII stand-in
var transliterations = map[rune]string{
	'→':      "->",
	'←':      "<-",
	'↔':      "<->",
	'≤':      "<=",
	'≥':      ">=",
	'✓':      "v",
	'−':      "-",
	'\u202f': " ", // narrow no-break space, emitted by some currency formatters
}

// encodeText converts UTF-8 text into WinAnsiEncoding bytes
func encodeText(s string, strict bool) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		if t, ok := transliterations[r]; ok {
			out = append(out, t...)
			continue
		}
		if strict {
			return nil, fmt.Errorf("%w: %q", ErrUnencodable, r)
		}
		out = append(out, '?')
	}
	return out, nil
}

// decodeText converts WinAnsiEncoding bytes back to UTF-8
func decodeText(b []byte) (string, error) {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// escapeLiteral escapes the bytes of a PDF literal string body
func escapeLiteral(b []byte) []byte {
	out := make([]byte, 0, len(b)+8)
	for _, c := range b {
		switch c {
		case '\\', '(', ')':
			out = append(out, '\\', c)
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		default:
			out = append(out, c)
		}
	}
	return out
}

// formatNumber writes a PDF real without exponent, rounded to 1/1000
func formatNumber(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
