package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a file does not have the expected structure
var ErrMalformed = errors.New("malformed pdf")

// XrefEntry is one in-use cross-reference table entry
type XrefEntry struct {
	Num        int
	Generation int
	Offset     int
}

// Report describes a parsed receipt file
type Report struct {
	Version   string
	StartXref int
	Size      int // trailer /Size, including the free head entry
	Root      int
	Entries   []XrefEntry
	Pages     int
	Content   []byte   // raw content stream
	Texts     []string // Tj operands, unescaped and decoded to UTF-8
}

var (
	versionRe  = regexp.MustCompile(`^%PDF-(\d+\.\d+)`)
	sizeRe     = regexp.MustCompile(`/Size\s+(\d+)`)
	rootRe     = regexp.MustCompile(`/Root\s+(\d+)\s+(\d+)\s+R`)
	pageTypeRe = regexp.MustCompile(`/Type\s*/Page[^s]`)
	lengthRe   = regexp.MustCompile(`/Length\s+(\d+)`)
)

// Inspect parses the cross-reference table and trailer of data, checks
// that every offset lands exactly on its object header, and extracts the
// text drawn by the content stream.
func Inspect(data []byte) (*Report, error) {
	m := versionRe.FindSubmatch(data)
	if m == nil {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrMalformed)
	}
	report := &Report{Version: string(m[1])}

	startXref, err := findStartXref(data)
	if err != nil {
		return nil, err
	}
	report.StartXref = startXref

	entries, trailer, err := parseXref(data, startXref)
	if err != nil {
		return nil, err
	}
	report.Entries = entries

	if m := sizeRe.FindStringSubmatch(trailer); m != nil {
		report.Size, _ = strconv.Atoi(m[1])
	}
	if m := rootRe.FindStringSubmatch(trailer); m != nil {
		report.Root, _ = strconv.Atoi(m[1])
	}
	if report.Size != len(entries)+1 {
		return nil, fmt.Errorf("%w: trailer /Size %d but %d xref entries", ErrMalformed, report.Size, len(entries)+1)
	}

	for _, e := range entries {
		body, err := objectBody(data, e)
		if err != nil {
			return nil, err
		}
		dict := body
		if s := bytes.Index(body, []byte("\nstream\n")); s >= 0 {
			dict = body[:s]
			content, err := streamData(body)
			if err != nil {
				return nil, fmt.Errorf("object %d: %w", e.Num, err)
			}
			report.Content = content
		}
		if pageTypeRe.Match(dict) {
			report.Pages++
		}
	}

	if report.Content != nil {
		texts, err := extractTexts(report.Content)
		if err != nil {
			return nil, err
		}
		report.Texts = texts
	}

	return report, nil
}

func findStartXref(data []byte) (int, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("%w: startxref not found", ErrMalformed)
	}

	fields := strings.Fields(string(data[idx+len("startxref"):]))
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: startxref without offset", ErrMalformed)
	}
	offset, err := strconv.Atoi(fields[0])
	if err != nil || offset < 0 || offset >= len(data) {
		return 0, fmt.Errorf("%w: invalid startxref offset %q", ErrMalformed, fields[0])
	}
	return offset, nil
}

// parseXref reads a single classic xref section and its trailer dictionary
func parseXref(data []byte, offset int) ([]XrefEntry, string, error) {
	lines := strings.Split(string(data[offset:]), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "xref" {
		return nil, "", fmt.Errorf("%w: no xref keyword at offset %d", ErrMalformed, offset)
	}

	var first, count int
	if _, err := fmt.Sscanf(lines[1], "%d %d", &first, &count); err != nil {
		return nil, "", fmt.Errorf("%w: invalid xref subsection %q", ErrMalformed, lines[1])
	}
	if len(lines) < 2+count+1 {
		return nil, "", fmt.Errorf("%w: xref subsection truncated", ErrMalformed)
	}

	var entries []XrefEntry
	for i := 0; i < count; i++ {
		line := lines[2+i]
		// Entries are exactly 20 bytes including the two-byte EOL
		if len(line) != 19 {
			return nil, "", fmt.Errorf("%w: xref entry %d has length %d", ErrMalformed, first+i, len(line)+1)
		}
		off, err1 := strconv.Atoi(line[0:10])
		gen, err2 := strconv.Atoi(line[11:16])
		if err1 != nil || err2 != nil {
			return nil, "", fmt.Errorf("%w: invalid xref entry %q", ErrMalformed, line)
		}
		switch line[17] {
		case 'n':
			entries = append(entries, XrefEntry{Num: first + i, Generation: gen, Offset: off})
		case 'f':
		default:
			return nil, "", fmt.Errorf("%w: invalid xref flag in %q", ErrMalformed, line)
		}
	}

	rest := strings.Join(lines[2+count:], "\n")
	if !strings.HasPrefix(strings.TrimSpace(rest), "trailer") {
		return nil, "", fmt.Errorf("%w: missing trailer", ErrMalformed)
	}
	end := strings.Index(rest, ">>")
	if end < 0 {
		return nil, "", fmt.Errorf("%w: unterminated trailer", ErrMalformed)
	}
	return entries, rest[:end+2], nil
}

// objectBody returns the bytes after "N G obj" up to "endobj". Stream
// objects are returned to the end of the file since stream data may
// itself contain the keyword.
func objectBody(data []byte, e XrefEntry) ([]byte, error) {
	if e.Offset >= len(data) {
		return nil, fmt.Errorf("%w: object %d offset %d past end of file", ErrMalformed, e.Num, e.Offset)
	}
	head := fmt.Sprintf("%d %d obj", e.Num, e.Generation)
	if !bytes.HasPrefix(data[e.Offset:], []byte(head)) {
		return nil, fmt.Errorf("%w: offset %d of object %d does not point at %q", ErrMalformed, e.Offset, e.Num, head)
	}

	body := data[e.Offset+len(head):]
	end := bytes.Index(body, []byte("endobj"))
	if s := bytes.Index(body, []byte("\nstream\n")); s >= 0 && (end < 0 || s < end) {
		return body, nil
	}
	if end < 0 {
		return nil, fmt.Errorf("%w: object %d has no endobj", ErrMalformed, e.Num)
	}
	return body[:end], nil
}

// streamData returns exactly /Length bytes of stream data
func streamData(body []byte) ([]byte, error) {
	m := lengthRe.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("%w: stream without /Length", ErrMalformed)
	}
	length, _ := strconv.Atoi(string(m[1]))

	start := bytes.Index(body, []byte("stream\n"))
	start += len("stream\n")
	if start+length > len(body) {
		return nil, fmt.Errorf("%w: /Length %d exceeds object", ErrMalformed, length)
	}
	if !bytes.HasPrefix(body[start+length:], []byte("\nendstream")) {
		return nil, fmt.Errorf("%w: /Length %d does not end at endstream", ErrMalformed, length)
	}
	return body[start : start+length], nil
}

// extractTexts returns the literal operand of every Tj operator in order
func extractTexts(content []byte) ([]string, error) {
	var texts []string
	for i := 0; i < len(content); i++ {
		if content[i] != '(' {
			continue
		}
		lit, next, err := readLiteral(content, i)
		if err != nil {
			return nil, err
		}
		i = next - 1
		if bytes.HasPrefix(bytes.TrimLeft(content[next:], " "), []byte("Tj")) {
			s, err := decodeText(lit)
			if err != nil {
				return nil, err
			}
			texts = append(texts, s)
		}
	}
	return texts, nil
}

// readLiteral reads a literal string starting at the '(' at pos and
// returns its unescaped bytes and the index after the closing ')'.
func readLiteral(content []byte, pos int) ([]byte, int, error) {
	var out []byte
	depth := 0
	for i := pos; i < len(content); i++ {
		c := content[i]
		switch c {
		case '\\':
			i++
			if i >= len(content) {
				return nil, 0, fmt.Errorf("%w: dangling escape", ErrMalformed)
			}
			switch e := content[i]; e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, e)
			}
		case '(':
			if depth > 0 {
				out = append(out, c)
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				return out, i + 1, nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return nil, 0, fmt.Errorf("%w: unterminated string literal", ErrMalformed)
}
