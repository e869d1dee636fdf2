// Package receiptdoc defines the logical model of a printable reservation receipt
package receiptdoc

// Document is a single-page receipt: a header, labeled sections and footer lines
type Document struct {
	Title         string    `json:"title"`
	SubtitleLeft  string    `json:"subtitleLeft,omitempty"`
	SubtitleRight string    `json:"subtitleRight,omitempty"`
	Sections      []Section `json:"sections,omitempty"`
	FooterLines   []string  `json:"footerLines,omitempty"`
	Code          *Code     `json:"code,omitempty"`
}

// Section is a titled block of key/value rows with optional free-text notes
type Section struct {
	Title     string   `json:"title"`
	Rows      []Row    `json:"rows,omitempty"`
	NoteLines []string `json:"noteLines,omitempty"`
}

// Row is one key/value line of a section
type Row struct {
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Emphasis *Emphasis `json:"emphasis,omitempty"`
}

// Emphasis overrides the font of a single row
type Emphasis struct {
	Bold     bool    `json:"bold,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
}

// Code kinds
const (
	CodeQR      = "qr"
	CodeCode128 = "code128"
	CodeCode39  = "code39"
)

// Code is a scannable reference drawn in the header
type Code struct {
	Kind  string `json:"kind"` // qr, code128, code39
	Value string `json:"value"`
}

// RowCount returns the total number of rows across all sections
func (d *Document) RowCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Rows)
	}
	return n
}
