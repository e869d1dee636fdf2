package receiptdoc

import (
	"encoding/json"
	"fmt"
	"os"
)

// UnmarshalJSON accepts both the canonical row shape and the short
// {k, v, style: {bold, size}} shape used by browser clients.
func (r *Row) UnmarshalJSON(data []byte) error {
	var temp struct {
		Key      *string   `json:"key"`
		Value    *string   `json:"value"`
		Emphasis *Emphasis `json:"emphasis"`
		K        *string   `json:"k"` // Legacy
		V        *string   `json:"v"` // Legacy
		Style    *Emphasis `json:"style"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	row := Row{Emphasis: temp.Emphasis}
	switch {
	case temp.Key != nil:
		row.Key = *temp.Key
	case temp.K != nil:
		row.Key = *temp.K
	}
	switch {
	case temp.Value != nil:
		row.Value = *temp.Value
	case temp.V != nil:
		row.Value = *temp.V
	}
	if row.Emphasis == nil {
		row.Emphasis = temp.Style
	}

	*r = row
	return nil
}

// UnmarshalJSON accepts "size" as an alias of "fontSize"
func (e *Emphasis) UnmarshalJSON(data []byte) error {
	var temp struct {
		Bold     bool     `json:"bold"`
		FontSize *float64 `json:"fontSize"`
		Size     *float64 `json:"size"` // Legacy
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	e.Bold = temp.Bold
	e.FontSize = 0
	if temp.FontSize != nil {
		e.FontSize = *temp.FontSize
	} else if temp.Size != nil {
		e.FontSize = *temp.Size
	}
	return nil
}

// Parse parses a receipt document from JSON and validates it
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse receipt document: %w", err)
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// ParseFile parses a receipt document from disk
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt document: %w", err)
	}

	return Parse(data)
}

// ToJSON converts a Document to indented JSON
func (d *Document) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// SaveToFile saves a Document as JSON
func (d *Document) SaveToFile(path string) error {
	data, err := d.ToJSON()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
