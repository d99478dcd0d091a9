package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses listings from a JSON array.
type JSONParser struct{}

// Parse reads JSON from the reader and returns parsed listings.
func (p *JSONParser) Parse(r io.Reader) ([]RawListing, error) {
	var listings []RawListing

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&listings); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	// Set line numbers (array index + 1, 1-indexed)
	for i := range listings {
		listings[i].LineNum = i + 1
	}

	return listings, nil
}
