package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ListSeparator splits multi-valued CSV cells.
const ListSeparator = ";"

// CSVParser parses listings from CSV format.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed listings.
// Required columns: kind, title, description. List columns (tags,
// capabilities, requirements, links) hold ";"-separated values.
func (p *CSVParser) Parse(r io.Reader) ([]RawListing, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	requiredCols := []string{"kind", "title", "description"}
	for _, col := range requiredCols {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawListings.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawListing, error) {
	var listings []RawListing
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		listings = append(listings, p.parseRecord(record, colIndex, lineNum))
	}

	return listings, nil
}

// parseRecord converts a CSV record to a RawListing.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) RawListing {
	return RawListing{
		Kind:              getColumn(record, colIndex, "kind"),
		Title:             getColumn(record, colIndex, "title"),
		Description:       getColumn(record, colIndex, "description"),
		Tags:              splitList(getColumn(record, colIndex, "tags")),
		Capabilities:      splitList(getColumn(record, colIndex, "capabilities")),
		Requirements:      splitList(getColumn(record, colIndex, "requirements")),
		Links:             splitList(getColumn(record, colIndex, "links")),
		InteractionType:   getColumn(record, colIndex, "interaction_type"),
		TimeZone:          getColumn(record, colIndex, "time_zone"),
		TimePreference:    getColumn(record, colIndex, "time_preference"),
		ContactPreference: getColumn(record, colIndex, "contact_preference"),
		LineNum:           lineNum,
	}
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(cell, ListSeparator) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
