package handlers

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/parsers"
)

// ImportHandler handles importing listings from files.
type ImportHandler struct {
	service *services.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(service *services.ImportService) *ImportHandler {
	return &ImportHandler{
		service: service,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format string // "json", "csv", or "auto"
	DryRun bool   // Validate without saving
	// Relationships are applied to every imported listing.
	Relationships RelationshipInput
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	BatchID  string
	Imported int
	IDs      []entities.Hash
	Errors   []services.ImportError
}

// Handle imports listings from a file as caller.
func (h *ImportHandler) Handle(ctx context.Context, caller entities.Hash, filePath string, opts ImportOptions) (*ImportResult, error) {
	// Get parser
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}

	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	rels, err := parseRelationships(opts.Relationships)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	rows, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	if len(rows) == 0 {
		return &ImportResult{}, nil
	}

	serviceResult, err := h.service.Import(ctx, caller, rows, services.ImportOptions{
		DryRun:        opts.DryRun,
		Source:        entities.NewHash(entities.HashEntry, data).String(),
		Relationships: rels,
	})
	if serviceResult == nil {
		return nil, err
	}

	// A partial result is returned with a substrate error so the caller can report progress.
	return &ImportResult{
		BatchID:  serviceResult.BatchID,
		Imported: serviceResult.Imported,
		IDs:      serviceResult.IDs,
		Errors:   serviceResult.Errors,
	}, err
}
