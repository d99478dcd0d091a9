package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/parsers"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun bool // Validate without saving
	// Source identifies the input, e.g. a digest of the file. When set, each
	// row is created under a key derived from Source and its line, so
	// re-running the same input creates nothing new.
	Source string
	// Extra relationships applied to every imported listing, e.g. an organization.
	Relationships entities.Relationships
}

// ImportError represents an error for a specific listing during import.
type ImportError struct {
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	// BatchID identifies one run in logs and reports.
	BatchID  string
	Imported int
	IDs      []entities.Hash
	Errors   []ImportError
}

// ImportService creates listings in bulk from parsed rows.
type ImportService struct {
	lifecycle *LifecycleService
}

// NewImportService creates a new import service.
func NewImportService(lifecycle *LifecycleService) *ImportService {
	return &ImportService{lifecycle: lifecycle}
}

// Import validates every row and creates the valid ones as caller.
// Row-level failures are collected; a substrate failure aborts the import.
// With a Source set, re-running an aborted import is safe.
func (s *ImportService) Import(ctx context.Context, caller entities.Hash, rows []parsers.RawListing, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{BatchID: uuid.NewString()}

	type candidate struct {
		line    int
		listing *entities.Listing
		rels    entities.Relationships
	}
	candidates := make([]candidate, 0, len(rows))

	for i := range rows {
		raw := &rows[i]
		lineNum := raw.LineNum
		if lineNum == 0 {
			lineNum = i + 1
		}

		listing, ierr := convertRawListing(raw, lineNum)
		if ierr != nil {
			result.Errors = append(result.Errors, *ierr)
			continue
		}
		rels := make(entities.Relationships, len(opts.Relationships)+1)
		for k, v := range opts.Relationships {
			rels[k] = v
		}
		if len(raw.Tags) > 0 {
			rels[entities.RelationTags] = entities.TagTargets(raw.Tags...)
		}
		candidates = append(candidates, candidate{line: lineNum, listing: listing, rels: rels})
	}

	if opts.DryRun {
		result.Imported = len(candidates)
		return result, nil
	}

	for _, c := range candidates {
		rowCtx := ctx
		if opts.Source != "" {
			rowCtx = WithIdempotencyKey(ctx, fmt.Sprintf("import:%s:%d", opts.Source, c.line))
		}
		id, err := s.lifecycle.Create(rowCtx, caller, c.listing, c.rels)
		if err != nil {
			if errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrAlreadyDeleted) {
				result.Errors = append(result.Errors, ImportError{Line: c.line, Message: err.Error()})
				continue
			}
			return result, fmt.Errorf("line %d: %w", c.line, err)
		}
		result.Imported++
		result.IDs = append(result.IDs, id)
	}

	return result, nil
}

// convertRawListing validates a raw row and builds the listing payload.
func convertRawListing(raw *parsers.RawListing, lineNum int) (*entities.Listing, *ImportError) {
	kind, ok := entities.ParseEntityKind(raw.Kind)
	if !ok {
		return nil, &ImportError{
			Line:    lineNum,
			Field:   "kind",
			Value:   raw.Kind,
			Message: fmt.Sprintf("invalid kind %q (valid: offer, request)", raw.Kind),
		}
	}

	listing := &entities.Listing{
		Kind:              kind,
		Title:             raw.Title,
		Description:       raw.Description,
		Status:            entities.StatusActive,
		ContactPreference: raw.ContactPreference,
		TimePreference:    raw.TimePreference,
		TimeZone:          raw.TimeZone,
		InteractionType:   entities.InteractionType(raw.InteractionType),
		Links:             raw.Links,
		Capabilities:      raw.Capabilities,
		Requirements:      raw.Requirements,
	}
	if err := listing.Validate(); err != nil {
		return nil, &ImportError{Line: lineNum, Message: err.Error()}
	}
	return listing, nil
}
