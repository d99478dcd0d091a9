package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
)

// QueryHandler handles listing reads.
type QueryHandler struct {
	queryService *services.QueryService
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(queryService *services.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
	}
}

// ListOptions selects which listings to return. At most one of Owner, Tag
// and Related is used, in that order of precedence.
type ListOptions struct {
	Kind    entities.EntityKind    // empty = both kinds
	Status  entities.ListingStatus // empty = active and archived
	Owner   entities.Hash
	Tag     string
	Related entities.Hash
	RelKind entities.RelationKind
}

// ListResult contains the result of listing.
type ListResult struct {
	Listings []*entities.Entity `json:"listings"`
	Total    int                `json:"total"`
}

// Version is one entry of a listing's history.
type Version struct {
	Hash      entities.Hash       `json:"hash"`
	Type      entities.ActionType `json:"type"`
	Author    entities.Hash       `json:"author"`
	Timestamp time.Time           `json:"timestamp"`
	Listing   *entities.Listing   `json:"listing,omitempty"`
}

// HistoryResult contains every version of a listing, oldest first.
type HistoryResult struct {
	ID       entities.Hash `json:"id"`
	Versions []Version     `json:"versions"`
}

// HandleList returns the listings matching opts.
func (h *QueryHandler) HandleList(ctx context.Context, opts ListOptions) (*ListResult, error) {
	var (
		list []*entities.Entity
		err  error
	)

	switch {
	case !opts.Owner.IsZero():
		list, err = h.queryService.GetByOwner(ctx, opts.Owner, opts.Kind, opts.Status)
	case opts.Tag != "":
		list, err = h.queryService.GetByTag(ctx, opts.Tag)
		list = filter(list, opts.Kind, opts.Status)
	case !opts.Related.IsZero():
		list, err = h.queryService.GetByRelationship(ctx, opts.Kind, opts.RelKind, opts.Related)
		list = filter(list, "", opts.Status)
	default:
		list, err = h.listBuckets(ctx, opts.Kind, opts.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}

	return &ListResult{
		Listings: list,
		Total:    len(list),
	}, nil
}

func (h *QueryHandler) listBuckets(ctx context.Context, kind entities.EntityKind, status entities.ListingStatus) ([]*entities.Entity, error) {
	kinds := entities.EntityKinds()
	if kind != "" {
		kinds = []entities.EntityKind{kind}
	}

	out := make([]*entities.Entity, 0)
	for _, k := range kinds {
		if status == "" || status == entities.StatusActive {
			active, err := h.queryService.GetActive(ctx, k)
			if err != nil {
				return nil, err
			}
			out = append(out, active...)
		}
		if status == "" || status == entities.StatusArchived {
			archived, err := h.queryService.GetArchived(ctx, k)
			if err != nil {
				return nil, err
			}
			out = append(out, archived...)
		}
	}
	return out, nil
}

func filter(list []*entities.Entity, kind entities.EntityKind, status entities.ListingStatus) []*entities.Entity {
	out := make([]*entities.Entity, 0, len(list))
	for _, e := range list {
		if kind != "" && e.Kind != kind {
			continue
		}
		if status != "" && e.Listing.Status != status {
			continue
		}
		out = append(out, e)
	}
	return out
}

// HandleGet returns one listing with its relationships.
func (h *QueryHandler) HandleGet(ctx context.Context, id entities.Hash) (*entities.Entity, error) {
	return h.queryService.Get(ctx, id)
}

// HandleHistory returns every version of a listing.
func (h *QueryHandler) HandleHistory(ctx context.Context, id entities.Hash) (*HistoryResult, error) {
	records, err := h.queryService.History(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &HistoryResult{Versions: make([]Version, 0, len(records))}
	for _, rec := range records {
		if result.ID.IsZero() {
			result.ID = rec.Action.Root()
		}
		v := Version{
			Hash:      rec.Action.Hash,
			Type:      rec.Action.Type,
			Author:    rec.Action.Author,
			Timestamp: rec.Action.Timestamp,
		}
		if rec.Entry != nil {
			l, err := entities.DecodeListing(rec.Entry)
			if err != nil {
				return nil, fmt.Errorf("decoding version %s: %w", rec.Action.Hash.Short(), err)
			}
			v.Listing = l
		}
		result.Versions = append(result.Versions, v)
	}
	return result, nil
}
