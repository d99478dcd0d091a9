package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
)

// caller returns the agent named in the caller header, or "" if none.
func caller(r *http.Request) (entities.Hash, error) {
	v := r.Header.Get(CallerHeader)
	if v == "" {
		return "", nil
	}
	return entities.ParseAgent(v)
}

func hashParam(r *http.Request, name string) (entities.Hash, error) {
	h, err := entities.ParseHash(chi.URLParam(r, name))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return h, nil
}

func kindParam(r *http.Request) (entities.EntityKind, error) {
	v := chi.URLParam(r, "kind")
	kind, ok := entities.ParseEntityKind(v)
	if !ok {
		return "", fmt.Errorf("%w: unknown kind %q", services.ErrInvalidPayload, v)
	}
	return kind, nil
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// UpdateRequest is the request body for updating a listing.
type UpdateRequest struct {
	handlers.ListingInput
	// Previous pins the version being replaced; empty means the current latest.
	Previous entities.Hash `json:"previous,omitempty"`
}

// CreateListing handles POST /listings/{kind}
func (s *Server) CreateListing(w http.ResponseWriter, r *http.Request) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var in handlers.ListingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, err.Error())
		return
	}

	e, err := s.listings.HandleCreate(r.Context(), agent, kind, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateListing handles PUT /listings/{id}
func (s *Server) UpdateListing(w http.ResponseWriter, r *http.Request) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := hashParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	e, err := s.listings.HandleUpdate(r.Context(), agent, id, req.Previous, req.ListingInput)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// statusChange runs one of the id-only lifecycle operations.
func (s *Server) statusChange(w http.ResponseWriter, r *http.Request, op func(agent, id entities.Hash) error) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := hashParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := op(agent, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveListing handles POST /listings/{id}/archive
func (s *Server) ArchiveListing(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(agent, id entities.Hash) error {
		return s.listings.HandleArchive(r.Context(), agent, id)
	})
}

// UnarchiveListing handles POST /listings/{id}/unarchive
func (s *Server) UnarchiveListing(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(agent, id entities.Hash) error {
		return s.listings.HandleUnarchive(r.Context(), agent, id)
	})
}

// DeleteListing handles DELETE /listings/{id}
func (s *Server) DeleteListing(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(agent, id entities.Hash) error {
		return s.listings.HandleDelete(r.Context(), agent, id)
	})
}

// RepairListing handles POST /listings/{id}/repair
func (s *Server) RepairListing(w http.ResponseWriter, r *http.Request) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := hashParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.listings.HandleRepair(r.Context(), agent, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetListing handles GET /listings/{id}
func (s *Server) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := hashParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.queries.HandleGet(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// GetHistory handles GET /listings/{id}/history
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := hashParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	history, err := s.queries.HandleHistory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// ListListings handles GET /listings
// Supports query params: kind, status, owner, tag, related with rel_kind.
func (s *Server) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts handlers.ListOptions

	if v := q.Get("kind"); v != "" {
		kind, ok := entities.ParseEntityKind(v)
		if !ok {
			badRequest(w, fmt.Sprintf("unknown kind %q", v))
			return
		}
		opts.Kind = kind
	}
	if v := q.Get("status"); v != "" {
		opts.Status = entities.ListingStatus(v)
		if !opts.Status.IsValid() {
			badRequest(w, fmt.Sprintf("unknown status %q", v))
			return
		}
	}
	if v := q.Get("owner"); v != "" {
		owner, err := entities.ParseAgent(v)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		opts.Owner = owner
	}
	opts.Tag = q.Get("tag")
	if v := q.Get("related"); v != "" {
		related, err := entities.ParseHash(v)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		opts.Related = related
		opts.RelKind = entities.RelationKind(q.Get("rel_kind"))
		if !opts.RelKind.IsValid() {
			badRequest(w, fmt.Sprintf("unknown rel_kind %q", q.Get("rel_kind")))
			return
		}
		if opts.Kind == "" {
			badRequest(w, "kind is required with related")
			return
		}
	}

	s.list(w, r, opts)
}

// ListBucket handles GET /kinds/{kind}/{status}
func (s *Server) ListBucket(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := entities.ListingStatus(chi.URLParam(r, "status"))
	if !status.IsValid() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown bucket " + string(status)})
		return
	}
	s.list(w, r, handlers.ListOptions{Kind: kind, Status: status})
}

// ListByOwner handles GET /owners/{agent}/{kind}
func (s *Server) ListByOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := entities.ParseAgent(chi.URLParam(r, "agent"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := entities.ListingStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		badRequest(w, fmt.Sprintf("unknown status %q", status))
		return
	}
	s.list(w, r, handlers.ListOptions{Owner: owner, Kind: kind, Status: status})
}

// ListByTag handles GET /tags/{tag}
func (s *Server) ListByTag(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, handlers.ListOptions{Tag: chi.URLParam(r, "tag")})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, opts handlers.ListOptions) {
	result, err := s.queries.HandleList(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AdminRequest is the request body for granting administrator privilege.
type AdminRequest struct {
	Agent string `json:"agent"`
}

// ListAdmins handles GET /admins
func (s *Server) ListAdmins(w http.ResponseWriter, r *http.Request) {
	result, err := s.admins.HandleList(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AddAdmin handles POST /admins
func (s *Server) AddAdmin(w http.ResponseWriter, r *http.Request) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req AdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	target, err := entities.ParseAgent(req.Agent)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.admins.HandleAdd(r.Context(), agent, target); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterAdmin handles POST /admins/register
// The caller becomes the first administrator of the network.
func (s *Server) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if agent.IsZero() {
		s.writeError(w, r, fmt.Errorf("%w: %s header is required", services.ErrNotAuthorized, CallerHeader))
		return
	}
	if err := s.admins.HandleRegister(r.Context(), agent); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveAdmin handles DELETE /admins/{agent}
func (s *Server) RemoveAdmin(w http.ResponseWriter, r *http.Request) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	target, err := entities.ParseAgent(chi.URLParam(r, "agent"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.admins.HandleRemove(r.Context(), agent, target); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
