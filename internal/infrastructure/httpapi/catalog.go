package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

// mountCatalog adds the medium of exchange and service type routes.
func (s *Server) mountCatalog(r chi.Router) {
	r.Route("/mediums", func(r chi.Router) {
		r.Get("/", s.ListMediums)
		r.Post("/", s.SuggestMedium)
		r.Post("/approved", s.CreateMedium)
		r.Get("/{id}", s.GetMedium)
		r.Put("/{id}", s.UpdateMedium)
		r.Delete("/{id}", s.DeleteMedium)
		r.Post("/{id}/approve", s.ApproveMedium)
		r.Post("/{id}/reject", s.RejectMedium)
		r.Get("/{id}/listings", s.ListingsForMedium)
	})

	r.Route("/service-types", func(r chi.Router) {
		r.Get("/", s.ListServiceTypes)
		r.Post("/", s.CreateServiceType)
		r.Get("/{id}", s.GetServiceType)
		r.Put("/{id}", s.UpdateServiceType)
		r.Delete("/{id}", s.DeleteServiceType)
		r.Get("/{id}/listings", s.ListingsForServiceType)
	})
}

// optionalKind reads the kind query parameter, which may be empty.
func optionalKind(r *http.Request) (entities.EntityKind, error) {
	v := r.URL.Query().Get("kind")
	if v == "" {
		return "", nil
	}
	kind, ok := entities.ParseEntityKind(v)
	if !ok {
		return "", fmt.Errorf("unknown kind %q", v)
	}
	return kind, nil
}

// ListMediums handles GET /mediums
// Supports query param: status (pending, approved, rejected).
func (s *Server) ListMediums(w http.ResponseWriter, r *http.Request) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := entities.ModerationStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		badRequest(w, fmt.Sprintf("unknown status %q", status))
		return
	}
	result, err := s.catalog.HandleListMediums(r.Context(), agent, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SuggestMedium handles POST /mediums
func (s *Server) SuggestMedium(w http.ResponseWriter, r *http.Request) {
	s.writeMedium(w, r, false)
}

// CreateMedium handles POST /mediums/approved
func (s *Server) CreateMedium(w http.ResponseWriter, r *http.Request) {
	s.writeMedium(w, r, true)
}

func (s *Server) writeMedium(w http.ResponseWriter, r *http.Request, approved bool) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in entities.MediumOfExchange
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, err.Error())
		return
	}

	var m *entities.Medium
	if approved {
		m, err = s.catalog.HandleCreateMedium(r.Context(), agent, in)
	} else {
		m, err = s.catalog.HandleSuggestMedium(r.Context(), agent, in)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GetMedium handles GET /mediums/{id}
func (s *Server) GetMedium(w http.ResponseWriter, r *http.Request) {
	id, err := hashParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.catalog.HandleGetMedium(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateMedium handles PUT /mediums/{id}
func (s *Server) UpdateMedium(w http.ResponseWriter, r *http.Request) {
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
	var in entities.MediumOfExchange
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, err.Error())
		return
	}
	m, err := s.catalog.HandleUpdateMedium(r.Context(), agent, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMedium handles DELETE /mediums/{id}
func (s *Server) DeleteMedium(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(agent, id entities.Hash) error {
		return s.catalog.HandleDeleteMedium(r.Context(), agent, id)
	})
}

// ApproveMedium handles POST /mediums/{id}/approve
func (s *Server) ApproveMedium(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(agent, id entities.Hash) error {
		return s.catalog.HandleApproveMedium(r.Context(), agent, id)
	})
}

// RejectMedium handles POST /mediums/{id}/reject
func (s *Server) RejectMedium(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(agent, id entities.Hash) error {
		return s.catalog.HandleRejectMedium(r.Context(), agent, id)
	})
}

// ListingsForMedium handles GET /mediums/{id}/listings
func (s *Server) ListingsForMedium(w http.ResponseWriter, r *http.Request) {
	id, err := hashParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kind, err := optionalKind(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	result, err := s.catalog.HandleListingsForMedium(r.Context(), id, kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListServiceTypes handles GET /service-types
func (s *Server) ListServiceTypes(w http.ResponseWriter, r *http.Request) {
	result, err := s.catalog.HandleListServiceTypes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateServiceType handles POST /service-types
func (s *Server) CreateServiceType(w http.ResponseWriter, r *http.Request) {
	agent, err := caller(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in entities.ServiceType
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, err.Error())
		return
	}
	st, err := s.catalog.HandleCreateServiceType(r.Context(), agent, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// GetServiceType handles GET /service-types/{id}
func (s *Server) GetServiceType(w http.ResponseWriter, r *http.Request) {
	id, err := hashParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.catalog.HandleGetServiceType(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateServiceType handles PUT /service-types/{id}
func (s *Server) UpdateServiceType(w http.ResponseWriter, r *http.Request) {
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
	var in entities.ServiceType
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, err.Error())
		return
	}
	st, err := s.catalog.HandleUpdateServiceType(r.Context(), agent, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteServiceType handles DELETE /service-types/{id}
func (s *Server) DeleteServiceType(w http.ResponseWriter, r *http.Request) {
	s.statusChange(w, r, func(agent, id entities.Hash) error {
		return s.catalog.HandleDeleteServiceType(r.Context(), agent, id)
	})
}

// ListingsForServiceType handles GET /service-types/{id}/listings
func (s *Server) ListingsForServiceType(w http.ResponseWriter, r *http.Request) {
	id, err := hashParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kind, err := optionalKind(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	result, err := s.catalog.HandleListingsForServiceType(r.Context(), id, kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
