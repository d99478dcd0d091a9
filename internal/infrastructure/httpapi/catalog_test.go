package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/application/handlers"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

func TestMediumModeration(t *testing.T) {
	a := setupTestServer(t)
	eur := entities.MediumOfExchange{Code: "EUR", Name: "Euro", ExchangeType: entities.ExchangeCurrency}

	resp := a.do(t, http.MethodPost, "/mediums", "bob", eur)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	m := decode[entities.Medium](t, resp)
	assert.Equal(t, entities.ModerationPending, m.Status)
	path := "/mediums/" + m.ID.String()

	base := eur
	base.ExchangeType = entities.ExchangeBase
	resp = a.do(t, http.MethodPost, "/mediums", "bob", base)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/mediums?status=pending", "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = a.do(t, http.MethodGet, "/mediums?status=pending", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[handlers.MediumListResult](t, resp).Total)
	resp = a.do(t, http.MethodGet, "/mediums?status=paused", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	paid := offerBody("logo")
	paid.Relationships = handlers.RelationshipInput{"medium_of_exchange": {m.ID.String()}}
	resp = a.do(t, http.MethodPost, "/listings/offer", "bob", paid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "pending mediums cannot be linked")

	resp = a.do(t, http.MethodPost, path+"/approve", "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = a.do(t, http.MethodPost, path+"/approve", "alice", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = a.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, entities.ModerationApproved, decode[entities.Medium](t, resp).Status)

	resp = a.do(t, http.MethodPost, "/listings/offer", "bob", paid)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	offer := decode[entities.Entity](t, resp)

	resp = a.do(t, http.MethodGet, path+"/listings?kind=offers", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[handlers.ListResult](t, resp)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, offer.ID, result.Listings[0].ID)

	resp = a.do(t, http.MethodPost, path+"/reject", "alice", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = a.do(t, http.MethodGet, "/mediums?status=approved", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decode[handlers.MediumListResult](t, resp).Total)

	resp = a.do(t, http.MethodDelete, path, "alice", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = a.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestServiceTypeRoutes(t *testing.T) {
	a := setupTestServer(t)
	design := entities.ServiceType{Name: "Design", Description: "Design work"}

	resp := a.do(t, http.MethodPost, "/service-types", "bob", design)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/service-types", "alice", entities.ServiceType{Name: "Design"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/service-types", "alice", design)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	st := decode[entities.Service](t, resp)
	path := "/service-types/" + st.ID.String()

	design.Technical = true
	resp = a.do(t, http.MethodPut, path, "alice", design)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[entities.Service](t, resp).ServiceType.Technical)

	body := offerBody("logo")
	body.Relationships = handlers.RelationshipInput{"service_type": {st.ID.String()}}
	resp = a.do(t, http.MethodPost, "/listings/offer", "bob", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodGet, path+"/listings", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[handlers.ListResult](t, resp).Total)

	resp = a.do(t, http.MethodGet, path+"/listings?kind=requests", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decode[handlers.ListResult](t, resp).Total)

	resp = a.do(t, http.MethodGet, "/service-types", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[handlers.ServiceTypeListResult](t, resp).Total)

	resp = a.do(t, http.MethodDelete, path, "alice", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = a.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}
