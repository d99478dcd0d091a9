package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOffer() *Listing {
	return &Listing{
		Kind:         KindOffer,
		Title:        "Logo design",
		Description:  "I can design a logo for your project",
		Status:       StatusActive,
		Capabilities: []string{"design"},
	}
}

func TestListing_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *Listing)
		wantErr string
	}{
		{name: "valid offer", mutate: func(*Listing) {}},
		{
			name: "valid request",
			mutate: func(l *Listing) {
				l.Kind = KindRequest
				l.Capabilities = nil
				l.Requirements = []string{"logo"}
				l.DateRange = &DateRange{Start: "2026-01-01"}
			},
		},
		{name: "missing title", mutate: func(l *Listing) { l.Title = "" }, wantErr: "Title"},
		{name: "missing description", mutate: func(l *Listing) { l.Description = "" }, wantErr: "Description"},
		{name: "unknown kind", mutate: func(l *Listing) { l.Kind = "barter" }, wantErr: "Kind"},
		{name: "unknown status", mutate: func(l *Listing) { l.Status = "paused" }, wantErr: "Status"},
		{name: "offer without capabilities", mutate: func(l *Listing) { l.Capabilities = nil }, wantErr: "capabilities"},
		{
			name: "request without requirements",
			mutate: func(l *Listing) {
				l.Kind = KindRequest
			},
			wantErr: "requirements",
		},
		{name: "bad link", mutate: func(l *Listing) { l.Links = []string{"not a url"} }, wantErr: "Links"},
		{name: "bad interaction type", mutate: func(l *Listing) { l.InteractionType = "telepathy" }, wantErr: "InteractionType"},
		{name: "bad date", mutate: func(l *Listing) { l.DateRange = &DateRange{Start: "tomorrow"} }, wantErr: "Start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := validOffer()
			tt.mutate(l)
			err := l.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestListing_Clone(t *testing.T) {
	l := validOffer()
	l.DateRange = &DateRange{Start: "2026-01-01"}
	c := l.Clone()

	c.Capabilities[0] = "changed"
	c.DateRange.Start = "2027-01-01"

	assert.Equal(t, "design", l.Capabilities[0])
	assert.Equal(t, "2026-01-01", l.DateRange.Start)
}

func TestEncodeDecodeListing(t *testing.T) {
	l := validOffer()
	e, err := EncodeListing(l)
	require.NoError(t, err)
	assert.Equal(t, KindOffer, e.Kind)
	assert.Equal(t, CurrentSchemaVersion, e.SchemaVersion)

	got, err := DecodeListing(e)
	require.NoError(t, err)
	assert.Equal(t, l, got)

	again, err := EncodeListing(got)
	require.NoError(t, err)
	assert.Equal(t, e.Hash(), again.Hash(), "entry hash must be stable across encode cycles")
}

func TestDecodeListing_ToleratesUnknownFields(t *testing.T) {
	e := &Entry{
		Kind:          KindRequest,
		SchemaVersion: CurrentSchemaVersion + 1,
		Body:          []byte(`{"title":"t","description":"d","status":"active","requirements":["x"],"budget":{"amount":3}}`),
	}

	got, err := DecodeListing(e)
	require.NoError(t, err)
	assert.Equal(t, KindRequest, got.Kind)
	assert.Equal(t, "t", got.Title)
	assert.Equal(t, []string{"x"}, got.Requirements)
}
