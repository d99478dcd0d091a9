package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediumOfExchange_Validate(t *testing.T) {
	valid := func() *MediumOfExchange {
		return &MediumOfExchange{Code: "EUR", Name: "Euro", ExchangeType: ExchangeCurrency}
	}
	tests := []struct {
		name    string
		mutate  func(m *MediumOfExchange)
		wantErr string
	}{
		{name: "valid", mutate: func(*MediumOfExchange) {}},
		{name: "base type", mutate: func(m *MediumOfExchange) { m.ExchangeType = ExchangeBase }},
		{name: "missing code", mutate: func(m *MediumOfExchange) { m.Code = "" }, wantErr: "Code"},
		{name: "missing name", mutate: func(m *MediumOfExchange) { m.Name = "" }, wantErr: "Name"},
		{name: "unknown type", mutate: func(m *MediumOfExchange) { m.ExchangeType = "barter" }, wantErr: "ExchangeType"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServiceType_Validate(t *testing.T) {
	require.NoError(t, (&ServiceType{Name: "Design", Description: "Design work"}).Validate())

	err := (&ServiceType{Name: "Design"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Description")

	var missing *ServiceType
	require.Error(t, missing.Validate())
}

func TestDecodeCatalog(t *testing.T) {
	entry, err := EncodeCatalog(KindMediumOfExchange, &MediumOfExchange{Code: "EUR", Name: "Euro", ExchangeType: ExchangeCurrency})
	require.NoError(t, err)
	assert.Equal(t, KindMediumOfExchange, entry.Kind)

	m, err := DecodeMedium(entry)
	require.NoError(t, err)
	assert.Equal(t, "EUR", m.Code)

	_, err = DecodeServiceType(entry)
	require.Error(t, err, "kinds are not interchangeable")
}

func TestModerationBuckets(t *testing.T) {
	assert.Equal(t, []Path{
		"mediums_of_exchange.status.pending",
		"mediums_of_exchange.status.approved",
		"mediums_of_exchange.status.rejected",
	}, ModerationBuckets())
	assert.False(t, ModerationStatus("archived").IsValid())
	assert.False(t, KindMediumOfExchange.IsValid(), "catalog kinds are not listing kinds")
}
