package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

func TestMediumFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "suggest"}
	var f mediumFlags
	f.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--code", "EUR", "--name", "Euro"}))

	m := f.medium()
	assert.Equal(t, entities.ExchangeCurrency, m.ExchangeType, "suggestions default to currencies")
	require.NoError(t, m.Validate())

	require.NoError(t, cmd.Flags().Parse([]string{"--type", "barter"}))
	bad := f.medium()
	require.Error(t, bad.Validate())
}

func TestServiceTypeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "create"}
	var f serviceTypeFlags
	f.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--name", "Design", "--description", "Design work", "--technical"}))

	assert.Equal(t, entities.ServiceType{Name: "Design", Description: "Design work", Technical: true}, f.serviceType())
}

func TestCatalogCommands(t *testing.T) {
	names := func(cmdNames ...string) []string { return cmdNames }

	var got []string
	for _, c := range newMediumCmd().Commands() {
		got = append(got, c.Name())
	}
	assert.ElementsMatch(t, names("list", "suggest", "create", "approve", "reject", "delete", "listings"), got)

	got = nil
	for _, c := range newServiceTypeCmd().Commands() {
		got = append(got, c.Name())
	}
	assert.ElementsMatch(t, names("list", "create", "update", "delete", "listings"), got)
}

func TestDisplayMedium(t *testing.T) {
	var buf bytes.Buffer
	displayMedium(&buf, &entities.Medium{
		ID:     entities.NewHash(entities.HashAction, []byte("eur")),
		Status: entities.ModerationApproved,
		Medium: &entities.MediumOfExchange{
			Code:           "EUR",
			Name:           "Euro",
			ExchangeType:   entities.ExchangeCurrency,
			ResourceSpecID: entities.ResourceSpecPrefix + "EUR",
		},
	})
	out := buf.String()
	assert.Contains(t, out, "[currency/approved] EUR Euro")
	assert.Contains(t, out, "Resource spec: "+entities.ResourceSpecPrefix+"EUR")
}

func TestDisplayServiceType(t *testing.T) {
	var buf bytes.Buffer
	displayServiceType(&buf, &entities.Service{
		ID:          entities.NewHash(entities.HashAction, []byte("design")),
		ServiceType: &entities.ServiceType{Name: "Design", Description: "Design work", Technical: true},
	})
	assert.Contains(t, buf.String(), "Design (technical)")
}
