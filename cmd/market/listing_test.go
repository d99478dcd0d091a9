package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
)

// parseListingFlags registers the listing flags on a throwaway command and parses args.
func parseListingFlags(t *testing.T, args ...string) (*cobra.Command, *listingFlags) {
	t.Helper()
	var flags listingFlags
	cmd := &cobra.Command{Use: "test"}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.status, "status", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd, &flags
}

func TestListingFlags_Input(t *testing.T) {
	cmd, flags := parseListingFlags(t,
		"--title", "Logo design",
		"--description", "Vector logos",
		"--capability", "design,illustration",
		"--tag", "Design",
		"--tag", "print",
		"--interaction", "virtual",
	)

	in, err := flags.input(cmd)
	require.NoError(t, err)
	assert.Equal(t, "Logo design", in.Listing.Title)
	assert.Equal(t, []string{"design", "illustration"}, in.Listing.Capabilities)
	assert.Equal(t, entities.InteractionVirtual, in.Listing.InteractionType)
	assert.Equal(t, []string{"Design", "print"}, in.Relationships["tags"])
	_, hasOrg := in.Relationships["organization"]
	assert.False(t, hasOrg, "unset relationship flags must stay absent")
}

func TestListingFlags_IdempotencyKey(t *testing.T) {
	_, flags := parseListingFlags(t, "--idempotency-key", "retry-7")
	assert.Equal(t, "retry-7", services.IdempotencyKey(flags.context(context.Background())))

	_, flags = parseListingFlags(t)
	assert.Empty(t, services.IdempotencyKey(flags.context(context.Background())))
}

func TestListingFlags_InputClearsWithEmptyValue(t *testing.T) {
	cmd, flags := parseListingFlags(t, "--tag", "")

	in, err := flags.input(cmd)
	require.NoError(t, err)
	tags, ok := in.Relationships["tags"]
	require.True(t, ok)
	assert.Empty(t, tags)
}

func TestListingFlags_InputFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listing.json")
	content := `{"listing": {"title": "From file", "description": "x", "requirements": ["help"]},
"relationships": {"tags": ["garden"]}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cmd, flags := parseListingFlags(t, "--file", path, "--title", "Overridden")

	in, err := flags.input(cmd)
	require.NoError(t, err)
	assert.Equal(t, "Overridden", in.Listing.Title)
	assert.Equal(t, []string{"help"}, in.Listing.Requirements)
	assert.Equal(t, []string{"garden"}, in.Relationships["tags"])
}

func TestMergeListing(t *testing.T) {
	base := entities.Listing{
		Kind:         entities.KindOffer,
		Title:        "Logo design",
		Description:  "Vector logos",
		Status:       entities.StatusActive,
		Capabilities: []string{"design"},
		TimeZone:     "UTC",
	}

	cmd, flags := parseListingFlags(t, "--title", "Brand design", "--status", "archived")
	changes, err := flags.input(cmd)
	require.NoError(t, err)

	merged := mergeListing(base, changes.Listing, cmd)
	assert.Equal(t, "Brand design", merged.Title)
	assert.Equal(t, entities.StatusArchived, merged.Status)
	assert.Equal(t, "Vector logos", merged.Description)
	assert.Equal(t, []string{"design"}, merged.Capabilities)
	assert.Equal(t, "UTC", merged.TimeZone)
}
