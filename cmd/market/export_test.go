package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/parsers"
)

func testEntities() []*entities.Entity {
	return []*entities.Entity{
		{
			ID:     entities.NewHash(entities.HashAction, []byte("logo")),
			Kind:   entities.KindOffer,
			Author: entities.AgentHash("bob"),
			Listing: &entities.Listing{
				Kind:         entities.KindOffer,
				Title:        "Logo | brand design",
				Description:  "Vector logos",
				Status:       entities.StatusActive,
				Capabilities: []string{"design", "illustration"},
				TimeZone:     "Europe/Berlin",
			},
			Relationships: entities.Relationships{
				entities.RelationTags: entities.TagTargets("design", "print"),
			},
			UpdatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	err := formatJSON(&buf, testEntities())
	require.NoError(t, err)

	// Verify it's valid JSON
	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))

	require.Len(t, parsed, 1)
	assert.Equal(t, "offer", parsed[0]["kind"])
	assert.Equal(t, "active", parsed[0]["status"])
	assert.Equal(t, "Logo | brand design", parsed[0]["title"])
	assert.Equal(t, []any{"design", "print"}, parsed[0]["tags"])
	assert.Equal(t, "Europe/Berlin", parsed[0]["time_zone"])
}

func TestFormatJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestFormatJSON_Reimports(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatJSON(&buf, testEntities()))

	rows, err := (&parsers.JSONParser{}).Parse(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "offer", rows[0].Kind)
	assert.Equal(t, []string{"design", "print"}, rows[0].Tags)
	assert.Equal(t, []string{"design", "illustration"}, rows[0].Capabilities)
}

func TestFormatCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatCSV(&buf, testEntities()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,kind,status,title,description,tags,capabilities,requirements,interaction_type,time_zone", lines[0])
	assert.Contains(t, lines[1], "design;print")

	rows, err := (&parsers.CSVParser{}).Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Logo | brand design", rows[0].Title)
	assert.Equal(t, []string{"design", "illustration"}, rows[0].Capabilities)
}

func TestFormatMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatMarkdown(&buf, testEntities()))

	out := buf.String()
	assert.Contains(t, out, "Total: 1 listings")
	assert.Contains(t, out, "| offer | active | Logo \\| brand design | design, print |")
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"a|b", "a\\|b"},
		{"line\nbreak", "line break"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, escapeMarkdown(tt.input))
	}
}
