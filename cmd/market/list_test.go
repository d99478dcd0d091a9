package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

func TestListFlags_Options(t *testing.T) {
	org := entities.NewHash(entities.HashAction, []byte("org"))

	tests := []struct {
		name    string
		flags   listFlags
		wantErr string
	}{
		{
			name:  "empty",
			flags: listFlags{},
		},
		{
			name:    "bad kind",
			flags:   listFlags{kind: "gift"},
			wantErr: "invalid kind",
		},
		{
			name:    "bad status",
			flags:   listFlags{status: "pending"},
			wantErr: "invalid status",
		},
		{
			name:    "related needs kind",
			flags:   listFlags{related: org.String(), relKind: "organization"},
			wantErr: "--kind is required",
		},
		{
			name:    "related needs valid rel kind",
			flags:   listFlags{kind: "offer", related: org.String(), relKind: "sponsor"},
			wantErr: "invalid --rel-kind",
		},
		{
			name:  "owner by identity",
			flags: listFlags{owner: "bob", kind: "request", status: "archived"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.flags.options()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.flags.owner != "" {
				assert.Equal(t, entities.AgentHash(tt.flags.owner), opts.Owner)
				assert.Equal(t, entities.KindRequest, opts.Kind)
				assert.Equal(t, entities.StatusArchived, opts.Status)
			}
		})
	}
}
