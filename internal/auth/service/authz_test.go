package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireAnyRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		have    []string
		allowed []string
		wantErr bool
	}{
		{"single overlap", []string{"user", "admin"}, []string{"admin"}, false},
		{"any of several", []string{"auditor"}, []string{"admin", "auditor"}, false},
		{"no overlap", []string{"user"}, []string{"admin"}, true},
		{"empty session roles", nil, []string{"admin"}, true},
		{"empty allowed set", []string{"admin"}, nil, true},
		{"both empty", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireAnyRole(tt.have, tt.allowed)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnauthorized)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
