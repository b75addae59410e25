package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
		wantErr  bool
	}{
		{"SUBMITTED", StatusSubmitted, false},
		{"approved", StatusApproved, false},
		{" declined ", StatusDeclined, false},
		{"PENDING", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			status, err := ParseStatus(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestPermissionsRequest_Validate(t *testing.T) {
	validKey := authzDomain.AclKey{uuid.Must(uuid.NewV7())}

	t.Run("Valid request", func(t *testing.T) {
		request := &PermissionsRequest{
			AclKey:      validKey,
			Principal:   authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"},
			Permissions: authzDomain.PermissionRead,
		}
		assert.NoError(t, request.Validate())
	})

	t.Run("Only users can request", func(t *testing.T) {
		request := &PermissionsRequest{
			AclKey:      validKey,
			Principal:   authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"},
			Permissions: authzDomain.PermissionRead,
		}
		assert.ErrorIs(t, request.Validate(), ErrNotRequester)
	})

	t.Run("Empty permission set is rejected", func(t *testing.T) {
		request := &PermissionsRequest{
			AclKey:    validKey,
			Principal: authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"},
		}
		assert.ErrorIs(t, request.Validate(), authzDomain.ErrEmptyPermissions)
	})
}

func TestPermissionsRequest_Resolve(t *testing.T) {
	owner := authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "owner"}
	now := time.Now().UTC()

	t.Run("Open request resolves", func(t *testing.T) {
		request := &PermissionsRequest{Status: StatusSubmitted}

		err := request.Resolve(StatusApproved, owner, now)
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, request.Status)
		assert.Equal(t, &owner, request.ResolvedBy)
		assert.Equal(t, &now, request.ResolvedAt)
	})

	t.Run("Resolved request is immutable", func(t *testing.T) {
		request := &PermissionsRequest{Status: StatusDeclined}

		err := request.Resolve(StatusApproved, owner, now)
		assert.ErrorIs(t, err, ErrRequestResolved)
	})

	t.Run("Cannot resolve to an open status", func(t *testing.T) {
		request := &PermissionsRequest{Status: StatusSubmitted}

		err := request.Resolve(StatusSubmitted, owner, now)
		assert.ErrorIs(t, err, ErrUnknownStatus)
	})
}
