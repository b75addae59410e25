package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermissions(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		set, err := ParsePermissions([]string{"READ", "write", " OWNER "})
		require.NoError(t, err)
		assert.True(t, set.Contains(PermissionRead|PermissionWrite|PermissionOwner))
		assert.False(t, set.Contains(PermissionDiscover))
	})

	t.Run("EmptyListYieldsEmptySet", func(t *testing.T) {
		set, err := ParsePermissions(nil)
		require.NoError(t, err)
		assert.True(t, set.IsEmpty())
	})

	t.Run("UnknownName", func(t *testing.T) {
		_, err := ParsePermissions([]string{"READ", "EXECUTE"})
		assert.ErrorIs(t, err, ErrUnknownPermission)
	})
}

func TestPermissionSetAlgebra(t *testing.T) {
	t.Run("ContainsRequiresAll", func(t *testing.T) {
		set := PermissionRead | PermissionWrite
		assert.True(t, set.Contains(PermissionRead))
		assert.True(t, set.Contains(PermissionRead|PermissionWrite))
		assert.False(t, set.Contains(PermissionRead|PermissionOwner))
	})

	t.Run("UnionAndDifference", func(t *testing.T) {
		set := PermissionRead.Union(PermissionWrite)
		assert.Equal(t, PermissionRead|PermissionWrite, set)

		remaining := set.Difference(PermissionWrite)
		assert.Equal(t, PermissionRead, remaining)

		assert.True(t, set.Difference(set).IsEmpty())
	})

	t.Run("DifferenceIgnoresAbsentBits", func(t *testing.T) {
		assert.Equal(t, PermissionRead, PermissionRead.Difference(PermissionOwner))
	})

	t.Run("ValidateRejectsUnknownBits", func(t *testing.T) {
		bad := PermissionSet(1 << 7)
		assert.ErrorIs(t, bad.Validate(), ErrUnknownPermission)
		assert.NoError(t, (PermissionRead | PermissionOwner).Validate())
	})

	t.Run("EachReturnsMembersInOrder", func(t *testing.T) {
		set := PermissionOwner | PermissionDiscover
		assert.Equal(t, []PermissionSet{PermissionDiscover, PermissionOwner}, set.Each())
	})
}

func TestPermissionSetJSON(t *testing.T) {
	t.Run("MarshalAsNameList", func(t *testing.T) {
		data, err := json.Marshal(PermissionRead | PermissionOwner)
		require.NoError(t, err)
		assert.JSONEq(t, `["READ","OWNER"]`, string(data))
	})

	t.Run("UnmarshalNameList", func(t *testing.T) {
		var set PermissionSet
		require.NoError(t, json.Unmarshal([]byte(`["DISCOVER","LINK"]`), &set))
		assert.Equal(t, PermissionDiscover|PermissionLink, set)
	})

	t.Run("UnmarshalUnknownName", func(t *testing.T) {
		var set PermissionSet
		err := json.Unmarshal([]byte(`["ADMIN"]`), &set)
		assert.ErrorIs(t, err, ErrUnknownPermission)
	})
}
