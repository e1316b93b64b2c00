package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAdminRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleSystemAdmin, true},
		{RoleEditor, false},
		{"", false},
		{"Admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			if got := IsAdminRole(tt.role); got != tt.want {
				t.Errorf("IsAdminRole(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole("editor"))
	assert.True(t, IsValidRole("system_admin"))
	assert.False(t, IsValidRole("owner"))
}

func TestParsePermissions(t *testing.T) {
	p, err := ParsePermissions(`{"articles":["view","edit"],"news":["view"]}`)
	require.NoError(t, err)

	assert.True(t, p.Has("articles", "edit"))
	assert.True(t, p.Has("news", "view"))
	assert.False(t, p.Has("news", "delete"))
	assert.False(t, p.Has("reports", "view"))
}

func TestParsePermissions_Empty(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "{}"} {
		p, err := ParsePermissions(raw)
		require.NoError(t, err, raw)
		assert.NotNil(t, p, raw)
		assert.Empty(t, p, raw)
	}
}

func TestParsePermissions_Invalid(t *testing.T) {
	_, err := ParsePermissions(`["articles"]`)
	assert.Error(t, err)

	_, err = ParsePermissions(`{"articles":"edit"}`)
	assert.Error(t, err)
}

func TestPermissionsString(t *testing.T) {
	assert.Equal(t, "{}", Permissions(nil).String())
	assert.Equal(t, `{"articles":["view"]}`, Permissions{"articles": {"view"}}.String())
}
