package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsForUnknownRoleIsEmpty(t *testing.T) {
	d := testDefaults()
	require.Empty(t, d.DefaultsFor(Role("intern")))
	require.False(t, d.Allows(Role("intern"), Capability{Resource: "appointments", Action: "view"}))
}

func TestDefaultsForReturnsSortedCopy(t *testing.T) {
	d := testDefaults()
	caps := d.DefaultsFor(RoleManager)
	require.Equal(t, []Capability{
		{Resource: "appointments", Action: "view"},
		{Resource: "billing", Action: "refund"},
	}, caps)

	caps[0] = Capability{Resource: "mutated", Action: "mutated"}
	require.True(t, d.Allows(RoleManager, Capability{Resource: "appointments", Action: "view"}))
}

func TestBuiltinDefaultsBootstrap(t *testing.T) {
	d := BuiltinDefaults()
	edit := Capability{Resource: "staff_permissions", Action: "edit"}
	require.True(t, d.Allows(RoleAdmin, edit))
	require.True(t, d.Allows(RoleOwner, edit))
	require.False(t, d.Allows(RoleManager, edit))
	require.False(t, d.Allows(RoleViewer, edit))
}

func TestLoadRoleDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	content := `roles:
  admin:
    - staff_permissions.edit
    - billing.refund
  reception:
    - appointments.view
  viewer: []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	d, err := LoadRoleDefaults(path)
	require.NoError(t, err)
	require.Equal(t, []Role{RoleAdmin, Role("reception"), RoleViewer}, d.Roles())
	require.True(t, d.Allows(RoleAdmin, Capability{Resource: "billing", Action: "refund"}))
	require.True(t, d.Allows(Role("reception"), Capability{Resource: "appointments", Action: "view"}))
	require.Empty(t, d.DefaultsFor(RoleViewer))
}

func TestLoadRoleDefaultsRejectsMalformedCapability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	content := `roles:
  admin:
    - refund
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadRoleDefaults(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed capability")
}

func TestLoadRoleDefaultsMissingFile(t *testing.T) {
	_, err := LoadRoleDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
