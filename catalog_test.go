package gatekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCatalogFluentBuild tests the fluent definition API
func TestCatalogFluentBuild(t *testing.T) {
	c := testCatalog()

	assert.Equal(t, []string{"admin", "delegate", "discover", "read", "update"}, c.PermissionNames())
	assert.Equal(t, []string{"editor", "manager", "owner", "salary_clerk", "viewer"}, c.RoleNames())

	level, ok := c.PermissionLevel("update")
	assert.True(t, ok)
	assert.Equal(t, 40, level)

	_, ok = c.PermissionLevel("frobnicate")
	assert.False(t, ok)
}

// TestCatalogRoleGrants tests grant inspection including field-scoped rows
func TestCatalogRoleGrants(t *testing.T) {
	c := testCatalog()

	grants := c.RoleGrants("viewer")
	assert.Len(t, grants, 2)
	assert.Equal(t, "discover", grants[0].Permission)
	assert.Empty(t, grants[0].FieldName)

	grants = c.RoleGrants("salary_clerk")
	assert.Len(t, grants, 1)
	assert.Equal(t, "update", grants[0].Permission)
	assert.Equal(t, "salary", grants[0].FieldName)

	assert.Nil(t, c.RoleGrants("unknown"))
}

// TestCatalogValidate tests the grant-references-permission check
func TestCatalogValidate(t *testing.T) {
	assert.NoError(t, testCatalog().Validate())

	c := NewCatalog().Permission("read", 20)
	c.Role("bad", 10).Grants("write")

	err := c.Validate()
	assert.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "write")
}

// TestCatalogChainingAcrossBuilders tests continuing the chain from a role
// builder back to permissions and other roles
func TestCatalogChainingAcrossBuilders(t *testing.T) {
	c := NewCatalog().
		Permission("read", 20).
		Role("viewer", 10).Grants("read").
		Permission("update", 40).
		Role("editor", 40).Grants("update").Describe("can modify entities").
		Done()

	assert.Equal(t, []string{"read", "update"}, c.PermissionNames())
	assert.Equal(t, []string{"editor", "viewer"}, c.RoleNames())
	assert.NoError(t, c.Validate())
}

// TestCatalogRedefinitionReplaces tests that redefining a name overwrites
// the earlier definition
func TestCatalogRedefinitionReplaces(t *testing.T) {
	c := NewCatalog().Permission("read", 20).Permission("read", 25)

	level, ok := c.PermissionLevel("read")
	assert.True(t, ok)
	assert.Equal(t, 25, level)
	assert.Len(t, c.PermissionNames(), 1)
}

// TestCatalogSeedRows tests the materialization used by SeedCatalog
func TestCatalogSeedRows(t *testing.T) {
	c := testCatalog()

	perms := c.permissionTypes()
	assert.Len(t, perms, 5)
	assert.Equal(t, "admin", perms[0].Name)
	assert.True(t, perms[0].Sensitive)
	assert.Equal(t, 100, perms[0].Level)

	roles := c.roleDefinitions()
	assert.Len(t, roles, 5)
	assert.Equal(t, "editor", roles[0].name)
}
