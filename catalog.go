package gatekit

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog holds the application's permission and role definitions. It is
// built at startup with the fluent API, validated, and then seeded into the
// database with Service.SeedCatalog. Treat it as immutable afterwards.
type Catalog struct {
	mu          sync.RWMutex
	permissions map[string]*PermissionDefinition
	roles       map[string]*CatalogRoleDefinition
}

// PermissionDefinition defines a permission type with its dominance level.
type PermissionDefinition struct {
	name        string
	level       int
	description string
	sensitive   bool
	catalog     *Catalog
}

// CatalogRoleDefinition defines a role and the permissions it grants.
type CatalogRoleDefinition struct {
	name        string
	level       int
	description string
	grants      []GrantDefinition
	catalog     *Catalog
}

// GrantDefinition is one grant row: a permission name, optionally narrowed
// to a single field.
type GrantDefinition struct {
	Permission string
	FieldName  string
}

// NewCatalog creates an empty catalog.
//
// Example:
//
//	catalog := gatekit.NewCatalog().
//	    Permission("discover", 10).
//	    Permission("read", 20).
//	    Permission("update", 40).
//	    Permission("delegate", 60).
//	    Permission("admin", 100).
//	    Role("viewer", 10).Grants("discover", "read").
//	    Role("editor", 40).Grants("update").
//	    Role("owner", 100).Grants("admin")
func NewCatalog() *Catalog {
	return &Catalog{
		permissions: make(map[string]*PermissionDefinition),
		roles:       make(map[string]*CatalogRoleDefinition),
	}
}

// Permission defines a permission type with a dominance level.
func (c *Catalog) Permission(name string, level int) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permissions[name] = &PermissionDefinition{name: name, level: level, catalog: c}
	return c
}

// SensitivePermission defines a permission type flagged as sensitive.
func (c *Catalog) SensitivePermission(name string, level int) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permissions[name] = &PermissionDefinition{name: name, level: level, sensitive: true, catalog: c}
	return c
}

// Role starts defining a role. Returns a builder for fluent grant chaining.
func (c *Catalog) Role(name string, level int) *CatalogRoleDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	role := &CatalogRoleDefinition{name: name, level: level, catalog: c}
	c.roles[name] = role
	return role
}

// Grants adds entity-level permission grants to the role.
func (r *CatalogRoleDefinition) Grants(permissions ...string) *CatalogRoleDefinition {
	for _, p := range permissions {
		r.grants = append(r.grants, GrantDefinition{Permission: p})
	}
	return r
}

// GrantsField adds a field-scoped grant: the permission only satisfies
// field checks for the named field.
func (r *CatalogRoleDefinition) GrantsField(permission, fieldName string) *CatalogRoleDefinition {
	r.grants = append(r.grants, GrantDefinition{Permission: permission, FieldName: fieldName})
	return r
}

// Describe sets the role description.
func (r *CatalogRoleDefinition) Describe(description string) *CatalogRoleDefinition {
	r.description = description
	return r
}

// Role continues defining roles on the catalog (fluent API).
func (r *CatalogRoleDefinition) Role(name string, level int) *CatalogRoleDefinition {
	return r.catalog.Role(name, level)
}

// Permission continues defining permissions on the catalog (fluent API).
func (r *CatalogRoleDefinition) Permission(name string, level int) *Catalog {
	return r.catalog.Permission(name, level)
}

// Done returns the catalog, ending a fluent chain that finished on a role.
func (r *CatalogRoleDefinition) Done() *Catalog {
	return r.catalog
}

// PermissionLevel returns the level of a defined permission and whether it
// is defined.
func (c *Catalog) PermissionLevel(name string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.permissions[name]
	if !ok {
		return 0, false
	}
	return p.level, true
}

// PermissionNames returns all defined permission names, sorted.
func (c *Catalog) PermissionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.permissions))
	for name := range c.permissions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RoleNames returns all defined role names, sorted.
func (c *Catalog) RoleNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.roles))
	for name := range c.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RoleGrants returns the grant definitions for a role, or nil when the role
// is not defined.
func (c *Catalog) RoleGrants(name string) []GrantDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.roles[name]
	if !ok {
		return nil
	}
	return r.grants
}

// Validate checks internal consistency: every role grant must reference a
// defined permission.
func (c *Catalog) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for roleName, role := range c.roles {
		for _, g := range role.grants {
			if _, ok := c.permissions[g.Permission]; !ok {
				return NewError(ErrPermissionNotFound,
					fmt.Sprintf("role %q grants undefined permission %q", roleName, g.Permission)).
					WithRole(roleName).WithPermission(g.Permission)
			}
		}
	}
	return nil
}

// permissionTypes materializes the catalog's permission rows for seeding.
func (c *Catalog) permissionTypes() []*PermissionType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*PermissionType, 0, len(c.permissions))
	for _, p := range c.permissions {
		out = append(out, &PermissionType{
			Name:        p.name,
			Level:       p.level,
			Description: p.description,
			Sensitive:   p.sensitive,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// roleDefinitions materializes the catalog's role rows for seeding, grants
// attached per role name.
func (c *Catalog) roleDefinitions() []*CatalogRoleDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*CatalogRoleDefinition, 0, len(c.roles))
	for _, r := range c.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
