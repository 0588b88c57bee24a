package gatekit

import (
	"sort"
	"time"
)

// Snapshot is a read-only view of the authorization state captured at a
// fixed evaluation time. All decision functions are side-effect free methods
// on *Snapshot, so the kernel can be exercised in memory without a database.
// The service layer builds one Snapshot per decision inside a read-only
// transaction so a check never observes a torn write.
type Snapshot struct {
	Now time.Time

	entities map[string]*Entity
	classes  map[string]*EntityClass

	// Graph indexes. children and inboundInherit drive the descendant walk,
	// parent links and outboundInherit drive the ancestor walk. Only edges of
	// inheritance-carrying relationship types are indexed here.
	children        map[string][]string // parent entity id -> child entity ids
	outboundInherit map[string][]string // source entity id -> target entity ids
	inboundInherit  map[string][]string // target entity id -> source entity ids

	roles       map[string]*Role
	rolesByName map[string]*Role
	grants      map[string][]*RoleGrant // role id -> grants
	permLevels  map[string]int          // permission name -> level
	permissions []*PermissionType       // sorted by level desc, for ListAllPermissions

	assignments map[string][]*ScopedRoleAssignment // principal id -> assignments

	policies []*Policy // sorted: priority desc, DENY before ALLOW
}

// NewSnapshot builds a Snapshot from raw collections, indexing the graph and
// ordering policies for first-match evaluation. Relationship edges whose type
// does not carry inheritance are dropped from the indexes; they never affect
// decisions. Edges touching unknown entities are indexed anyway and filtered
// at traversal time, mirroring how the store can momentarily hold dangling
// references.
func NewSnapshot(now time.Time, in SnapshotInput) *Snapshot {
	s := &Snapshot{
		Now:             now,
		entities:        make(map[string]*Entity, len(in.Entities)),
		classes:         make(map[string]*EntityClass, len(in.Classes)),
		children:        make(map[string][]string),
		outboundInherit: make(map[string][]string),
		inboundInherit:  make(map[string][]string),
		roles:           make(map[string]*Role, len(in.Roles)),
		rolesByName:     make(map[string]*Role, len(in.Roles)),
		grants:          make(map[string][]*RoleGrant),
		permLevels:      make(map[string]int, len(in.Permissions)),
		assignments:     make(map[string][]*ScopedRoleAssignment),
	}

	for _, e := range in.Entities {
		s.entities[e.ID] = e
		if e.ParentEntityID != nil {
			s.children[*e.ParentEntityID] = append(s.children[*e.ParentEntityID], e.ID)
		}
	}
	for _, c := range in.Classes {
		s.classes[c.ID] = c
	}

	inheriting := make(map[string]bool, len(in.RelationshipTypes))
	for _, rt := range in.RelationshipTypes {
		if rt.InheritsPermissions {
			inheriting[rt.ID] = true
		}
	}
	for _, r := range in.Relationships {
		if !inheriting[r.TypeID] {
			continue
		}
		s.outboundInherit[r.SourceEntityID] = append(s.outboundInherit[r.SourceEntityID], r.TargetEntityID)
		s.inboundInherit[r.TargetEntityID] = append(s.inboundInherit[r.TargetEntityID], r.SourceEntityID)
	}

	for _, ro := range in.Roles {
		s.roles[ro.ID] = ro
		s.rolesByName[ro.Name] = ro
	}
	for _, g := range in.Grants {
		s.grants[g.RoleID] = append(s.grants[g.RoleID], g)
	}
	for _, p := range in.Permissions {
		s.permLevels[p.Name] = p.Level
	}
	s.permissions = append(s.permissions, in.Permissions...)
	sort.SliceStable(s.permissions, func(i, j int) bool {
		if s.permissions[i].Level != s.permissions[j].Level {
			return s.permissions[i].Level > s.permissions[j].Level
		}
		return s.permissions[i].Name < s.permissions[j].Name
	})

	for _, a := range in.Assignments {
		s.assignments[a.PrincipalID] = append(s.assignments[a.PrincipalID], a)
	}

	s.policies = append(s.policies, in.Policies...)
	sort.SliceStable(s.policies, func(i, j int) bool {
		if s.policies[i].Priority != s.policies[j].Priority {
			return s.policies[i].Priority > s.policies[j].Priority
		}
		return s.policies[i].Effect == EffectDeny && s.policies[j].Effect == EffectAllow
	})

	return s
}

// SnapshotInput carries the raw collections a Snapshot is built from.
type SnapshotInput struct {
	Entities          []*Entity
	Classes           []*EntityClass
	RelationshipTypes []*RelationshipType
	Relationships     []*Relationship
	Roles             []*Role
	Grants            []*RoleGrant
	Permissions       []*PermissionType
	Assignments       []*ScopedRoleAssignment
	Policies          []*Policy
}

// Entity returns the entity with the given ID, or nil when it does not
// exist or is soft-deleted.
func (s *Snapshot) Entity(id string) *Entity {
	e := s.entities[id]
	if e == nil || e.Deleted() {
		return nil
	}
	return e
}

// Role returns the role with the given ID, or nil.
func (s *Snapshot) Role(id string) *Role {
	return s.roles[id]
}

// RoleByName returns the role with the given name, or nil.
func (s *Snapshot) RoleByName(name string) *Role {
	return s.rolesByName[name]
}

// PermissionLevel returns the level of a named permission. Unknown names
// map to level zero so checks stay total; a grant on an unknown name then
// only matches the exact same name.
func (s *Snapshot) PermissionLevel(name string) int {
	return s.permLevels[name]
}

// sameTenant reports whether an entity is visible under the requested
// tenant. An empty tenant filter sees everything; a tenant-less entity is
// shared and visible to every tenant.
func (s *Snapshot) sameTenant(e *Entity, tenantID string) bool {
	if tenantID == "" || e.TenantID == nil {
		return true
	}
	return *e.TenantID == tenantID
}
