package gatekit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestCheckPermissionGlobalViewer tests the documented scenario: a global
// viewer assignment allows read everywhere, marked inherited
func TestCheckPermissionGlobalViewer(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-viewer", "viewer", 10, "read", "discover").
		assign("u1", "r-viewer", nil).
		build()

	result := snap.CheckPermission("u1", "e", "read", "")

	assert.True(t, result.Allowed)
	assert.False(t, result.Denied)
	assert.True(t, result.Inherited, "global scope is not the target entity")
	assert.Equal(t, "viewer", result.GrantedViaRole)
	assert.Equal(t, "", result.GrantedViaEntityID)
}

// TestCheckPermissionDenyIsAbsolute tests that one matched deny beats any
// number of allows
func TestCheckPermissionDenyIsAbsolute(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-viewer", "viewer", 10, "read", "discover").
		role("r-owner", "owner", 100, "admin").
		assign("u1", "r-viewer", nil).
		assign("u1", "r-owner", nil).
		deny("u1", "r-viewer", strPtr("e")).
		build()

	result := snap.CheckPermission("u1", "e", "read", "")

	assert.False(t, result.Allowed)
	assert.True(t, result.Denied)
}

// TestCheckPermissionDefaultClosed tests the default deny with no
// assignments at all
func TestCheckPermissionDefaultClosed(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-viewer", "viewer", 10, "read").
		build()

	result := snap.CheckPermission("nobody", "e", "read", "")

	assert.False(t, result.Allowed)
	assert.False(t, result.Denied, "default deny is not an explicit deny override")
}

// TestCheckPermissionLevelDominance tests that an update (level 40) grant
// satisfies a read (level 20) request without an exact grant row
func TestCheckPermissionLevelDominance(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-editor", "editor", 40, "update").
		assign("u1", "r-editor", strPtr("e")).
		build()

	assert.True(t, snap.CheckPermission("u1", "e", "read", "").Allowed)
	assert.True(t, snap.CheckPermission("u1", "e", "discover", "").Allowed)
	assert.True(t, snap.CheckPermission("u1", "e", "update", "").Allowed)
	assert.False(t, snap.CheckPermission("u1", "e", "delegate", "").Allowed,
		"dominance never grants upward")
}

// TestCheckPermissionAdminOverride tests the universal admin permission
func TestCheckPermissionAdminOverride(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-owner", "owner", 100, "admin").
		assign("u1", "r-owner", strPtr("e")).
		build()

	for _, permission := range []string{"discover", "read", "update", "delegate", "admin"} {
		assert.True(t, snap.CheckPermission("u1", "e", permission, "").Allowed, permission)
	}
}

// TestCheckPermissionHierarchicalInheritance tests grants on an ancestor
// reaching descendants through parent links
func TestCheckPermissionHierarchicalInheritance(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("org", "c1", nil).
		entity("proj", "c1", strPtr("org")).
		entity("task", "c1", strPtr("proj")).
		role("r-editor", "editor", 40, "update").
		assign("u1", "r-editor", strPtr("org")).
		build()

	result := snap.CheckPermission("u1", "task", "read", "")

	assert.True(t, result.Allowed)
	assert.True(t, result.Inherited)
	assert.Equal(t, "org", result.GrantedViaEntityID)
}

// TestCheckPermissionRelationshipInheritanceDirection tests the direction
// property: edge (A -> B) extends B-scoped grants to A but not the reverse
func TestCheckPermissionRelationshipInheritanceDirection(t *testing.T) {
	build := func() *Snapshot {
		return newSnapshotBuilder().
			class("c1", "node").
			entity("a", "c1", nil).
			entity("b", "c1", nil).
			relType("rt1", "belongs_to", true).
			edge("a", "b", "rt1").
			role("r-viewer", "viewer", 10, "read").
			assign("u-on-b", "r-viewer", strPtr("b")).
			assign("u-on-a", "r-viewer", strPtr("a")).
			build()
	}

	snap := build()
	assert.True(t, snap.CheckPermission("u-on-b", "a", "read", "").Allowed,
		"grant on edge target must extend to the source")
	assert.False(t, snap.CheckPermission("u-on-a", "b", "read", "").Allowed,
		"grant on edge source must not extend to the target")
}

// TestCheckPermissionTemporalBoundary tests the half-open validity window:
// live at valid_until - 1ms, dead at valid_until exactly
func TestCheckPermissionTemporalBoundary(t *testing.T) {
	until := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	build := func(now time.Time) *Snapshot {
		return newSnapshotBuilder().
			at(now).
			class("c1", "node").
			entity("e", "c1", nil).
			role("r-viewer", "viewer", 10, "read").
			assignWindow("u1", "r-viewer", strPtr("e"), nil, &until).
			build()
	}

	assert.True(t, build(until.Add(-time.Millisecond)).CheckPermission("u1", "e", "read", "").Allowed)
	assert.False(t, build(until).CheckPermission("u1", "e", "read", "").Allowed)
}

// TestCheckPermissionValidFromBoundary tests that valid_from is inclusive
func TestCheckPermissionValidFromBoundary(t *testing.T) {
	from := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	build := func(now time.Time) *Snapshot {
		return newSnapshotBuilder().
			at(now).
			class("c1", "node").
			entity("e", "c1", nil).
			role("r-viewer", "viewer", 10, "read").
			assignWindow("u1", "r-viewer", strPtr("e"), &from, nil).
			build()
	}

	assert.False(t, build(from.Add(-time.Millisecond)).CheckPermission("u1", "e", "read", "").Allowed)
	assert.True(t, build(from).CheckPermission("u1", "e", "read", "").Allowed)
}

// TestCheckPermissionRevokedAssignmentIsInert tests revocation
func TestCheckPermissionRevokedAssignmentIsInert(t *testing.T) {
	b := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-viewer", "viewer", 10, "read")
	revoked := b.now.Add(-time.Hour)
	b.input.Assignments = append(b.input.Assignments, &ScopedRoleAssignment{
		ID: "assign-0", PrincipalID: "u1", RoleID: "r-viewer",
		ScopeEntityID: strPtr("e"), RevokedAt: &revoked,
	})
	snap := b.build()

	assert.False(t, snap.CheckPermission("u1", "e", "read", "").Allowed)
}

// TestCheckPermissionProvenanceMostSpecific tests that provenance cites the
// lowest-depth allow while the decision is unaffected
func TestCheckPermissionProvenanceMostSpecific(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("org", "c1", nil).
		entity("proj", "c1", strPtr("org")).
		role("r-viewer", "viewer", 10, "read").
		role("r-editor", "editor", 40, "update").
		assign("u1", "r-viewer", nil).
		assign("u1", "r-editor", strPtr("proj")).
		build()

	result := snap.CheckPermission("u1", "proj", "read", "")

	assert.True(t, result.Allowed)
	assert.Equal(t, "proj", result.GrantedViaEntityID)
	assert.Equal(t, "editor", result.GrantedViaRole)
	assert.False(t, result.Inherited, "scope equals the target entity")
}

// TestCheckPermissionUnknownEntityDenies tests fail-closed on unknown and
// deleted targets
func TestCheckPermissionUnknownEntityDenies(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		deletedEntity("gone", "c1", nil).
		role("r-owner", "owner", 100, "admin").
		assign("u1", "r-owner", nil).
		build()

	assert.False(t, snap.CheckPermission("u1", "gone", "read", "").Allowed)
	assert.False(t, snap.CheckPermission("u1", "missing", "read", "").Allowed)
}

// TestCheckPermissionUnknownPermissionLevelZero tests the conservative
// level-0 fallback: any positive-level grant dominates an unknown name
func TestCheckPermissionUnknownPermissionLevelZero(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-viewer", "viewer", 10, "read").
		assign("u1", "r-viewer", strPtr("e")).
		build()

	assert.True(t, snap.CheckPermission("u1", "e", "frobnicate", "").Allowed,
		"unknown permission maps to level 0 and is dominated by any positive-level grant")
	assert.False(t, snap.CheckPermission("u2", "e", "frobnicate", "").Allowed)
}

// TestCheckPermissionPurity tests that identical inputs on one snapshot
// give identical outputs
func TestCheckPermissionPurity(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("org", "c1", nil).
		entity("task", "c1", strPtr("org")).
		role("r-editor", "editor", 40, "update").
		assign("u1", "r-editor", strPtr("org")).
		deny("u1", "r-editor", strPtr("task")).
		build()

	first := snap.CheckPermission("u1", "task", "read", "")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, snap.CheckPermission("u1", "task", "read", ""))
	}
}

// TestCheckPermissionsBulkIndependence tests that a deny on one entity
// never bleeds into its siblings and input order is preserved
func TestCheckPermissionsBulkIndependence(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("org", "c1", nil).
		entity("p1", "c1", strPtr("org")).
		entity("p2", "c1", strPtr("org")).
		role("r-viewer", "viewer", 10, "read").
		assign("u1", "r-viewer", strPtr("org")).
		deny("u1", "r-viewer", strPtr("p1")).
		build()

	results := snap.CheckPermissionsBulk("u1", []string{"p1", "p2", "org", "missing"}, "read", "")

	assert.Len(t, results, 4)
	assert.Equal(t, "p1", results[0].EntityID)
	assert.False(t, results[0].Allowed)
	assert.True(t, results[0].Denied)
	assert.True(t, results[1].Allowed)
	assert.True(t, results[2].Allowed)
	assert.False(t, results[3].Allowed)
	assert.False(t, results[3].Denied)
}

// TestListAllPermissions tests the catalog iteration ordering and outcomes
func TestListAllPermissions(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-editor", "editor", 40, "update").
		assign("u1", "r-editor", strPtr("e")).
		build()

	statuses := snap.ListAllPermissions("u1", "e", "")

	assert.Len(t, statuses, 5)
	byName := make(map[string]PermissionStatus)
	for _, st := range statuses {
		byName[st.Permission] = st
	}
	assert.True(t, byName["read"].Allowed)
	assert.True(t, byName["update"].Allowed)
	assert.False(t, byName["delegate"].Allowed)
	assert.False(t, byName["admin"].Allowed)

	// Ordered by level descending.
	assert.Equal(t, "admin", statuses[0].Permission)
	assert.Equal(t, "discover", statuses[4].Permission)
}

// TestCheckPermissionInterveningDenyOnPath tests a deny scoped to the
// target while the allow sits on an ancestor
func TestCheckPermissionInterveningDenyOnPath(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("org", "c1", nil).
		entity("task", "c1", strPtr("org")).
		role("r-viewer", "viewer", 10, "read").
		assign("u1", "r-viewer", strPtr("org")).
		deny("u1", "r-viewer", strPtr("task")).
		build()

	assert.True(t, snap.CheckPermission("u1", "org", "read", "").Allowed)

	result := snap.CheckPermission("u1", "task", "read", "")
	assert.False(t, result.Allowed)
	assert.True(t, result.Denied)
}

// TestCheckPermissionDenyOnlyMatchesItsPermission tests that a deny whose
// role does not match the requested permission has no effect
func TestCheckPermissionDenyOnlyMatchesItsPermission(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-viewer", "viewer", 10, "read").
		role("r-discoverer", "discoverer", 10, "discover").
		assign("u1", "r-viewer", strPtr("e")).
		deny("u1", "r-discoverer", strPtr("e")).
		build()

	// The deny matches discover (and nothing above it), read stays allowed.
	assert.True(t, snap.CheckPermission("u1", "e", "read", "").Allowed)
	assert.True(t, snap.CheckPermission("u1", "e", "discover", "").Denied)
}

// TestCheckPermissionDanglingScopeIsGlobal tests that an allow whose scope
// references no entity degrades to a global grant
func TestCheckPermissionDanglingScopeIsGlobal(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("doc", "c1", nil).
		role("r-viewer", "viewer", 10, "read").
		assign("alice", "r-viewer", strPtr("ghost")).
		build()

	result := snap.CheckPermission("alice", "doc", "read", "")

	assert.True(t, result.Allowed)
	assert.True(t, result.Inherited)
	assert.Equal(t, "", result.GrantedViaEntityID, "dangling scope carries no provenance entity")
}

// TestCheckPermissionDanglingDenyDeniesEverywhere tests that a deny with a
// dangling scope reference becomes a global deny instead of vanishing
func TestCheckPermissionDanglingDenyDeniesEverywhere(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("doc", "c1", nil).
		role("r-viewer", "viewer", 10, "read").
		assign("alice", "r-viewer", nil).
		deny("alice", "r-viewer", strPtr("ghost")).
		build()

	result := snap.CheckPermission("alice", "doc", "read", "")

	assert.False(t, result.Allowed)
	assert.True(t, result.Denied)
}

// TestCheckPermissionScopeOutsideClosureStaysInert tests that a scope which
// does exist but sits outside the target's closure excludes the assignment,
// unlike a dangling scope
func TestCheckPermissionScopeOutsideClosureStaysInert(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("doc", "c1", nil).
		entity("other", "c1", nil).
		role("r-viewer", "viewer", 10, "read").
		assign("alice", "r-viewer", strPtr("other")).
		deny("alice", "r-viewer", strPtr("other")).
		build()

	result := snap.CheckPermission("alice", "doc", "read", "")

	assert.False(t, result.Allowed)
	assert.False(t, result.Denied, "a deny on an unrelated entity does not reach doc")
}
