package gatekit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestNewSnapshotIndexing tests the graph and lookup indexes
func TestNewSnapshotIndexing(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("org", "c1", nil).
		entity("p1", "c1", strPtr("org")).
		entity("p2", "c1", strPtr("org")).
		relType("rt-inherit", "belongs_to", true).
		relType("rt-plain", "references", false).
		edge("p1", "p2", "rt-inherit").
		edge("p2", "p1", "rt-plain").
		role("r-viewer", "viewer", 10, "read").
		build()

	assert.ElementsMatch(t, []string{"p1", "p2"}, snap.children["org"])
	assert.Equal(t, []string{"p2"}, snap.outboundInherit["p1"])
	assert.Equal(t, []string{"p1"}, snap.inboundInherit["p2"])
	assert.Empty(t, snap.outboundInherit["p2"], "non-inheriting edges are not indexed")

	assert.NotNil(t, snap.Role("r-viewer"))
	assert.NotNil(t, snap.RoleByName("viewer"))
	assert.Nil(t, snap.Role("missing"))
	assert.Nil(t, snap.RoleByName("missing"))
}

// TestSnapshotEntityLookup tests nil for unknown and soft-deleted entities
func TestSnapshotEntityLookup(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("live", "c1", nil).
		deletedEntity("gone", "c1", nil).
		build()

	assert.NotNil(t, snap.Entity("live"))
	assert.Nil(t, snap.Entity("gone"))
	assert.Nil(t, snap.Entity("missing"))
}

// TestSnapshotPermissionLevels tests level lookup and the zero fallback
func TestSnapshotPermissionLevels(t *testing.T) {
	snap := newSnapshotBuilder().build()

	assert.Equal(t, 20, snap.PermissionLevel("read"))
	assert.Equal(t, 100, snap.PermissionLevel("admin"))
	assert.Equal(t, 0, snap.PermissionLevel("frobnicate"))
}

// TestSnapshotPermissionsOrdering tests the level-descending catalog order
func TestSnapshotPermissionsOrdering(t *testing.T) {
	snap := newSnapshotBuilder().build()

	names := make([]string, len(snap.permissions))
	for i, p := range snap.permissions {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"admin", "delegate", "update", "read", "discover"}, names)
}

// TestSnapshotPolicyOrdering tests priority-descending with DENY before
// ALLOW on ties
func TestSnapshotPolicyOrdering(t *testing.T) {
	snap := newSnapshotBuilder().
		policy(&Policy{ID: "1", Name: "low-allow", Effect: EffectAllow, Priority: 1, Active: true}).
		policy(&Policy{ID: "2", Name: "tie-allow", Effect: EffectAllow, Priority: 5, Active: true}).
		policy(&Policy{ID: "3", Name: "tie-deny", Effect: EffectDeny, Priority: 5, Active: true}).
		policy(&Policy{ID: "4", Name: "top-deny", Effect: EffectDeny, Priority: 9, Active: true}).
		build()

	names := make([]string, len(snap.policies))
	for i, p := range snap.policies {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"top-deny", "tie-deny", "tie-allow", "low-allow"}, names)
}

// TestSameTenant tests the tenant visibility rule
func TestSameTenant(t *testing.T) {
	snap := newSnapshotBuilder().build()

	shared := &Entity{ID: "shared"}
	scoped := &Entity{ID: "scoped", TenantID: strPtr("tenant-a")}

	assert.True(t, snap.sameTenant(shared, ""))
	assert.True(t, snap.sameTenant(shared, "tenant-a"))
	assert.True(t, snap.sameTenant(scoped, ""))
	assert.True(t, snap.sameTenant(scoped, "tenant-a"))
	assert.False(t, snap.sameTenant(scoped, "tenant-b"))
}

// TestAssignmentValidAt tests the half-open validity window on the model
func TestAssignmentValidAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	from := now.Add(-time.Hour)
	until := now.Add(time.Hour)

	a := &ScopedRoleAssignment{ValidFrom: &from, ValidUntil: &until}
	assert.True(t, a.ValidAt(now))
	assert.True(t, a.ValidAt(from))
	assert.False(t, a.ValidAt(from.Add(-time.Nanosecond)))
	assert.False(t, a.ValidAt(until))
	assert.True(t, a.ValidAt(until.Add(-time.Nanosecond)))

	open := &ScopedRoleAssignment{}
	assert.True(t, open.ValidAt(now))
}

// TestAssignmentGlobal tests global detection on scope
func TestAssignmentGlobal(t *testing.T) {
	assert.True(t, (&ScopedRoleAssignment{}).Global())
	assert.False(t, (&ScopedRoleAssignment{ScopeEntityID: strPtr("e")}).Global())
}
