package gatekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCheckFieldPermissionExactMatch tests a field-scoped grant on the
// matching field name
func TestCheckFieldPermissionExactMatch(t *testing.T) {
	b := newSnapshotBuilder().
		class("c1", "employee").
		entity("emp", "c1", nil).
		role("r-clerk", "salary_clerk", 20).
		fieldGrant("r-clerk", "update", "salary").
		assign("u1", "r-clerk", strPtr("emp"))
	snap := b.build()

	result := snap.CheckFieldPermission("u1", "emp", "update", "salary", "")
	assert.True(t, result.Allowed)
	assert.Equal(t, "salary_clerk", result.GrantedViaRole)
	assert.False(t, result.Inherited)

	// A different field name does not match.
	assert.False(t, snap.CheckFieldPermission("u1", "emp", "update", "title", "").Allowed)
}

// TestCheckFieldPermissionEntityGrantDoesNotCoverFields tests that an
// entity-level grant never satisfies a field check on its own
func TestCheckFieldPermissionEntityGrantDoesNotCoverFields(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "employee").
		entity("emp", "c1", nil).
		role("r-editor", "editor", 40, "update").
		assign("u1", "r-editor", strPtr("emp")).
		build()

	assert.True(t, snap.CheckPermission("u1", "emp", "update", "").Allowed)
	assert.False(t, snap.CheckFieldPermission("u1", "emp", "update", "salary", "").Allowed)
}

// TestCheckFieldPermissionAdminShortCircuit tests that entity-level admin
// opens every field
func TestCheckFieldPermissionAdminShortCircuit(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "employee").
		entity("org", "c1", nil).
		entity("emp", "c1", strPtr("org")).
		role("r-owner", "owner", 100, "admin").
		assign("u1", "r-owner", strPtr("org")).
		build()

	result := snap.CheckFieldPermission("u1", "emp", "update", "salary", "")
	assert.True(t, result.Allowed)
	assert.Equal(t, "org", result.GrantedViaEntityID)
	assert.True(t, result.Inherited)
}

// TestCheckFieldPermissionParentChainOnly tests that field grants travel
// parent links but never relationship edges
func TestCheckFieldPermissionParentChainOnly(t *testing.T) {
	b := newSnapshotBuilder().
		class("c1", "employee").
		entity("dept", "c1", nil).
		entity("emp", "c1", strPtr("dept")).
		entity("linked", "c1", nil).
		relType("rt1", "assigned_to", true).
		edge("emp2", "linked", "rt1").
		entity("emp2", "c1", nil).
		role("r-clerk", "salary_clerk", 20).
		fieldGrant("r-clerk", "update", "salary").
		assign("u1", "r-clerk", strPtr("dept")).
		assign("u2", "r-clerk", strPtr("linked"))
	snap := b.build()

	// Grant on the parent reaches the child.
	result := snap.CheckFieldPermission("u1", "emp", "update", "salary", "")
	assert.True(t, result.Allowed)
	assert.True(t, result.Inherited)

	// Grant across an inheritance edge does not, even though the full
	// entity-level walk would follow it.
	assert.False(t, snap.CheckFieldPermission("u2", "emp2", "update", "salary", "").Allowed)
}

// TestCheckFieldPermissionDenyWins tests a field-scoped deny beating a
// field-scoped allow
func TestCheckFieldPermissionDenyWins(t *testing.T) {
	b := newSnapshotBuilder().
		class("c1", "employee").
		entity("emp", "c1", nil).
		role("r-clerk", "salary_clerk", 20).
		fieldGrant("r-clerk", "update", "salary").
		assign("u1", "r-clerk", strPtr("emp")).
		deny("u1", "r-clerk", strPtr("emp"))
	snap := b.build()

	result := snap.CheckFieldPermission("u1", "emp", "update", "salary", "")
	assert.False(t, result.Allowed)
	assert.True(t, result.Denied)
}

// TestCheckFieldPermissionLevelDominance tests that a field grant at a
// higher level covers lower requests on the same field
func TestCheckFieldPermissionLevelDominance(t *testing.T) {
	b := newSnapshotBuilder().
		class("c1", "employee").
		entity("emp", "c1", nil).
		role("r-clerk", "salary_clerk", 20).
		fieldGrant("r-clerk", "update", "salary").
		assign("u1", "r-clerk", strPtr("emp"))
	snap := b.build()

	assert.True(t, snap.CheckFieldPermission("u1", "emp", "read", "salary", "").Allowed)
	assert.False(t, snap.CheckFieldPermission("u1", "emp", "delegate", "salary", "").Allowed)
}

// TestCheckFieldPermissionUnknownEntity tests fail-closed on unknown targets
func TestCheckFieldPermissionUnknownEntity(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "employee").
		role("r-owner", "owner", 100, "admin").
		assign("u1", "r-owner", nil).
		build()

	assert.False(t, snap.CheckFieldPermission("u1", "missing", "update", "salary", "").Allowed)
}
