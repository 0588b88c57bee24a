package gatekit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestSimulateRoleChangeLevelSwap tests the gained/lost sets when a role's
// grant drops from update (40) to read (20)
func TestSimulateRoleChangeLevelSwap(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-editor", "editor", 40, "update").
		assign("u1", "r-editor", strPtr("e")).
		build()

	report := snap.SimulateRoleChange("r-editor", []GrantDefinition{{Permission: "read"}})

	assert.Equal(t, "editor", report.RoleName)
	assert.Empty(t, report.Gained)
	assert.Equal(t, []string{"update"}, report.Lost,
		"read and discover stay satisfied by dominance, only update is lost")
	assert.Len(t, report.AffectedAssignments, 1)
	assert.Equal(t, "u1", report.AffectedAssignments[0].PrincipalID)
	assert.Equal(t, "e", report.AffectedAssignments[0].ScopeEntityID)
}

// TestSimulateRoleChangeGain tests gained permissions on an upgrade
func TestSimulateRoleChangeGain(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		role("r-viewer", "viewer", 10, "read").
		assign("u1", "r-viewer", nil).
		build()

	report := snap.SimulateRoleChange("r-viewer", []GrantDefinition{{Permission: "delegate"}})

	assert.Equal(t, []string{"delegate", "update"}, report.Gained)
	assert.Empty(t, report.Lost)
}

// TestSimulateRoleChangeAdminGrant tests that granting admin gains the whole
// catalog
func TestSimulateRoleChangeAdminGrant(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		role("r-viewer", "viewer", 10, "read").
		assign("u1", "r-viewer", nil).
		build()

	report := snap.SimulateRoleChange("r-viewer", []GrantDefinition{{Permission: "admin"}})

	assert.Equal(t, []string{"admin", "delegate", "update"}, report.Gained)
	assert.Empty(t, report.Lost)
}

// TestSimulateRoleChangeAffectedAssignments tests the reach listing,
// including deny assignments and skipping revoked ones
func TestSimulateRoleChangeAffectedAssignments(t *testing.T) {
	b := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-viewer", "viewer", 10, "read").
		role("r-other", "other", 10, "read").
		assign("u1", "r-viewer", strPtr("e")).
		assign("u2", "r-viewer", nil).
		deny("u3", "r-viewer", strPtr("e")).
		assign("u4", "r-other", strPtr("e"))
	revoked := b.now.Add(-time.Hour)
	b.input.Assignments = append(b.input.Assignments, &ScopedRoleAssignment{
		ID: "assign-revoked", PrincipalID: "u5", RoleID: "r-viewer", RevokedAt: &revoked,
	})
	snap := b.build()

	report := snap.SimulateRoleChange("r-viewer", []GrantDefinition{{Permission: "update"}})

	assert.Len(t, report.AffectedAssignments, 3)
	byPrincipal := make(map[string]AffectedAssignment)
	for _, aa := range report.AffectedAssignments {
		byPrincipal[aa.PrincipalID] = aa
	}
	assert.Contains(t, byPrincipal, "u1")
	assert.Equal(t, "", byPrincipal["u2"].ScopeEntityID)
	assert.True(t, byPrincipal["u3"].IsDeny)
	assert.NotContains(t, byPrincipal, "u4", "other roles are untouched")
	assert.NotContains(t, byPrincipal, "u5", "revoked assignments are not affected")
}

// TestSimulateRoleChangeNoop tests that an equivalent grant set reports no
// impact and lists no assignments
func TestSimulateRoleChangeNoop(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		role("r-editor", "editor", 40, "update").
		assign("u1", "r-editor", nil).
		build()

	report := snap.SimulateRoleChange("r-editor", []GrantDefinition{{Permission: "update"}})

	assert.Empty(t, report.Gained)
	assert.Empty(t, report.Lost)
	assert.Empty(t, report.AffectedAssignments)
}

// TestSimulateRoleChangeUnknownRole tests the empty report for an unknown
// role ID
func TestSimulateRoleChangeUnknownRole(t *testing.T) {
	snap := newSnapshotBuilder().class("c1", "node").build()

	report := snap.SimulateRoleChange("missing", []GrantDefinition{{Permission: "read"}})

	assert.Equal(t, "missing", report.RoleID)
	assert.Empty(t, report.RoleName)
	assert.Empty(t, report.Gained)
	assert.Empty(t, report.Lost)
}

// TestSimulateRoleChangeFieldGrantsIgnored tests that field-scoped rows in
// the proposed set never satisfy entity-level permissions
func TestSimulateRoleChangeFieldGrantsIgnored(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		role("r-viewer", "viewer", 10, "read").
		assign("u1", "r-viewer", nil).
		build()

	report := snap.SimulateRoleChange("r-viewer", []GrantDefinition{
		{Permission: "read"},
		{Permission: "update", FieldName: "salary"},
	})

	assert.Empty(t, report.Gained)
	assert.Empty(t, report.Lost)
}

// TestRolePermissionMatrix tests the full role/permission satisfaction grid
func TestRolePermissionMatrix(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		role("r-viewer", "viewer", 10, "read").
		role("r-owner", "owner", 100, "admin").
		build()

	matrix := snap.RolePermissionMatrix()

	assert.Len(t, matrix, 2)
	assert.True(t, matrix["viewer"]["read"])
	assert.True(t, matrix["viewer"]["discover"], "dominance shows up in the matrix")
	assert.False(t, matrix["viewer"]["update"])
	for _, permission := range []string{"discover", "read", "update", "delegate", "admin"} {
		assert.True(t, matrix["owner"][permission])
	}
}
