package gatekit

import (
	"sort"
)

// ImpactReport describes what would change if a role's grant set were
// replaced. Gained and Lost list catalog permissions whose entity-level
// satisfaction flips; AffectedAssignments lists the live assignments the
// flip would reach. A gained permission on a deny assignment means new
// denials, not new access.
type ImpactReport struct {
	RoleID   string   `json:"role_id"`
	RoleName string   `json:"role_name"`
	Gained   []string `json:"gained"`
	Lost     []string `json:"lost"`

	AffectedAssignments []AffectedAssignment `json:"affected_assignments"`
}

// AffectedAssignment identifies one live assignment a simulated role change
// would reach.
type AffectedAssignment struct {
	PrincipalID   string `json:"principal_id"`
	ScopeEntityID string `json:"scope_entity_id,omitempty"` // empty for global
	IsDeny        bool   `json:"is_deny"`
}

// SimulateRoleChange computes the impact of replacing a role's grants with
// a proposed set, without mutating the snapshot. Matching uses the same
// entity-level rules as CheckPermission (exact name, level dominance,
// admin), so swapping a level-40 grant for a level-20 one correctly reports
// every dominated permission as lost.
func (s *Snapshot) SimulateRoleChange(roleID string, proposed []GrantDefinition) ImpactReport {
	report := ImpactReport{RoleID: roleID}
	role := s.roles[roleID]
	if role == nil {
		return report
	}
	report.RoleName = role.Name

	proposedRows := make([]*RoleGrant, 0, len(proposed))
	for _, g := range proposed {
		proposedRows = append(proposedRows, &RoleGrant{RoleID: roleID, Permission: g.Permission, FieldName: g.FieldName})
	}

	for _, p := range s.permissions {
		before := s.matchGrants(s.grants[roleID], p.Name)
		after := s.matchGrants(proposedRows, p.Name)
		switch {
		case after && !before:
			report.Gained = append(report.Gained, p.Name)
		case before && !after:
			report.Lost = append(report.Lost, p.Name)
		}
	}
	sort.Strings(report.Gained)
	sort.Strings(report.Lost)

	if len(report.Gained) == 0 && len(report.Lost) == 0 {
		return report
	}

	for _, principalID := range s.principalIDs() {
		for _, a := range s.assignments[principalID] {
			if a.RoleID != roleID || !a.ActiveAt(s.Now) {
				continue
			}
			aa := AffectedAssignment{PrincipalID: principalID, IsDeny: a.IsDeny}
			if a.ScopeEntityID != nil {
				aa.ScopeEntityID = *a.ScopeEntityID
			}
			report.AffectedAssignments = append(report.AffectedAssignments, aa)
		}
	}
	return report
}

// matchGrants applies the entity-level matching rules to an arbitrary grant
// slice. Field-scoped grants never satisfy an entity-level permission.
func (s *Snapshot) matchGrants(grants []*RoleGrant, permission string) bool {
	requested := s.permLevels[permission]
	for _, g := range grants {
		if g.FieldName != "" {
			continue
		}
		if g.Permission == permission || g.Permission == AdminPermission {
			return true
		}
		if s.permLevels[g.Permission] >= requested && s.permLevels[g.Permission] > 0 {
			return true
		}
	}
	return false
}

func (s *Snapshot) principalIDs() []string {
	ids := make([]string, 0, len(s.assignments))
	for id := range s.assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RolePermissionMatrix reports, for every role and every catalog
// permission, whether the role satisfies the permission at entity level.
// Keys are role names, then permission names.
func (s *Snapshot) RolePermissionMatrix() map[string]map[string]bool {
	matrix := make(map[string]map[string]bool, len(s.roles))
	for _, role := range s.roles {
		row := make(map[string]bool, len(s.permissions))
		for _, p := range s.permissions {
			row[p.Name] = s.matchGrants(s.grants[role.ID], p.Name)
		}
		matrix[role.Name] = row
	}
	return matrix
}
