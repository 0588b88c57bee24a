package gatekit

// parentChain is the restricted upward closure used by field checks: parent
// links only, no relationship edges. Same visited-set bound and tenant
// filter as the full walk.
func (s *Snapshot) parentChain(entityID, tenantID string) *closure {
	return s.walk(entityID, tenantID, func(id string) []string {
		if e := s.entities[id]; e != nil && e.ParentEntityID != nil {
			return []string{*e.ParentEntityID}
		}
		return nil
	})
}

// roleGrantsField reports whether a role carries a field-scoped grant for
// the exact field that satisfies the requested permission by name, level
// dominance, or admin. Entity-level grants (empty field name) do not count
// here; the admin short-circuit in CheckFieldPermission covers them.
func (s *Snapshot) roleGrantsField(roleID, permission, fieldName string) bool {
	requested := s.permLevels[permission]
	for _, g := range s.grants[roleID] {
		if g.FieldName != fieldName {
			continue
		}
		if g.Permission == permission {
			return true
		}
		if g.Permission == AdminPermission {
			return true
		}
		if s.permLevels[g.Permission] >= requested && s.permLevels[g.Permission] > 0 {
			return true
		}
	}
	return false
}

// CheckFieldPermission decides a permission on a named field of an entity.
//
// A principal who holds the admin permission on the entity (by the full
// entity-level rules, inheritance edges included) is allowed on every field.
// Otherwise the check requires a field-scoped grant whose field name exactly
// matches, selected along the parent chain only. Field-scoped denies win
// over field-scoped allows; default is deny.
func (s *Snapshot) CheckFieldPermission(principalID, entityID, permission, fieldName, tenantID string) CheckResult {
	admin := s.checkGraph(principalID, entityID, AdminPermission, tenantID)
	if admin.Allowed {
		return admin
	}

	c := s.parentChain(entityID, tenantID)
	if !c.contains(entityID) {
		return CheckResult{}
	}

	var (
		allowed   bool
		bestDepth int
		bestRole  string
		bestScope string
	)

	for _, m := range s.liveAssignments(principalID, c) {
		if !s.roleGrantsField(m.assignment.RoleID, permission, fieldName) {
			continue
		}
		if m.assignment.IsDeny {
			return CheckResult{Denied: true}
		}
		if !allowed || m.depth < bestDepth {
			allowed = true
			bestDepth = m.depth
			bestScope = m.scope
			if r := s.roles[m.assignment.RoleID]; r != nil {
				bestRole = r.Name
			}
		}
	}

	if !allowed {
		return CheckResult{}
	}
	return CheckResult{
		Allowed:            true,
		GrantedViaEntityID: bestScope,
		GrantedViaRole:     bestRole,
		Inherited:          bestScope != entityID,
	}
}
