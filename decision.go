package gatekit

// matchedAssignment pairs a live assignment with its effective scope and the
// specificity of that scope relative to the check target. Lower depth is
// more specific.
type matchedAssignment struct {
	assignment *ScopedRoleAssignment
	depth      int
	scope      string // effective scope entity ID, "" for global
}

// scopeOf returns the assignment's effective scope entity ID, or "" when the
// assignment is global. A scope reference that names no entity in the
// snapshot also resolves to "": malformed scope references degrade to global
// so a dangling deny still denies everywhere instead of vanishing.
func (s *Snapshot) scopeOf(a *ScopedRoleAssignment) string {
	if a.ScopeEntityID == nil || *a.ScopeEntityID == "" {
		return ""
	}
	if s.entities[*a.ScopeEntityID] == nil {
		return ""
	}
	return *a.ScopeEntityID
}

// liveAssignments selects the principal's assignments that participate in a
// check against the given closure: unrevoked, inside their validity window
// and recurring schedule at snapshot time, and scoped globally or to an
// entity inside the closure. A scope that exists but sits outside the
// closure excludes the assignment; a scope that names no entity at all is
// global per scopeOf. The polarity flag is not examined here; denies and
// allows travel together so a deny is only effective where an allow would
// have been.
func (s *Snapshot) liveAssignments(principalID string, c *closure) []matchedAssignment {
	var matched []matchedAssignment
	for _, a := range s.assignments[principalID] {
		if !a.ActiveAt(s.Now) {
			continue
		}
		scope := s.scopeOf(a)
		if scope != "" && !c.contains(scope) {
			continue
		}
		matched = append(matched, matchedAssignment{a, c.depthOf(scope), scope})
	}
	return matched
}

// roleGrantsPermission reports whether a role satisfies the requested
// permission at entity level. A grant matches by exact name, by level
// dominance (granted level >= requested level), or by being the admin
// permission. Field-scoped grants are invisible to entity-level checks.
func (s *Snapshot) roleGrantsPermission(roleID, permission string) bool {
	requested := s.permLevels[permission]
	for _, g := range s.grants[roleID] {
		if g.FieldName != "" {
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

// hasGlobalPermission reports whether a principal holds a permission
// through a live global assignment, dangling scopes included. Global denies
// win over global allows, matching the combination rule of the full check.
func (s *Snapshot) hasGlobalPermission(principalID, permission string) bool {
	allowed := false
	for _, a := range s.assignments[principalID] {
		if s.scopeOf(a) != "" || !a.ActiveAt(s.Now) {
			continue
		}
		if !s.roleGrantsPermission(a.RoleID, permission) {
			continue
		}
		if a.IsDeny {
			return false
		}
		allowed = true
	}
	return allowed
}

// liveRoleIDs returns the distinct role IDs of a principal's live non-deny
// assignments, any scope.
func (s *Snapshot) liveRoleIDs(principalID string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, a := range s.assignments[principalID] {
		if a.IsDeny || !a.ActiveAt(s.Now) || seen[a.RoleID] {
			continue
		}
		seen[a.RoleID] = true
		ids = append(ids, a.RoleID)
	}
	return ids
}

// CheckPermission decides whether a principal may perform a permission on an
// entity, with provenance. The decision is total: unknown principals,
// entities, roles, or permissions degrade to the default deny, never to an
// error.
//
// Order: ancestor closure, live assignment selection, grant matching, then
// combination (any deny wins, else the most specific allow wins, else
// default deny), then the policy overlay, which can restrict but never
// extend the role-graph result.
func (s *Snapshot) CheckPermission(principalID, entityID, permission, tenantID string) CheckResult {
	result := s.checkGraph(principalID, entityID, permission, tenantID)
	result, _ = s.applyPolicies(result, principalID, entityID, permission, tenantID)
	return result
}

// checkGraph is the role-graph half of the decision, without the policy
// overlay. The service layer calls it separately so the decision log can
// record both halves.
func (s *Snapshot) checkGraph(principalID, entityID, permission, tenantID string) CheckResult {
	c := s.AncestorClosure(entityID, tenantID)
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
		if !s.roleGrantsPermission(m.assignment.RoleID, permission) {
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

// CheckPermissionsBulk evaluates one permission against many entities on the
// same snapshot. Each entity is decided independently; a deny on one never
// bleeds into its siblings. Results preserve the input order, including
// duplicates.
func (s *Snapshot) CheckPermissionsBulk(principalID string, entityIDs []string, permission, tenantID string) []BulkCheckResult {
	results := make([]BulkCheckResult, 0, len(entityIDs))
	for _, id := range entityIDs {
		r := s.CheckPermission(principalID, id, permission, tenantID)
		results = append(results, BulkCheckResult{EntityID: id, Allowed: r.Allowed, Denied: r.Denied})
	}
	return results
}

// ListAllPermissions reports the outcome of every catalog permission for a
// principal on one entity, ordered by descending level. Diagnostic surface:
// one closure walk per call, one combination pass per permission.
func (s *Snapshot) ListAllPermissions(principalID, entityID, tenantID string) []PermissionStatus {
	statuses := make([]PermissionStatus, 0, len(s.permissions))
	for _, p := range s.permissions {
		r := s.CheckPermission(principalID, entityID, p.Name, tenantID)
		statuses = append(statuses, PermissionStatus{Permission: p.Name, Allowed: r.Allowed, Denied: r.Denied})
	}
	return statuses
}
