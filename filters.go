package gatekit

import "time"

// EntityFilter provides options for filtering entity listings.
type EntityFilter struct {
	// Filter by entity class
	ClassID string

	// Filter by direct parent
	ParentEntityID string

	// Filter by tenant (shared entities always included)
	TenantID string

	// Pagination
	Limit  int
	Offset int
}

// NewEntityFilter creates an EntityFilter with default values.
func NewEntityFilter() EntityFilter {
	return EntityFilter{Limit: 100}
}

// WithClass sets the class filter.
func (f EntityFilter) WithClass(classID string) EntityFilter {
	f.ClassID = classID
	return f
}

// WithParent sets the parent filter.
func (f EntityFilter) WithParent(parentEntityID string) EntityFilter {
	f.ParentEntityID = parentEntityID
	return f
}

// WithTenant sets the tenant filter.
func (f EntityFilter) WithTenant(tenantID string) EntityFilter {
	f.TenantID = tenantID
	return f
}

// WithPagination sets both limit and offset.
func (f EntityFilter) WithPagination(limit, offset int) EntityFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// AssignmentFilter provides options for filtering assignment listings.
type AssignmentFilter struct {
	// Filter by principal
	PrincipalID string

	// Filter by role
	RoleID string

	// Filter by scope entity
	ScopeEntityID string

	// Only global assignments
	OnlyGlobal bool

	// Only deny assignments
	OnlyDenies bool

	// Include revoked assignments (excluded by default)
	IncludeRevoked bool

	// Pagination
	Limit  int
	Offset int
}

// NewAssignmentFilter creates an AssignmentFilter with default values.
func NewAssignmentFilter() AssignmentFilter {
	return AssignmentFilter{Limit: 100}
}

// WithPrincipal sets the principal filter.
func (f AssignmentFilter) WithPrincipal(principalID string) AssignmentFilter {
	f.PrincipalID = principalID
	return f
}

// WithRole sets the role filter.
func (f AssignmentFilter) WithRole(roleID string) AssignmentFilter {
	f.RoleID = roleID
	return f
}

// WithScope sets the scope entity filter.
func (f AssignmentFilter) WithScope(scopeEntityID string) AssignmentFilter {
	f.ScopeEntityID = scopeEntityID
	return f
}

// GlobalOnly restricts results to global assignments.
func (f AssignmentFilter) GlobalOnly() AssignmentFilter {
	f.OnlyGlobal = true
	return f
}

// DeniesOnly restricts results to deny assignments.
func (f AssignmentFilter) DeniesOnly() AssignmentFilter {
	f.OnlyDenies = true
	return f
}

// WithRevoked includes revoked assignments.
func (f AssignmentFilter) WithRevoked() AssignmentFilter {
	f.IncludeRevoked = true
	return f
}

// WithPagination sets both limit and offset.
func (f AssignmentFilter) WithPagination(limit, offset int) AssignmentFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// PolicyFilter provides options for filtering policy listings.
type PolicyFilter struct {
	// Include inactive policies (excluded by default)
	IncludeInactive bool

	// Filter by effect
	Effect PolicyEffect

	// Filter by targeted permission (matches catch-all policies too)
	TargetPermission string

	// Filter by scope entity
	ScopeEntityID string

	// Pagination
	Limit  int
	Offset int
}

// NewPolicyFilter creates a PolicyFilter with default values.
func NewPolicyFilter() PolicyFilter {
	return PolicyFilter{Limit: 100}
}

// WithInactive includes inactive policies.
func (f PolicyFilter) WithInactive() PolicyFilter {
	f.IncludeInactive = true
	return f
}

// WithEffect sets the effect filter.
func (f PolicyFilter) WithEffect(effect PolicyEffect) PolicyFilter {
	f.Effect = effect
	return f
}

// WithTargetPermission sets the targeted permission filter.
func (f PolicyFilter) WithTargetPermission(permission string) PolicyFilter {
	f.TargetPermission = permission
	return f
}

// WithPagination sets both limit and offset.
func (f PolicyFilter) WithPagination(limit, offset int) PolicyFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// DecisionLogFilter provides options for filtering decision log queries.
type DecisionLogFilter struct {
	// Filter by principal
	PrincipalID string

	// Filter by entity
	EntityID string

	// Filter by permission
	Permission string

	// Only denied decisions
	OnlyDenied bool

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewDecisionLogFilter creates a DecisionLogFilter with default values.
func NewDecisionLogFilter() DecisionLogFilter {
	return DecisionLogFilter{Limit: 100}
}

// WithPrincipal sets the principal filter.
func (f DecisionLogFilter) WithPrincipal(principalID string) DecisionLogFilter {
	f.PrincipalID = principalID
	return f
}

// WithEntity sets the entity filter.
func (f DecisionLogFilter) WithEntity(entityID string) DecisionLogFilter {
	f.EntityID = entityID
	return f
}

// WithPermission sets the permission filter.
func (f DecisionLogFilter) WithPermission(permission string) DecisionLogFilter {
	f.Permission = permission
	return f
}

// DeniedOnly restricts results to denied decisions.
func (f DecisionLogFilter) DeniedOnly() DecisionLogFilter {
	f.OnlyDenied = true
	return f
}

// WithTimeRange sets the time range filter.
func (f DecisionLogFilter) WithTimeRange(since, until time.Time) DecisionLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f DecisionLogFilter) WithPagination(limit, offset int) DecisionLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// AuditLogFilter provides options for filtering assignment audit queries.
type AuditLogFilter struct {
	// Filter by actor who performed the action
	ActorID string

	// Filter by target principal of the action
	PrincipalID string

	// Filter by role name
	RoleName string

	// Filter by scope entity
	ScopeID string

	// Filter by action type ("granted" or "revoked")
	Action string

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAuditLogFilter creates an AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{Limit: 100}
}

// WithActor sets the actor filter.
func (f AuditLogFilter) WithActor(actorID string) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// WithPrincipal sets the target principal filter.
func (f AuditLogFilter) WithPrincipal(principalID string) AuditLogFilter {
	f.PrincipalID = principalID
	return f
}

// WithRole sets the role name filter.
func (f AuditLogFilter) WithRole(roleName string) AuditLogFilter {
	f.RoleName = roleName
	return f
}

// WithScope sets the scope entity filter.
func (f AuditLogFilter) WithScope(scopeID string) AuditLogFilter {
	f.ScopeID = scopeID
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action AuditAction) AuditLogFilter {
	f.Action = string(action)
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}
