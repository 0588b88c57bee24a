package gatekit

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Entity is a node in the authorization graph. Entities form a tree through
// ParentEntityID and a general graph through relationships. A nil TenantID
// means the entity is shared across tenants.
type Entity struct {
	bun.BaseModel `bun:"table:entities,alias:e"`

	ID             string         `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ClassID        string         `bun:"class_id,notnull,type:uuid"`
	DisplayName    string         `bun:"display_name,notnull"`
	ParentEntityID *string        `bun:"parent_entity_id,type:uuid"`
	TenantID       *string        `bun:"tenant_id,type:uuid"`
	Attributes     map[string]any `bun:"attributes,type:jsonb"`
	CreatedAt      time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
	DeletedAt      *time.Time     `bun:"deleted_at"`
}

// Deleted reports whether the entity is soft-deleted. Deleted entities are
// excluded from every traversal.
func (e *Entity) Deleted() bool {
	return e.DeletedAt != nil
}

// EntityClass tags entities with a type ("project", "task", "unit", ...).
// Policies may target a class.
type EntityClass struct {
	bun.BaseModel `bun:"table:entity_classes,alias:ec"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// RelationshipType names a kind of directed edge. Only types with
// InheritsPermissions participate in permission propagation.
type RelationshipType struct {
	bun.BaseModel `bun:"table:relationship_types,alias:rt"`

	ID                  string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name                string    `bun:"name,notnull,unique"`
	Description         string    `bun:"description"`
	SourceClassID       *string   `bun:"source_class_id,type:uuid"`
	TargetClassID       *string   `bun:"target_class_id,type:uuid"`
	InheritsPermissions bool      `bun:"inherits_permissions,notnull,default:false"`
	CreatedAt           time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Relationship is a directed edge between two entities. For an
// inheritance-carrying type, source -> target means permissions granted on
// the target also apply to the source.
type Relationship struct {
	bun.BaseModel `bun:"table:relationships,alias:r"`

	ID             string         `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	SourceEntityID string         `bun:"source_entity_id,notnull,type:uuid"`
	TargetEntityID string         `bun:"target_entity_id,notnull,type:uuid"`
	TypeID         string         `bun:"type_id,notnull,type:uuid"`
	Metadata       map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt      time.Time      `bun:"created_at,notnull,default:current_timestamp"`
}

// Role is a named bundle of permission grants. Level is an informational
// ranking used by the delegation guard, never by grant matching.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:ro"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	Level       int       `bun:"level,notnull,default:0"`
	TenantID    *string   `bun:"tenant_id,type:uuid"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PermissionType is a named permission with an integer level used for
// dominance comparisons: holding a permission of level N on a scope implies
// every permission of level <= N on that scope.
type PermissionType struct {
	bun.BaseModel `bun:"table:permission_types,alias:pt"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	Level       int       `bun:"level,notnull,default:0"`
	Sensitive   bool      `bun:"is_sensitive,notnull,default:false"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AdminPermission is the distinguished permission name that implies every
// other permission regardless of level.
const AdminPermission = "admin"

// DelegatePermission is required on a scope to grant or revoke roles within
// that scope.
const DelegatePermission = "delegate"

// RoleGrant links a role to a permission it grants. A grant with a non-empty
// FieldName only satisfies field-scoped checks for that exact field and is
// invisible to entity-level checks.
type RoleGrant struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	ID         string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	RoleID     string    `bun:"role_id,notnull,type:uuid"`
	Permission string    `bun:"permission,notnull"`
	FieldName  string    `bun:"field_name,notnull,default:''"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ScopedRoleAssignment binds a principal to a role, optionally anchored to a
// scope entity. A nil ScopeEntityID means the assignment is global. The
// validity window is half-open: the assignment is live while
// ValidFrom <= now < ValidUntil, with nil meaning unbounded on that side.
// Revoked assignments are kept for audit but are inert.
type ScopedRoleAssignment struct {
	bun.BaseModel `bun:"table:scoped_role_assignments,alias:sra"`

	ID            string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	PrincipalID   string     `bun:"user_id,notnull"`
	RoleID        string     `bun:"role_id,notnull,type:uuid"`
	ScopeEntityID *string    `bun:"scope_entity_id,type:uuid"`
	ValidFrom     *time.Time `bun:"valid_from"`
	ValidUntil    *time.Time `bun:"valid_until"`
	ScheduleCron  string     `bun:"schedule_cron,notnull,default:''"`
	IsDeny        bool       `bun:"is_deny,notnull,default:false"`
	GrantedBy     *string    `bun:"granted_by"`
	GrantedAt     time.Time  `bun:"granted_at,notnull,default:current_timestamp"`
	RevokedAt     *time.Time `bun:"revoked_at"`
	RevokedBy     *string    `bun:"revoked_by"`
	RevokeReason  string     `bun:"revoke_reason,notnull,default:''"`
}

// Revoked reports whether the assignment has been revoked.
func (a *ScopedRoleAssignment) Revoked() bool {
	return a.RevokedAt != nil
}

// Global reports whether the assignment applies to every entity.
func (a *ScopedRoleAssignment) Global() bool {
	return a.ScopeEntityID == nil
}

// ValidAt reports whether the assignment's validity window covers t.
// The window is half-open: valid_from inclusive, valid_until exclusive.
func (a *ScopedRoleAssignment) ValidAt(t time.Time) bool {
	if a.Revoked() {
		return false
	}
	if a.ValidFrom != nil && t.Before(*a.ValidFrom) {
		return false
	}
	if a.ValidUntil != nil && !t.Before(*a.ValidUntil) {
		return false
	}
	return true
}

// ActiveAt reports whether the assignment is live at t, including the
// recurring schedule window when one is set. An assignment with an invalid
// cron expression is treated as inactive rather than failing the check.
func (a *ScopedRoleAssignment) ActiveAt(t time.Time) bool {
	if !a.ValidAt(t) {
		return false
	}
	if a.ScheduleCron == "" {
		return true
	}
	within, err := WithinSchedule(a.ScheduleCron, t)
	if err != nil {
		return false
	}
	return within
}

// PolicyEffect is the outcome a policy rule produces when it matches.
type PolicyEffect string

const (
	EffectAllow PolicyEffect = "ALLOW"
	EffectDeny  PolicyEffect = "DENY"
)

// Policy is a prioritized attribute-condition rule evaluated independently
// of the role graph. Higher Priority evaluates first; at equal priority DENY
// rules evaluate before ALLOW rules. An empty TargetPermissions list targets
// every permission; a nil TargetClassID targets every class; a nil
// ScopeEntityID applies everywhere, otherwise the policy applies to its
// scope entity and everything below it.
type Policy struct {
	bun.BaseModel `bun:"table:policies,alias:p"`

	ID                string          `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name              string          `bun:"name,notnull"`
	Description       string          `bun:"description"`
	Effect            PolicyEffect    `bun:"effect,notnull"`
	Priority          int             `bun:"priority,notnull,default:0"`
	TargetClassID     *string         `bun:"target_class_id,type:uuid"`
	TargetPermissions []string        `bun:"target_permissions,type:text[]"`
	Conditions        json.RawMessage `bun:"conditions,type:jsonb"`
	ScopeEntityID     *string         `bun:"scope_entity_id,type:uuid"`
	TenantID          *string         `bun:"tenant_id,type:uuid"`
	Active            bool            `bun:"is_active,notnull,default:true"`
	ValidFrom         *time.Time      `bun:"valid_from"`
	ValidUntil        *time.Time      `bun:"valid_until"`
	CreatedAt         time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	CreatedBy         *string         `bun:"created_by"`
	UpdatedAt         *time.Time      `bun:"updated_at"`
	UpdatedBy         *string         `bun:"updated_by"`
}

// ValidAt reports whether the policy's validity window covers t.
func (p *Policy) ValidAt(t time.Time) bool {
	if !p.Active {
		return false
	}
	if p.ValidFrom != nil && t.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && !t.Before(*p.ValidUntil) {
		return false
	}
	return true
}

// TargetsPermission reports whether the policy applies to the named
// permission. An empty target list applies to all permissions.
func (p *Policy) TargetsPermission(permission string) bool {
	if len(p.TargetPermissions) == 0 {
		return true
	}
	for _, tp := range p.TargetPermissions {
		if tp == permission {
			return true
		}
	}
	return false
}

// CheckResult is the outcome of a single permission check.
//
// Denied is true only for an explicit deny override (a matched deny
// assignment or a matching DENY policy), never for the default-closed case.
// Provenance fields are informational: they cite the most specific granting
// scope and role for allow results and never change the boolean decision.
type CheckResult struct {
	Allowed            bool   `json:"allowed"`
	Denied             bool   `json:"denied"`
	GrantedViaEntityID string `json:"granted_via_entity_id,omitempty"`
	GrantedViaRole     string `json:"granted_via_role,omitempty"`
	Inherited          bool   `json:"inherited"`
	PolicyName         string `json:"policy_name,omitempty"`
}

// BulkCheckResult is the per-entity outcome of a bulk permission check.
type BulkCheckResult struct {
	EntityID string `json:"entity_id"`
	Allowed  bool   `json:"allowed"`
	Denied   bool   `json:"denied"`
}

// PermissionStatus reports one catalog permission's outcome for a principal
// on an entity, as returned by ListAllPermissions.
type PermissionStatus struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
	Denied     bool   `json:"denied"`
}

// AccessType tags how an accessible entity was reached.
const (
	AccessDirect    = "direct"
	AccessInherited = "inherited"
)

// AccessibleEntity is one row of the reverse discovery result.
type AccessibleEntity struct {
	EntityID    string `json:"entity_id"`
	DisplayName string `json:"display_name"`
	ClassID     string `json:"class_id"`
	AccessType  string `json:"access_type"`
}

// DelegationRule allows holders of the granter role to grant, modify, or
// revoke the grantee role. The delegation guard also accepts the admin role
// or a granter role of strictly higher level without an explicit rule.
type DelegationRule struct {
	bun.BaseModel `bun:"table:role_delegation_rules,alias:rdr"`

	ID            string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	GranterRoleID string    `bun:"granter_role_id,notnull,type:uuid"`
	GranteeRoleID string    `bun:"grantee_role_id,notnull,type:uuid"`
	CanGrant      bool      `bun:"can_grant,notnull,default:false"`
	CanModify     bool      `bun:"can_modify,notnull,default:false"`
	CanRevoke     bool      `bun:"can_revoke,notnull,default:false"`
	TenantID      *string   `bun:"tenant_id,type:uuid"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AssignmentAuditLog records every assignment grant and revocation for
// compliance and debugging.
type AssignmentAuditLog struct {
	bun.BaseModel `bun:"table:assignment_audit_log,alias:aal"`

	ID          string      `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp   time.Time   `bun:"timestamp,notnull,default:current_timestamp"`
	ActorID     string      `bun:"actor_id,notnull"`
	Action      AuditAction `bun:"action,notnull"`
	PrincipalID string      `bun:"principal_id,notnull"`
	RoleName    string      `bun:"role_name,notnull"`
	ScopeID     string      `bun:"scope_id"` // empty for global
	IsDeny      bool        `bun:"is_deny,notnull,default:false"`
	Reason      string      `bun:"reason"`
	IPAddress   string      `bun:"ip_address"`
	UserAgent   string      `bun:"user_agent"`
	RequestID   string      `bun:"request_id"`
}

// AuditAction identifies what happened to an assignment.
type AuditAction string

const (
	AuditActionGranted AuditAction = "granted"
	AuditActionRevoked AuditAction = "revoked"
)

// DecisionLog records the outcome of a service-level permission check:
// the role-graph result, the policy overlay result, and the final decision.
type DecisionLog struct {
	bun.BaseModel `bun:"table:decision_log,alias:dl"`

	ID           string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp    time.Time `bun:"timestamp,notnull,default:current_timestamp"`
	PrincipalID  string    `bun:"principal_id,notnull"`
	EntityID     string    `bun:"entity_id,notnull,type:uuid"`
	Permission   string    `bun:"permission,notnull"`
	GraphResult  bool      `bun:"graph_result,notnull"`
	PolicyResult string    `bun:"policy_result,notnull"` // "ALLOWED", "DENIED", "NO_MATCH"
	PolicyName   string    `bun:"policy_name"`
	FinalResult  bool      `bun:"final_result,notnull"`
	RequestID    string    `bun:"request_id"`
}

// Policy overlay outcomes recorded in DecisionLog.PolicyResult. Skipped
// marks decision paths where the overlay does not run at all, such as field
// checks, as opposed to running without a match.
const (
	PolicyOutcomeAllowed = "ALLOWED"
	PolicyOutcomeDenied  = "DENIED"
	PolicyOutcomeNoMatch = "NO_MATCH"
	PolicyOutcomeSkipped = "SKIPPED"
)
