package gatekit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ============================================================================
// SCOPED ROLE ASSIGNMENTS
// ============================================================================

// AssignRoleInput carries the fields for a new scoped role assignment. A
// nil ScopeEntityID makes the assignment global. ScheduleCron, when set,
// restricts the assignment to a recurring window.
type AssignRoleInput struct {
	PrincipalID   string
	RoleName      string
	ScopeEntityID *string
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	ScheduleCron  string
	IsDeny        bool
}

// AssignRole grants a role to a principal, enforcing the delegation guard
// when an actor is present in the context: the actor must hold the
// delegate permission on the scope (or globally for a global assignment),
// and must either have an explicit delegation rule for the grantee role,
// hold a role of strictly higher level, or hold admin. Without an actor in
// context the guard is skipped; use that path only for system seeding.
func (s *Service) AssignRole(ctx context.Context, input AssignRoleInput) (*ScopedRoleAssignment, error) {
	if err := ValidateSchedule(input.ScheduleCron); err != nil {
		return nil, err
	}
	role, err := s.GetRoleByName(ctx, input.RoleName)
	if err != nil {
		return nil, err
	}
	if input.ScopeEntityID != nil {
		if _, err := s.GetEntity(ctx, *input.ScopeEntityID); err != nil {
			return nil, err
		}
	}

	actorID := GetActorID(ctx)
	if actorID != "" {
		if err := s.checkDelegation(ctx, actorID, role, input.ScopeEntityID, delegationGrant); err != nil {
			return nil, err
		}
	}

	exists, err := dbkit.Exists[ScopedRoleAssignment](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("user_id = ?", input.PrincipalID).
			Where("role_id = ?", role.ID).
			Where("is_deny = ?", input.IsDeny).
			Where("revoked_at IS NULL")
		if input.ScopeEntityID == nil {
			return q.Where("scope_entity_id IS NULL")
		}
		return q.Where("scope_entity_id = ?", *input.ScopeEntityID)
	})
	if err != nil {
		return nil, dbkit.WithErr1(err, "AssignRole.exists").Err()
	}
	if exists {
		return nil, NewError(ErrAlreadyAssigned, input.RoleName).
			WithRole(input.RoleName).WithPrincipal(input.PrincipalID)
	}

	assignment := &ScopedRoleAssignment{
		ID:            uuid.NewString(),
		PrincipalID:   input.PrincipalID,
		RoleID:        role.ID,
		ScopeEntityID: input.ScopeEntityID,
		ValidFrom:     input.ValidFrom,
		ValidUntil:    input.ValidUntil,
		ScheduleCron:  input.ScheduleCron,
		IsDeny:        input.IsDeny,
		GrantedAt:     s.clock(),
	}
	if actorID != "" {
		assignment.GrantedBy = &actorID
	}

	err = s.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.conn(ctx).NewInsert().Model(assignment).Exec(ctx); err != nil {
			return dbkit.WithErr1(err, "AssignRole.insert").Err()
		}
		return s.logAssignmentAudit(ctx, AuditActionGranted, assignment, role.Name, "")
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// RevokeAssignment marks an assignment revoked, keeping the row for audit.
// The delegation guard applies as in AssignRole, against the revoke right.
func (s *Service) RevokeAssignment(ctx context.Context, assignmentID, reason string) error {
	assignment := new(ScopedRoleAssignment)
	err := s.conn(ctx).NewSelect().
		Model(assignment).
		Where("id = ?", assignmentID).
		Where("revoked_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(ErrAssignmentNotFound, assignmentID)
	}
	if err != nil {
		return dbkit.WithErr1(err, "RevokeAssignment.get").Err()
	}

	role := new(Role)
	if err := s.conn(ctx).NewSelect().Model(role).Where("id = ?", assignment.RoleID).Scan(ctx); err != nil {
		return dbkit.WithErr1(err, "RevokeAssignment.role").Err()
	}

	actorID := GetActorID(ctx)
	if actorID != "" {
		if err := s.checkDelegation(ctx, actorID, role, assignment.ScopeEntityID, delegationRevoke); err != nil {
			return err
		}
	}

	now := s.clock()
	assignment.RevokedAt = &now
	assignment.RevokeReason = reason
	if actorID != "" {
		assignment.RevokedBy = &actorID
	}

	return s.Transaction(ctx, func(ctx context.Context) error {
		_, err := s.conn(ctx).NewUpdate().
			Model(assignment).
			Column("revoked_at", "revoked_by", "revoke_reason").
			WherePK().
			Exec(ctx)
		if err != nil {
			return dbkit.WithErr1(err, "RevokeAssignment.update").Err()
		}
		return s.logAssignmentAudit(ctx, AuditActionRevoked, assignment, role.Name, reason)
	})
}

// ListAssignments returns assignments matching the filter, newest first.
func (s *Service) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]ScopedRoleAssignment, error) {
	var assignments []ScopedRoleAssignment
	q := s.conn(ctx).NewSelect().Model(&assignments)
	if filter.PrincipalID != "" {
		q = q.Where("user_id = ?", filter.PrincipalID)
	}
	if filter.RoleID != "" {
		q = q.Where("role_id = ?", filter.RoleID)
	}
	if filter.ScopeEntityID != "" {
		q = q.Where("scope_entity_id = ?", filter.ScopeEntityID)
	}
	if filter.OnlyGlobal {
		q = q.Where("scope_entity_id IS NULL")
	}
	if filter.OnlyDenies {
		q = q.Where("is_deny = true")
	}
	if !filter.IncludeRevoked {
		q = q.Where("revoked_at IS NULL")
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("granted_at DESC")
	if err := dbkit.WithErr1(q.Scan(ctx), "ListAssignments").Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *Service) logAssignmentAudit(ctx context.Context, action AuditAction, a *ScopedRoleAssignment, roleName, reason string) error {
	ac := GetAuditContext(ctx)
	entry := &AssignmentAuditLog{
		ID:          uuid.NewString(),
		Timestamp:   s.clock(),
		ActorID:     ac.ActorID,
		Action:      action,
		PrincipalID: a.PrincipalID,
		RoleName:    roleName,
		IsDeny:      a.IsDeny,
		Reason:      reason,
		IPAddress:   ac.IPAddress,
		UserAgent:   ac.UserAgent,
		RequestID:   ac.RequestID,
	}
	if a.ScopeEntityID != nil {
		entry.ScopeID = *a.ScopeEntityID
	}
	_, err := s.conn(ctx).NewInsert().Model(entry).Exec(ctx)
	return dbkit.WithErr1(err, "LogAssignmentAudit").Err()
}

// ============================================================================
// DELEGATION
// ============================================================================

type delegationAction int

const (
	delegationGrant delegationAction = iota
	delegationModify
	delegationRevoke
)

// checkDelegation enforces the guard for one assignment write. The actor
// must hold the delegate permission on the scope (any entity check for a
// scoped assignment, a global grant for a global one), and additionally one
// of: an explicit delegation rule from one of their live roles to the
// grantee role covering the action, a live role of strictly higher level
// than the grantee role, or a live role granting admin.
func (s *Service) checkDelegation(ctx context.Context, actorID string, granteeRole *Role, scopeEntityID *string, action delegationAction) error {
	snap, err := s.LoadSnapshot(ctx, "")
	if err != nil {
		return err
	}

	if scopeEntityID != nil {
		r := snap.checkGraph(actorID, *scopeEntityID, DelegatePermission, "")
		if !r.Allowed {
			return NewError(ErrCannotDelegate, "actor lacks delegate permission on scope").
				WithActor(actorID).WithRole(granteeRole.Name).WithEntity(*scopeEntityID)
		}
	} else {
		if !snap.hasGlobalPermission(actorID, DelegatePermission) {
			return NewError(ErrCannotDelegate, "actor lacks global delegate permission").
				WithActor(actorID).WithRole(granteeRole.Name)
		}
	}

	actorRoles := snap.liveRoleIDs(actorID)
	for _, roleID := range actorRoles {
		if snap.roleGrantsPermission(roleID, AdminPermission) {
			return nil
		}
		if r := snap.roles[roleID]; r != nil && r.Level > granteeRole.Level {
			return nil
		}
	}

	allowed, err := s.delegationRuleAllows(ctx, actorRoles, granteeRole.ID, action)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	return NewError(ErrCannotDelegate, "no delegation rule and no superior role").
		WithActor(actorID).WithRole(granteeRole.Name)
}

func (s *Service) delegationRuleAllows(ctx context.Context, granterRoleIDs []string, granteeRoleID string, action delegationAction) (bool, error) {
	if len(granterRoleIDs) == 0 {
		return false, nil
	}
	q := s.conn(ctx).NewSelect().
		Model((*DelegationRule)(nil)).
		Where("granter_role_id IN (?)", bun.In(granterRoleIDs)).
		Where("grantee_role_id = ?", granteeRoleID)
	switch action {
	case delegationGrant:
		q = q.Where("can_grant = true")
	case delegationModify:
		q = q.Where("can_modify = true")
	case delegationRevoke:
		q = q.Where("can_revoke = true")
	}
	count, err := q.Count(ctx)
	if err != nil {
		return false, dbkit.WithErr1(err, "DelegationRuleAllows").Err()
	}
	return count > 0, nil
}

// DefineDelegationRule allows holders of the granter role to manage the
// grantee role.
func (s *Service) DefineDelegationRule(ctx context.Context, rule DelegationRule) (*DelegationRule, error) {
	rule.ID = uuid.NewString()
	rule.CreatedAt = s.clock()
	if _, err := s.conn(ctx).NewInsert().Model(&rule).Exec(ctx); err != nil {
		return nil, dbkit.WithErr1(err, "DefineDelegationRule").Err()
	}
	return &rule, nil
}

// ListDelegationRules returns all delegation rules.
func (s *Service) ListDelegationRules(ctx context.Context) ([]DelegationRule, error) {
	var rules []DelegationRule
	err := s.conn(ctx).NewSelect().Model(&rules).Order("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "ListDelegationRules").Err()
	}
	return rules, nil
}

// DeleteDelegationRule removes a delegation rule.
func (s *Service) DeleteDelegationRule(ctx context.Context, ruleID string) error {
	result, err := s.conn(ctx).NewDelete().
		Model((*DelegationRule)(nil)).
		Where("id = ?", ruleID).
		Exec(ctx)
	return dbkit.WithErr(result, err, "DeleteDelegationRule").Err()
}
