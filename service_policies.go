package gatekit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
)

// ============================================================================
// POLICIES
// ============================================================================

// CreatePolicyInput carries the fields for a new policy. Conditions is the
// JSON condition document; it is parsed and validated before the write so a
// malformed document never reaches the overlay.
type CreatePolicyInput struct {
	Name              string
	Description       string
	Effect            PolicyEffect
	Priority          int
	TargetClassID     *string
	TargetPermissions []string
	Conditions        json.RawMessage
	ScopeEntityID     *string
	TenantID          *string
	ValidFrom         *time.Time
	ValidUntil        *time.Time
}

// CreatePolicy creates an active policy.
func (s *Service) CreatePolicy(ctx context.Context, input CreatePolicyInput) (*Policy, error) {
	if _, err := ParseConditions(input.Conditions); err != nil {
		return nil, err
	}
	if input.ScopeEntityID != nil {
		if _, err := s.GetEntity(ctx, *input.ScopeEntityID); err != nil {
			return nil, err
		}
	}

	actorID := GetActorID(ctx)
	policy := &Policy{
		ID:                uuid.NewString(),
		Name:              input.Name,
		Description:       input.Description,
		Effect:            input.Effect,
		Priority:          input.Priority,
		TargetClassID:     input.TargetClassID,
		TargetPermissions: input.TargetPermissions,
		Conditions:        input.Conditions,
		ScopeEntityID:     input.ScopeEntityID,
		TenantID:          input.TenantID,
		Active:            true,
		ValidFrom:         input.ValidFrom,
		ValidUntil:        input.ValidUntil,
		CreatedAt:         s.clock(),
	}
	if actorID != "" {
		policy.CreatedBy = &actorID
	}

	if _, err := s.conn(ctx).NewInsert().Model(policy).Exec(ctx); err != nil {
		return nil, dbkit.WithErr1(err, "CreatePolicy").Err()
	}
	return policy, nil
}

// GetPolicy returns a policy by ID.
func (s *Service) GetPolicy(ctx context.Context, policyID string) (*Policy, error) {
	policy := new(Policy)
	err := s.conn(ctx).NewSelect().Model(policy).Where("id = ?", policyID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewError(ErrPolicyNotFound, policyID)
	}
	if err != nil {
		return nil, dbkit.WithErr1(err, "GetPolicy").Err()
	}
	return policy, nil
}

// UpdatePolicyInput carries updatable policy fields. Nil fields are left
// unchanged.
type UpdatePolicyInput struct {
	Description       *string
	Priority          *int
	TargetPermissions []string
	Conditions        json.RawMessage
	Active            *bool
	ValidFrom         *time.Time
	ValidUntil        *time.Time
}

// UpdatePolicy updates a policy in place.
func (s *Service) UpdatePolicy(ctx context.Context, policyID string, input UpdatePolicyInput) (*Policy, error) {
	policy, err := s.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if input.Conditions != nil {
		if _, err := ParseConditions(input.Conditions); err != nil {
			return nil, err
		}
		policy.Conditions = input.Conditions
	}
	if input.Description != nil {
		policy.Description = *input.Description
	}
	if input.Priority != nil {
		policy.Priority = *input.Priority
	}
	if input.TargetPermissions != nil {
		policy.TargetPermissions = input.TargetPermissions
	}
	if input.Active != nil {
		policy.Active = *input.Active
	}
	if input.ValidFrom != nil {
		policy.ValidFrom = input.ValidFrom
	}
	if input.ValidUntil != nil {
		policy.ValidUntil = input.ValidUntil
	}

	now := s.clock()
	policy.UpdatedAt = &now
	if actorID := GetActorID(ctx); actorID != "" {
		policy.UpdatedBy = &actorID
	}

	_, err = s.conn(ctx).NewUpdate().
		Model(policy).
		Column("description", "priority", "target_permissions", "conditions",
			"is_active", "valid_from", "valid_until", "updated_at", "updated_by").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "UpdatePolicy").Err()
	}
	return policy, nil
}

// DeactivatePolicy turns a policy off without deleting it.
func (s *Service) DeactivatePolicy(ctx context.Context, policyID string) error {
	active := false
	_, err := s.UpdatePolicy(ctx, policyID, UpdatePolicyInput{Active: &active})
	return err
}

// DeletePolicy removes a policy permanently. Prefer DeactivatePolicy when
// history matters.
func (s *Service) DeletePolicy(ctx context.Context, policyID string) error {
	result, err := s.conn(ctx).NewDelete().
		Model((*Policy)(nil)).
		Where("id = ?", policyID).
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "DeletePolicy").Err(); err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return NewError(ErrPolicyNotFound, policyID)
	}
	return nil
}

// ListPolicies returns policies matching the filter, evaluation order
// first (priority descending, DENY before ALLOW).
func (s *Service) ListPolicies(ctx context.Context, filter PolicyFilter) ([]Policy, error) {
	var policies []Policy
	q := s.conn(ctx).NewSelect().Model(&policies)
	if !filter.IncludeInactive {
		q = q.Where("is_active = true")
	}
	if filter.Effect != "" {
		q = q.Where("effect = ?", filter.Effect)
	}
	if filter.TargetPermission != "" {
		q = q.Where("target_permissions = '{}' OR ? = ANY(target_permissions)", filter.TargetPermission)
	}
	if filter.ScopeEntityID != "" {
		q = q.Where("scope_entity_id = ?", filter.ScopeEntityID)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	// effect DESC puts DENY before ALLOW, matching evaluation order.
	q = q.Order("priority DESC", "effect DESC", "name ASC")
	if err := dbkit.WithErr1(q.Scan(ctx), "ListPolicies").Err(); err != nil {
		return nil, err
	}
	return policies, nil
}
