package gatekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// LoadSnapshot reads every collection the kernel needs and builds a
// Snapshot evaluated at the service clock. Callers wanting consistency run
// it inside ReadOnlyTransaction; the decision wrappers do.
//
// The tenant filter is applied again at traversal time; here it only prunes
// the load. Entities and policies with a NULL tenant are shared and always
// loaded.
func (s *Service) LoadSnapshot(ctx context.Context, tenantID string) (*Snapshot, error) {
	var in SnapshotInput

	q := s.conn(ctx).NewSelect().Model(&in.Entities)
	if tenantID != "" {
		q = q.Where("tenant_id IS NULL OR tenant_id = ?", tenantID)
	}
	if err := dbkit.WithErr1(q.Scan(ctx), "LoadSnapshot.entities").Err(); err != nil {
		return nil, err
	}

	if err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&in.Classes).Scan(ctx), "LoadSnapshot.classes").Err(); err != nil {
		return nil, err
	}
	if err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&in.RelationshipTypes).Scan(ctx), "LoadSnapshot.relationship_types").Err(); err != nil {
		return nil, err
	}
	if err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&in.Relationships).Scan(ctx), "LoadSnapshot.relationships").Err(); err != nil {
		return nil, err
	}
	if err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&in.Roles).Scan(ctx), "LoadSnapshot.roles").Err(); err != nil {
		return nil, err
	}
	if err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&in.Grants).Scan(ctx), "LoadSnapshot.role_permissions").Err(); err != nil {
		return nil, err
	}
	if err := dbkit.WithErr1(s.conn(ctx).NewSelect().Model(&in.Permissions).Scan(ctx), "LoadSnapshot.permission_types").Err(); err != nil {
		return nil, err
	}

	aq := s.conn(ctx).NewSelect().Model(&in.Assignments).Where("revoked_at IS NULL")
	if err := dbkit.WithErr1(aq.Scan(ctx), "LoadSnapshot.assignments").Err(); err != nil {
		return nil, err
	}

	pq := s.conn(ctx).NewSelect().Model(&in.Policies).Where("is_active = true")
	if tenantID != "" {
		pq = pq.Where("tenant_id IS NULL OR tenant_id = ?", tenantID)
	}
	if err := dbkit.WithErr1(pq.Scan(ctx), "LoadSnapshot.policies").Err(); err != nil {
		return nil, err
	}

	return NewSnapshot(s.clock(), in), nil
}
