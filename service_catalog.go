package gatekit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ============================================================================
// CATALOG SEEDING
// ============================================================================

// SeedCatalog writes a validated catalog into the database, idempotently.
// Permission levels and role grant sets converge on the catalog's content:
// existing rows are updated, missing rows are created, and grants not in
// the catalog are removed. Runs in one transaction.
func (s *Service) SeedCatalog(ctx context.Context, catalog *Catalog) error {
	if err := catalog.Validate(); err != nil {
		return err
	}

	return s.Transaction(ctx, func(ctx context.Context) error {
		for _, pt := range catalog.permissionTypes() {
			pt.ID = uuid.NewString()
			_, err := s.conn(ctx).NewInsert().
				Model(pt).
				On("CONFLICT (name) DO UPDATE").
				Set("level = EXCLUDED.level").
				Set("description = EXCLUDED.description").
				Set("is_sensitive = EXCLUDED.is_sensitive").
				Exec(ctx)
			if err != nil {
				return dbkit.WithErr1(err, "SeedCatalog.permission").Err()
			}
		}

		for _, def := range catalog.roleDefinitions() {
			role := &Role{
				ID:          uuid.NewString(),
				Name:        def.name,
				Description: def.description,
				Level:       def.level,
			}
			_, err := s.conn(ctx).NewInsert().
				Model(role).
				On("CONFLICT (name) DO UPDATE").
				Set("level = EXCLUDED.level").
				Set("description = EXCLUDED.description").
				Exec(ctx)
			if err != nil {
				return dbkit.WithErr1(err, "SeedCatalog.role").Err()
			}

			stored, err := s.GetRoleByName(ctx, def.name)
			if err != nil {
				return err
			}
			if err := s.replaceRoleGrants(ctx, stored.ID, def.grants); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) replaceRoleGrants(ctx context.Context, roleID string, grants []GrantDefinition) error {
	_, err := s.conn(ctx).NewDelete().
		Model((*RoleGrant)(nil)).
		Where("role_id = ?", roleID).
		Exec(ctx)
	if err != nil {
		return dbkit.WithErr1(err, "ReplaceRoleGrants.delete").Err()
	}

	if len(grants) == 0 {
		return nil
	}
	rows := make([]*RoleGrant, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, &RoleGrant{
			ID:         uuid.NewString(),
			RoleID:     roleID,
			Permission: g.Permission,
			FieldName:  g.FieldName,
		})
	}
	_, err = s.conn(ctx).NewInsert().Model(&rows).Exec(ctx)
	return dbkit.WithErr1(err, "ReplaceRoleGrants.insert").Err()
}

// ============================================================================
// CATALOG QUERIES
// ============================================================================

// GetRoleByName returns a role by name.
func (s *Service) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	role := new(Role)
	err := s.conn(ctx).NewSelect().Model(role).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewError(ErrRoleNotFound, name).WithRole(name)
	}
	if err != nil {
		return nil, dbkit.WithErr1(err, "GetRoleByName").Err()
	}
	return role, nil
}

// ListRoles returns all roles ordered by descending level, then name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := s.conn(ctx).NewSelect().Model(&roles).Order("level DESC", "name ASC").Scan(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "ListRoles").Err()
	}
	return roles, nil
}

// ListPermissionTypes returns all permission types ordered by descending
// level, then name.
func (s *Service) ListPermissionTypes(ctx context.Context) ([]PermissionType, error) {
	var permissions []PermissionType
	err := s.conn(ctx).NewSelect().Model(&permissions).Order("level DESC", "name ASC").Scan(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "ListPermissionTypes").Err()
	}
	return permissions, nil
}

// GetRoleGrants returns the grant rows of a role.
func (s *Service) GetRoleGrants(ctx context.Context, roleID string) ([]RoleGrant, error) {
	var grants []RoleGrant
	err := s.conn(ctx).NewSelect().
		Model(&grants).
		Where("role_id = ?", roleID).
		Order("permission ASC", "field_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "GetRoleGrants").Err()
	}
	return grants, nil
}

// UpdateRoleGrants replaces a role's grant set. Use SimulateRoleChange
// first to preview who gains or loses what.
func (s *Service) UpdateRoleGrants(ctx context.Context, roleID string, grants []GrantDefinition) error {
	exists, err := dbkit.Exists[Role](ctx, s.conn(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", roleID)
	})
	if err != nil {
		return dbkit.WithErr1(err, "UpdateRoleGrants").Err()
	}
	if !exists {
		return NewError(ErrRoleNotFound, roleID)
	}
	return s.Transaction(ctx, func(ctx context.Context) error {
		return s.replaceRoleGrants(ctx, roleID, grants)
	})
}
