package gatekit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
)

// ============================================================================
// ENTITY CLASSES
// ============================================================================

// DefineClass creates an entity class, or returns the existing one with the
// same name.
func (s *Service) DefineClass(ctx context.Context, name, description string) (*EntityClass, error) {
	class := &EntityClass{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}
	_, err := s.conn(ctx).NewInsert().
		Model(class).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "DefineClass").Err()
	}
	return s.GetClassByName(ctx, name)
}

// GetClassByName returns an entity class by name.
func (s *Service) GetClassByName(ctx context.Context, name string) (*EntityClass, error) {
	class := new(EntityClass)
	err := s.conn(ctx).NewSelect().Model(class).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewError(ErrClassNotFound, name)
	}
	if err != nil {
		return nil, dbkit.WithErr1(err, "GetClassByName").Err()
	}
	return class, nil
}

// ListClasses returns all entity classes ordered by name.
func (s *Service) ListClasses(ctx context.Context) ([]EntityClass, error) {
	var classes []EntityClass
	err := s.conn(ctx).NewSelect().Model(&classes).Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "ListClasses").Err()
	}
	return classes, nil
}

// ============================================================================
// ENTITIES
// ============================================================================

// CreateEntityInput carries the fields for a new entity. ClassName is
// resolved against the defined classes; unknown names fail with
// ErrClassNotFound.
type CreateEntityInput struct {
	ClassName      string
	DisplayName    string
	ParentEntityID *string
	TenantID       *string
	Attributes     map[string]any
}

// CreateEntity creates an entity. The parent, when given, must exist and
// not be deleted.
func (s *Service) CreateEntity(ctx context.Context, input CreateEntityInput) (*Entity, error) {
	class, err := s.GetClassByName(ctx, input.ClassName)
	if err != nil {
		return nil, err
	}
	if input.ParentEntityID != nil {
		if _, err := s.GetEntity(ctx, *input.ParentEntityID); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	entity := &Entity{
		ID:             uuid.NewString(),
		ClassID:        class.ID,
		DisplayName:    input.DisplayName,
		ParentEntityID: input.ParentEntityID,
		TenantID:       input.TenantID,
		Attributes:     input.Attributes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err = s.conn(ctx).NewInsert().Model(entity).Exec(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "CreateEntity").Err()
	}
	return entity, nil
}

// GetEntity returns a non-deleted entity by ID.
func (s *Service) GetEntity(ctx context.Context, entityID string) (*Entity, error) {
	entity := new(Entity)
	err := s.conn(ctx).NewSelect().
		Model(entity).
		Where("id = ?", entityID).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewError(ErrEntityNotFound, entityID).WithEntity(entityID)
	}
	if err != nil {
		return nil, dbkit.WithErr1(err, "GetEntity").Err()
	}
	return entity, nil
}

// UpdateEntityInput carries updatable entity fields. Nil fields are left
// unchanged; a non-nil Attributes replaces the whole attribute bag.
type UpdateEntityInput struct {
	DisplayName *string
	Attributes  map[string]any
}

// UpdateEntity updates an entity's display name and attributes.
func (s *Service) UpdateEntity(ctx context.Context, entityID string, input UpdateEntityInput) (*Entity, error) {
	entity, err := s.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if input.DisplayName != nil {
		entity.DisplayName = *input.DisplayName
	}
	if input.Attributes != nil {
		entity.Attributes = input.Attributes
	}
	entity.UpdatedAt = s.clock()

	_, err = s.conn(ctx).NewUpdate().
		Model(entity).
		Column("display_name", "attributes", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "UpdateEntity").Err()
	}
	return entity, nil
}

// ReparentEntity moves an entity under a new parent (nil detaches it to a
// root). Rejects moves that would make the entity its own ancestor.
func (s *Service) ReparentEntity(ctx context.Context, entityID string, newParentID *string) error {
	entity, err := s.GetEntity(ctx, entityID)
	if err != nil {
		return err
	}

	if newParentID != nil {
		parent, err := s.GetEntity(ctx, *newParentID)
		if err != nil {
			return err
		}
		// Walk the would-be ancestor chain. Bounded by a visited set so a
		// concurrently corrupted chain cannot hang the write.
		visited := map[string]bool{}
		current := parent
		for current != nil {
			if current.ID == entityID {
				return NewError(ErrEntityCycle,
					fmt.Sprintf("entity %s would become its own ancestor", entityID)).
					WithEntity(entityID)
			}
			if visited[current.ID] || current.ParentEntityID == nil {
				break
			}
			visited[current.ID] = true
			current, err = s.GetEntity(ctx, *current.ParentEntityID)
			if err != nil && !IsNotFound(err) {
				return err
			}
			if IsNotFound(err) {
				break
			}
		}
	}

	entity.ParentEntityID = newParentID
	entity.UpdatedAt = s.clock()
	_, err = s.conn(ctx).NewUpdate().
		Model(entity).
		Column("parent_entity_id", "updated_at").
		WherePK().
		Exec(ctx)
	return dbkit.WithErr1(err, "ReparentEntity").Err()
}

// DeleteEntity soft-deletes an entity. The row is kept; every traversal
// excludes it from then on, so descendants stop inheriting through it.
func (s *Service) DeleteEntity(ctx context.Context, entityID string) error {
	now := s.clock()
	result, err := s.conn(ctx).NewUpdate().
		Model((*Entity)(nil)).
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", entityID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "DeleteEntity").Err(); err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return NewError(ErrEntityNotFound, entityID).WithEntity(entityID)
	}
	return nil
}

// RestoreEntity clears an entity's soft-delete marker.
func (s *Service) RestoreEntity(ctx context.Context, entityID string) error {
	result, err := s.conn(ctx).NewUpdate().
		Model((*Entity)(nil)).
		Set("deleted_at = NULL").
		Set("updated_at = ?", s.clock()).
		Where("id = ?", entityID).
		Where("deleted_at IS NOT NULL").
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "RestoreEntity").Err(); err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return NewError(ErrEntityNotFound, entityID).WithEntity(entityID)
	}
	return nil
}

// ListEntities returns non-deleted entities matching the filter, ordered by
// display name.
func (s *Service) ListEntities(ctx context.Context, filter EntityFilter) ([]Entity, error) {
	var entities []Entity
	q := s.conn(ctx).NewSelect().Model(&entities).Where("deleted_at IS NULL")
	if filter.ClassID != "" {
		q = q.Where("class_id = ?", filter.ClassID)
	}
	if filter.ParentEntityID != "" {
		q = q.Where("parent_entity_id = ?", filter.ParentEntityID)
	}
	if filter.TenantID != "" {
		q = q.Where("tenant_id IS NULL OR tenant_id = ?", filter.TenantID)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("display_name ASC")
	if err := dbkit.WithErr1(q.Scan(ctx), "ListEntities").Err(); err != nil {
		return nil, err
	}
	return entities, nil
}
