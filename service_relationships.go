package gatekit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
)

// ============================================================================
// RELATIONSHIP TYPES
// ============================================================================

// DefineRelationshipTypeInput carries the fields for a new relationship
// type. InheritsPermissions decides whether edges of this type participate
// in permission propagation at all.
type DefineRelationshipTypeInput struct {
	Name                string
	Description         string
	SourceClassID       *string
	TargetClassID       *string
	InheritsPermissions bool
}

// DefineRelationshipType creates a relationship type, or returns the
// existing one with the same name.
func (s *Service) DefineRelationshipType(ctx context.Context, input DefineRelationshipTypeInput) (*RelationshipType, error) {
	rt := &RelationshipType{
		ID:                  uuid.NewString(),
		Name:                input.Name,
		Description:         input.Description,
		SourceClassID:       input.SourceClassID,
		TargetClassID:       input.TargetClassID,
		InheritsPermissions: input.InheritsPermissions,
	}
	_, err := s.conn(ctx).NewInsert().
		Model(rt).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "DefineRelationshipType").Err()
	}
	return s.GetRelationshipTypeByName(ctx, input.Name)
}

// GetRelationshipTypeByName returns a relationship type by name.
func (s *Service) GetRelationshipTypeByName(ctx context.Context, name string) (*RelationshipType, error) {
	rt := new(RelationshipType)
	err := s.conn(ctx).NewSelect().Model(rt).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewError(ErrRelationshipTypeNotFound, name)
	}
	if err != nil {
		return nil, dbkit.WithErr1(err, "GetRelationshipTypeByName").Err()
	}
	return rt, nil
}

// ListRelationshipTypes returns all relationship types ordered by name.
func (s *Service) ListRelationshipTypes(ctx context.Context) ([]RelationshipType, error) {
	var types []RelationshipType
	err := s.conn(ctx).NewSelect().Model(&types).Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "ListRelationshipTypes").Err()
	}
	return types, nil
}

// ============================================================================
// RELATIONSHIPS
// ============================================================================

// CreateRelationshipInput carries the fields for a new edge. TypeName is
// resolved against the defined relationship types.
type CreateRelationshipInput struct {
	SourceEntityID string
	TargetEntityID string
	TypeName       string
	Metadata       map[string]any
}

// CreateRelationship creates a directed edge between two existing entities.
// For an inheritance-carrying type, source -> target means permissions
// granted on the target also apply to the source. The type's class
// restrictions, when set, are enforced.
func (s *Service) CreateRelationship(ctx context.Context, input CreateRelationshipInput) (*Relationship, error) {
	rt, err := s.GetRelationshipTypeByName(ctx, input.TypeName)
	if err != nil {
		return nil, err
	}
	source, err := s.GetEntity(ctx, input.SourceEntityID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetEntity(ctx, input.TargetEntityID)
	if err != nil {
		return nil, err
	}
	if rt.SourceClassID != nil && *rt.SourceClassID != source.ClassID {
		return nil, NewError(ErrRelationshipTypeNotFound,
			"source entity class not allowed for relationship type "+rt.Name).
			WithEntity(source.ID)
	}
	if rt.TargetClassID != nil && *rt.TargetClassID != target.ClassID {
		return nil, NewError(ErrRelationshipTypeNotFound,
			"target entity class not allowed for relationship type "+rt.Name).
			WithEntity(target.ID)
	}

	r := &Relationship{
		ID:             uuid.NewString(),
		SourceEntityID: input.SourceEntityID,
		TargetEntityID: input.TargetEntityID,
		TypeID:         rt.ID,
		Metadata:       input.Metadata,
		CreatedAt:      s.clock(),
	}
	_, err = s.conn(ctx).NewInsert().Model(r).Exec(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "CreateRelationship").Err()
	}
	return r, nil
}

// DeleteRelationship removes an edge by ID.
func (s *Service) DeleteRelationship(ctx context.Context, relationshipID string) error {
	result, err := s.conn(ctx).NewDelete().
		Model((*Relationship)(nil)).
		Where("id = ?", relationshipID).
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "DeleteRelationship").Err(); err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return NewError(ErrRelationshipTypeNotFound, "relationship "+relationshipID)
	}
	return nil
}

// ListRelationships returns edges touching an entity, in either direction.
func (s *Service) ListRelationships(ctx context.Context, entityID string) ([]Relationship, error) {
	var relationships []Relationship
	err := s.conn(ctx).NewSelect().
		Model(&relationships).
		Where("source_entity_id = ? OR target_entity_id = ?", entityID, entityID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, dbkit.WithErr1(err, "ListRelationships").Err()
	}
	return relationships, nil
}
