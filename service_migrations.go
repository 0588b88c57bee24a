package gatekit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required for GateKit.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "gatekit-001",
			Description: "Create entity_classes table",
			SQL: `
                CREATE TABLE IF NOT EXISTS entity_classes (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL UNIQUE,
                    description TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "gatekit-002",
			Description: "Create entities table",
			SQL: `
                CREATE TABLE IF NOT EXISTS entities (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    class_id UUID NOT NULL REFERENCES entity_classes(id),
                    display_name TEXT NOT NULL,
                    parent_entity_id UUID REFERENCES entities(id),
                    tenant_id UUID,
                    attributes JSONB,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    deleted_at TIMESTAMPTZ
                );
                CREATE INDEX IF NOT EXISTS idx_entities_parent ON entities(parent_entity_id) WHERE deleted_at IS NULL;
                CREATE INDEX IF NOT EXISTS idx_entities_tenant ON entities(tenant_id) WHERE deleted_at IS NULL`,
		},
		{
			ID:          "gatekit-003",
			Description: "Create relationship_types and relationships tables",
			SQL: `
                CREATE TABLE IF NOT EXISTS relationship_types (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL UNIQUE,
                    description TEXT,
                    source_class_id UUID REFERENCES entity_classes(id),
                    target_class_id UUID REFERENCES entity_classes(id),
                    inherits_permissions BOOLEAN NOT NULL DEFAULT false,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE TABLE IF NOT EXISTS relationships (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    source_entity_id UUID NOT NULL REFERENCES entities(id),
                    target_entity_id UUID NOT NULL REFERENCES entities(id),
                    type_id UUID NOT NULL REFERENCES relationship_types(id),
                    metadata JSONB,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_entity_id);
                CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_entity_id)`,
		},
		{
			ID:          "gatekit-004",
			Description: "Create roles, permission_types and role_permissions tables",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL UNIQUE,
                    description TEXT,
                    level INTEGER NOT NULL DEFAULT 0,
                    tenant_id UUID,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE TABLE IF NOT EXISTS permission_types (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL UNIQUE,
                    description TEXT,
                    level INTEGER NOT NULL DEFAULT 0,
                    is_sensitive BOOLEAN NOT NULL DEFAULT false,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE TABLE IF NOT EXISTS role_permissions (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
                    permission TEXT NOT NULL,
                    field_name TEXT NOT NULL DEFAULT '',
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    UNIQUE (role_id, permission, field_name)
                )`,
		},
		{
			ID:          "gatekit-005",
			Description: "Create scoped_role_assignments table",
			SQL: `
                CREATE TABLE IF NOT EXISTS scoped_role_assignments (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    user_id TEXT NOT NULL,
                    role_id UUID NOT NULL REFERENCES roles(id),
                    scope_entity_id UUID REFERENCES entities(id),
                    valid_from TIMESTAMPTZ,
                    valid_until TIMESTAMPTZ,
                    schedule_cron TEXT NOT NULL DEFAULT '',
                    is_deny BOOLEAN NOT NULL DEFAULT false,
                    granted_by TEXT,
                    granted_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    revoked_at TIMESTAMPTZ,
                    revoked_by TEXT,
                    revoke_reason TEXT NOT NULL DEFAULT ''
                );
                CREATE UNIQUE INDEX IF NOT EXISTS uq_active_assignment
                    ON scoped_role_assignments (user_id, role_id, COALESCE(scope_entity_id, '00000000-0000-0000-0000-000000000000'::uuid), is_deny)
                    WHERE revoked_at IS NULL;
                CREATE INDEX IF NOT EXISTS idx_assignments_user ON scoped_role_assignments(user_id) WHERE revoked_at IS NULL;
                CREATE INDEX IF NOT EXISTS idx_assignments_scope ON scoped_role_assignments(scope_entity_id) WHERE revoked_at IS NULL`,
		},
		{
			ID:          "gatekit-006",
			Description: "Create policies table",
			SQL: `
                CREATE TABLE IF NOT EXISTS policies (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL,
                    description TEXT,
                    effect TEXT NOT NULL CHECK (effect IN ('ALLOW', 'DENY')),
                    priority INTEGER NOT NULL DEFAULT 0,
                    target_class_id UUID REFERENCES entity_classes(id),
                    target_permissions TEXT[] NOT NULL DEFAULT '{}',
                    conditions JSONB,
                    scope_entity_id UUID REFERENCES entities(id),
                    tenant_id UUID,
                    is_active BOOLEAN NOT NULL DEFAULT true,
                    valid_from TIMESTAMPTZ,
                    valid_until TIMESTAMPTZ,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    created_by TEXT,
                    updated_at TIMESTAMPTZ,
                    updated_by TEXT
                );
                CREATE INDEX IF NOT EXISTS idx_policies_active ON policies(priority DESC) WHERE is_active = true`,
		},
		{
			ID:          "gatekit-007",
			Description: "Create role_delegation_rules table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_delegation_rules (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    granter_role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
                    grantee_role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
                    can_grant BOOLEAN NOT NULL DEFAULT false,
                    can_modify BOOLEAN NOT NULL DEFAULT false,
                    can_revoke BOOLEAN NOT NULL DEFAULT false,
                    tenant_id UUID,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    UNIQUE (granter_role_id, grantee_role_id)
                )`,
		},
		{
			ID:          "gatekit-008",
			Description: "Create assignment_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS assignment_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    action TEXT NOT NULL,
                    principal_id TEXT NOT NULL,
                    role_name TEXT NOT NULL,
                    scope_id TEXT,
                    is_deny BOOLEAN NOT NULL DEFAULT false,
                    reason TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT
                );
                CREATE INDEX IF NOT EXISTS idx_assignment_audit_principal ON assignment_audit_log(principal_id)`,
		},
		{
			ID:          "gatekit-009",
			Description: "Create decision_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS decision_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    principal_id TEXT NOT NULL,
                    entity_id UUID NOT NULL,
                    permission TEXT NOT NULL,
                    graph_result BOOLEAN NOT NULL,
                    policy_result TEXT NOT NULL,
                    policy_name TEXT,
                    final_result BOOLEAN NOT NULL,
                    request_id TEXT
                );
                CREATE INDEX IF NOT EXISTS idx_decision_log_principal ON decision_log(principal_id, timestamp DESC)`,
		},
	}
}
