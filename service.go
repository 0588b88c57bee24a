package gatekit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Service wraps the pure decision kernel with Postgres persistence through
// dbkit. Writes (entities, relationships, catalog, assignments, policies)
// are transactional; every decision loads a Snapshot inside a single
// read-only transaction so checks never observe a torn write.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping to provide
// detailed context about failed operations. Domain failures surface as
// gatekit sentinel errors (ErrEntityNotFound, ErrCannotDelegate, ...) that
// wrap cleanly through errors.Is.
//
// Example error handling:
//
//	_, err := service.AssignRole(ctx, input)
//	if err != nil {
//	    if gatekit.IsCannotDelegate(err) {
//	        // actor may not grant this role on this scope
//	    }
//	    if dbkit.IsDuplicate(err) {
//	        // equivalent active assignment already exists
//	    }
//	}
type Service struct {
	db      dbkit.IDB
	monitor *decisionMonitor

	// clock is overridable in tests; decisions evaluate at clock().
	clock func() time.Time

	// logDecisions controls decision_log writes. On by default.
	logDecisions bool
}

// NewService creates a new GateKit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := gatekit.NewService(db)
//	db.Migrate(ctx, gatekit.NewMigrationService(service).Migrations())
func NewService(db dbkit.IDB) *Service {
	return &Service{
		db:           db,
		monitor:      newDecisionMonitor(),
		clock:        time.Now,
		logDecisions: true,
	}
}

// WithClock overrides the evaluation clock. Intended for tests and for
// point-in-time audits ("what could this principal do last Tuesday").
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// WithoutDecisionLog disables decision_log writes for deployments that
// audit elsewhere.
func (s *Service) WithoutDecisionLog() *Service {
	s.logDecisions = false
	return s
}

// Metrics returns the decision metrics collected since the last reset.
func (s *Service) Metrics() DecisionMetrics {
	return s.monitor.getMetrics()
}

// ResetMetrics zeroes the decision metrics.
func (s *Service) ResetMetrics() {
	s.monitor.reset()
}

// ============================================================================
// DECISION FUNCTIONS
// ============================================================================

// CheckPermission decides whether a principal may perform a permission on an
// entity. The snapshot is loaded in a read-only transaction; the outcome is
// appended to the decision log and counted in the metrics.
func (s *Service) CheckPermission(ctx context.Context, principalID, entityID, permission, tenantID string) (CheckResult, error) {
	start := time.Now()
	var result CheckResult
	var graph CheckResult
	var outcome string

	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
		snap, err := s.LoadSnapshot(ctx, tenantID)
		if err != nil {
			return err
		}
		graph = snap.checkGraph(principalID, entityID, permission, tenantID)
		result, outcome = snap.applyPolicies(graph, principalID, entityID, permission, tenantID)
		return nil
	})
	if err != nil {
		return CheckResult{}, err
	}

	// The log write happens outside the read-only transaction, on the
	// service's root handle.
	if s.logDecisions {
		if err := s.logDecision(ctx, &DecisionLog{
			PrincipalID:  principalID,
			EntityID:     entityID,
			Permission:   permission,
			GraphResult:  graph.Allowed,
			PolicyResult: outcome,
			PolicyName:   result.PolicyName,
			FinalResult:  result.Allowed,
			RequestID:    GetRequestID(ctx),
		}); err != nil {
			return CheckResult{}, err
		}
	}

	s.monitor.recordCheck(time.Since(start), result, outcome)
	return result, nil
}

// CheckFieldPermission decides a permission on a named field of an entity.
func (s *Service) CheckFieldPermission(ctx context.Context, principalID, entityID, permission, fieldName, tenantID string) (CheckResult, error) {
	start := time.Now()
	var result CheckResult

	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
		snap, err := s.LoadSnapshot(ctx, tenantID)
		if err != nil {
			return err
		}
		result = snap.CheckFieldPermission(principalID, entityID, permission, fieldName, tenantID)
		return nil
	})
	if err != nil {
		return CheckResult{}, err
	}

	s.monitor.recordCheck(time.Since(start), result, PolicyOutcomeSkipped)
	return result, nil
}

// AccessibleEntities enumerates every entity the principal may access with
// the given permission.
func (s *Service) AccessibleEntities(ctx context.Context, principalID, permission, tenantID string) ([]AccessibleEntity, error) {
	var entities []AccessibleEntity
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
		snap, err := s.LoadSnapshot(ctx, tenantID)
		if err != nil {
			return err
		}
		entities = snap.AccessibleEntities(principalID, permission, tenantID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// CheckPermissionsBulk evaluates one permission against many entities on
// one snapshot. Each entity is decided independently.
func (s *Service) CheckPermissionsBulk(ctx context.Context, principalID string, entityIDs []string, permission, tenantID string) ([]BulkCheckResult, error) {
	var results []BulkCheckResult
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
		snap, err := s.LoadSnapshot(ctx, tenantID)
		if err != nil {
			return err
		}
		results = snap.CheckPermissionsBulk(principalID, entityIDs, permission, tenantID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ListAllPermissions reports every catalog permission's outcome for a
// principal on one entity.
func (s *Service) ListAllPermissions(ctx context.Context, principalID, entityID, tenantID string) ([]PermissionStatus, error) {
	var statuses []PermissionStatus
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
		snap, err := s.LoadSnapshot(ctx, tenantID)
		if err != nil {
			return err
		}
		statuses = snap.ListAllPermissions(principalID, entityID, tenantID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

// SimulateRoleChange reports the impact of replacing a role's grants,
// without writing anything.
func (s *Service) SimulateRoleChange(ctx context.Context, roleID string, proposed []GrantDefinition) (ImpactReport, error) {
	var report ImpactReport
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
		snap, err := s.LoadSnapshot(ctx, "")
		if err != nil {
			return err
		}
		report = snap.SimulateRoleChange(roleID, proposed)
		return nil
	})
	if err != nil {
		return ImpactReport{}, err
	}
	return report, nil
}

// RolePermissionMatrix reports which catalog permissions every role
// satisfies at entity level.
func (s *Service) RolePermissionMatrix(ctx context.Context) (map[string]map[string]bool, error) {
	var matrix map[string]map[string]bool
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
		snap, err := s.LoadSnapshot(ctx, "")
		if err != nil {
			return err
		}
		matrix = snap.RolePermissionMatrix()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matrix, nil
}

// ============================================================================
// DECISION LOG
// ============================================================================

func (s *Service) logDecision(ctx context.Context, entry *DecisionLog) error {
	entry.Timestamp = s.clock()
	_, err := s.conn(ctx).NewInsert().Model(entry).Exec(ctx)
	return dbkit.WithErr1(err, "LogDecision").Err()
}

// GetDecisionLog retrieves decision log entries with optional filters.
func (s *Service) GetDecisionLog(ctx context.Context, filter DecisionLogFilter) ([]DecisionLog, error) {
	var logs []DecisionLog
	q := s.conn(ctx).NewSelect().Model(&logs)
	if filter.PrincipalID != "" {
		q = q.Where("principal_id = ?", filter.PrincipalID)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Permission != "" {
		q = q.Where("permission = ?", filter.Permission)
	}
	if filter.OnlyDenied {
		q = q.Where("final_result = false")
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	if err := dbkit.WithErr1(q.Scan(ctx), "GetDecisionLog").Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetAuditLog retrieves assignment audit entries with optional filters.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AssignmentAuditLog, error) {
	var logs []AssignmentAuditLog
	q := s.conn(ctx).NewSelect().Model(&logs)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.PrincipalID != "" {
		q = q.Where("principal_id = ?", filter.PrincipalID)
	}
	if filter.RoleName != "" {
		q = q.Where("role_name = ?", filter.RoleName)
	}
	if filter.ScopeID != "" {
		q = q.Where("scope_id = ?", filter.ScopeID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	if err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
