package gatekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// HealthService exposes liveness and readiness information for the
// authorization store. It embeds Service, so one value serves both roles.
type HealthService struct {
	*Service
}

// NewHealthService creates a health service extension over an existing
// Service.
func NewHealthService(service *Service) *HealthService {
	return &HealthService{Service: service}
}

// Health reports the full dbkit health status (latency, pool statistics,
// last error) when the service holds a *dbkit.DBKit. Inside a transaction
// only a basic reachability probe is available.
func (hs *HealthService) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	return dbkit.HealthStatus{
		Healthy: hs.IsHealthy(ctx),
		Error:   "Limited health check - not a DBKit instance",
	}
}

// IsHealthy reports whether the store answers a trivial query.
func (hs *HealthService) IsHealthy(ctx context.Context) bool {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}

	var one int
	err := hs.db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &one)
	return err == nil
}

// Ready reports whether the store is usable for decisions: reachable,
// migrated, and holding a seeded permission catalog. A healthy but unseeded
// store answers every check with a deny, so deployments should gate traffic
// on readiness rather than liveness.
func (hs *HealthService) Ready(ctx context.Context) error {
	seeded, err := dbkit.Count[PermissionType](ctx, hs.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q
	})
	if err != nil {
		return dbkit.WithErr1(err, "Ready").Err()
	}
	if seeded == 0 {
		return NewError(ErrPermissionNotFound, "permission catalog is empty; run migrations and SeedCatalog")
	}
	return nil
}

// Ping issues a minimal connectivity probe and returns its error, if any.
func (hs *HealthService) Ping(ctx context.Context) error {
	var one int
	return hs.db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &one)
}
