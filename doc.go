// Package gatekit provides a graph-based authorization kernel over an entity
// graph stored in Postgres.
//
// GateKit answers one question, "may this principal perform this permission
// on this entity, and why?", and its inverse: "which entities may this
// principal access?". The decision combines hierarchical inheritance along
// parent links, relationship-driven inheritance across a general graph,
// temporal validity windows, recurring schedule windows, explicit deny
// grants that always win, a numeric permission-level hierarchy, tenant
// isolation, and a prioritized attribute-condition policy overlay.
//
// # Core Concepts
//
// Entity: a node in the graph with a class, an optional parent, an optional
// tenant, and an attribute bag. Entities form a tree via parent links and a
// general graph via typed relationships.
//
// Relationship: a directed edge between entities. Relationship types marked
// with InheritsPermissions participate in permission propagation: an edge
// source -> target means grants on target also apply to source.
//
// Scoped assignment: a binding of (principal, role, scope entity or global)
// with an optional validity window, an optional recurring cron schedule, and
// a polarity flag. A deny assignment that matches always produces a deny,
// no matter how many allows matched elsewhere.
//
// Permission levels: permission types carry an integer level. Holding a
// higher-level permission on a scope implies all lower-level ones, and the
// distinguished "admin" permission implies everything.
//
// Policy overlay: prioritized ALLOW/DENY rules with attribute conditions,
// evaluated after the role graph. A matching DENY rule overrides a
// role-graph allow; a matching ALLOW rule never overrides a role-graph deny.
//
// # Two Layers
//
// The kernel itself is pure: a Snapshot holds read-only collections captured
// at a fixed evaluation time, and every decision function is a side-effect
// free method on *Snapshot. The Service wraps the kernel with Postgres
// persistence through dbkit, loading a Snapshot inside a single read-only
// transaction per decision so a check never observes a torn write.
//
// # Basic Usage
//
//	// 1. Define the catalog (at application startup)
//	catalog := gatekit.NewCatalog().
//	    Permission("discover", 10).
//	    Permission("read", 20).
//	    Permission("update", 40).
//	    Permission("delegate", 60).
//	    Permission("admin", 100).
//	    Role("viewer", 10).Grants("read", "discover").
//	    Role("editor", 40).Grants("update").
//	    Role("owner", 100).Grants("admin")
//
//	// 2. Create the service and run migrations
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := gatekit.NewService(db)
//	db.Migrate(ctx, gatekit.NewMigrationService(service).Migrations())
//	service.SeedCatalog(ctx, catalog)
//
//	// 3. Build the graph and assign roles
//	org, _ := service.CreateEntity(ctx, gatekit.CreateEntityInput{ClassName: "organization", DisplayName: "Acme"})
//	proj, _ := service.CreateEntity(ctx, gatekit.CreateEntityInput{ClassName: "project", DisplayName: "Apollo", ParentEntityID: &org.ID})
//	service.AssignRole(ctx, gatekit.AssignRoleInput{PrincipalID: userID, RoleName: "editor", ScopeEntityID: &org.ID})
//
//	// 4. Check permissions
//	result, _ := service.CheckPermission(ctx, userID, proj.ID, "read", "")
//	if result.Allowed {
//	    // granted via the org-scoped editor role, result.Inherited == true
//	}
//
// # Decision Order
//
// For a single check the kernel:
//
//  1. Computes the ancestor closure of the target (parent links plus
//     outbound inheritance-carrying edges, cycle-safe, tenant-filtered).
//  2. Selects the principal's assignments that are unrevoked, temporally
//     valid, within their schedule window, and scoped globally or inside
//     the closure.
//  3. Matches each assignment's role grants against the requested
//     permission: exact name, level dominance, or admin.
//  4. Combines: any deny wins; otherwise any allow wins, with provenance
//     from the most specific granting scope; otherwise default deny.
//  5. Runs the policy overlay: the first matching rule (priority order,
//     DENY before ALLOW) can only restrict, never extend, the role-graph
//     result.
//
// # Reverse Discovery
//
//	entities, _ := service.AccessibleEntities(ctx, userID, "read", "")
//	for _, e := range entities {
//	    // e.AccessType is "direct" (assignment on the entity itself or a
//	    // global grant) or "inherited" (reached through the graph)
//	}
//
// # Audit
//
// Every service-level decision appends a decision_log row with the
// role-graph result, the policy result, and the final outcome. Assignment
// writes are audited with actor, previous state, and request metadata drawn
// from the context helpers.
package gatekit
