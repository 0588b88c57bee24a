package gatekit

import (
	"sort"
)

// AccessibleEntities enumerates every non-deleted entity the principal may
// access with the given permission, each tagged direct or inherited.
//
// Seeds are the scopes of the principal's live, matching allow assignments.
// A global grant expands to the whole tenant-filtered universe as direct
// access. A scoped grant marks its scope direct and then walks downward
// (child links and inbound inheritance-carrying edges) marking descendants
// inherited. A matching deny scoped to a node halts propagation through
// that node: the node and anything reachable only through it drop out, but
// entities already reached by another path keep their access. A matching
// global deny empties the result entirely.
func (s *Snapshot) AccessibleEntities(principalID, permission, tenantID string) []AccessibleEntity {
	var (
		globalAllow bool
		globalDeny  bool
		seedScopes  []string
		denyScopes  = make(map[string]bool)
	)

	for _, a := range s.assignments[principalID] {
		if !a.ActiveAt(s.Now) {
			continue
		}
		if !s.roleGrantsPermission(a.RoleID, permission) {
			continue
		}
		// scopeOf resolves dangling scope references to global, so a deny
		// whose scope entity is gone still blanks the result.
		scope := s.scopeOf(a)
		switch {
		case a.IsDeny && scope == "":
			globalDeny = true
		case a.IsDeny:
			denyScopes[scope] = true
		case scope == "":
			globalAllow = true
		default:
			seedScopes = append(seedScopes, scope)
		}
	}

	if globalDeny {
		return nil
	}

	access := make(map[string]string)

	if globalAllow {
		for id, e := range s.entities {
			if e.Deleted() || !s.sameTenant(e, tenantID) || denyScopes[id] {
				continue
			}
			access[id] = AccessDirect
		}
	}

	for _, seed := range seedScopes {
		s.expandSeed(seed, tenantID, denyScopes, access)
	}

	results := make([]AccessibleEntity, 0, len(access))
	for id, accessType := range access {
		e := s.entities[id]
		results = append(results, AccessibleEntity{
			EntityID:    id,
			DisplayName: e.DisplayName,
			ClassID:     e.ClassID,
			AccessType:  accessType,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].DisplayName != results[j].DisplayName {
			return results[i].DisplayName < results[j].DisplayName
		}
		return results[i].EntityID < results[j].EntityID
	})
	return results
}

// expandSeed marks a granting scope direct and its downward closure
// inherited, refusing to enter denied nodes. Direct access won on one path
// is never downgraded by an inherited visit on another.
func (s *Snapshot) expandSeed(seedID, tenantID string, denyScopes map[string]bool, access map[string]string) {
	seed := s.Entity(seedID)
	if seed == nil || !s.sameTenant(seed, tenantID) || denyScopes[seedID] {
		return
	}

	access[seedID] = AccessDirect
	visited := map[string]bool{seedID: true}
	queue := []string{seedID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		next := append(append([]string(nil), s.children[current]...), s.inboundInherit[current]...)
		for _, nextID := range next {
			if visited[nextID] {
				continue
			}
			visited[nextID] = true
			e := s.Entity(nextID)
			if e == nil || !s.sameTenant(e, tenantID) || denyScopes[nextID] {
				continue
			}
			if access[nextID] != AccessDirect {
				access[nextID] = AccessInherited
			}
			queue = append(queue, nextID)
		}
	}
}
