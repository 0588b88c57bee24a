package gatekit

// globalDepth is the specificity assigned to global-scope assignments. Any
// scoped assignment inside a closure is more specific than a global one;
// closures are far shallower than this in practice.
const globalDepth = 1000

// closure is a set of entity IDs with the depth at which each was first
// reached from the seed. Depth zero is the seed itself.
type closure struct {
	depth map[string]int
	order []string // BFS discovery order, seed first
}

func (c *closure) contains(id string) bool {
	_, ok := c.depth[id]
	return ok
}

// depthOf returns the traversal depth of a scope entity, or globalDepth for
// an empty or unknown scope. Malformed scope references degrade to global
// rather than failing the check.
func (c *closure) depthOf(scopeID string) int {
	if scopeID == "" {
		return globalDepth
	}
	if d, ok := c.depth[scopeID]; ok {
		return d
	}
	return globalDepth
}

// AncestorClosure walks upward from the entity: parent links plus outbound
// inheritance-carrying edges (an edge source -> target extends grants on the
// target to the source, so the upward walk from the source crosses to the
// target). The walk is breadth-first with a visited set, so cyclic graphs
// terminate and each entity keeps its minimum depth. Deleted entities and
// entities outside the tenant are not entered. A deleted or unknown seed
// yields an empty closure, which downstream resolves to the default deny.
func (s *Snapshot) AncestorClosure(entityID, tenantID string) *closure {
	return s.walk(entityID, tenantID, func(id string) []string {
		var next []string
		if e := s.entities[id]; e != nil && e.ParentEntityID != nil {
			next = append(next, *e.ParentEntityID)
		}
		return append(next, s.outboundInherit[id]...)
	})
}

// DescendantClosure is the mirror of AncestorClosure: child links plus
// inbound inheritance-carrying edges (the sources of edges pointing at the
// seed inherit from it). Used by the accessible-entity enumerator to expand
// a granting scope downward.
func (s *Snapshot) DescendantClosure(entityID, tenantID string) *closure {
	return s.walk(entityID, tenantID, func(id string) []string {
		return append(append([]string(nil), s.children[id]...), s.inboundInherit[id]...)
	})
}

func (s *Snapshot) walk(seedID, tenantID string, neighbors func(string) []string) *closure {
	c := &closure{depth: make(map[string]int)}

	seed := s.Entity(seedID)
	if seed == nil || !s.sameTenant(seed, tenantID) {
		return c
	}

	c.depth[seedID] = 0
	c.order = append(c.order, seedID)
	queue := []string{seedID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		d := c.depth[current]

		for _, nextID := range neighbors(current) {
			if c.contains(nextID) {
				continue
			}
			next := s.Entity(nextID)
			if next == nil || !s.sameTenant(next, tenantID) {
				continue
			}
			c.depth[nextID] = d + 1
			c.order = append(c.order, nextID)
			queue = append(queue, nextID)
		}
	}
	return c
}

// Ancestors returns the IDs in the ancestor closure of an entity, seed
// included, in discovery order. Exposed for diagnostics and tests.
func (s *Snapshot) Ancestors(entityID, tenantID string) []string {
	return s.AncestorClosure(entityID, tenantID).order
}

// Descendants returns the IDs in the descendant closure of an entity, seed
// included, in discovery order.
func (s *Snapshot) Descendants(entityID, tenantID string) []string {
	return s.DescendantClosure(entityID, tenantID).order
}
