package gatekit

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// ============================================================================
// CONDITION DSL
// ============================================================================

// Condition operators. The DSL is deliberately bounded: attribute lookups,
// comparisons, membership, substring, regular-expression match, and
// existence. No scripting.
const (
	OpEq        = "eq"
	OpNeq       = "neq"
	OpGt        = "gt"
	OpGte       = "gte"
	OpLt        = "lt"
	OpLte       = "lte"
	OpIn        = "in"
	OpNotIn     = "not_in"
	OpContains  = "contains"
	OpMatches   = "matches"
	OpExists    = "exists"
	OpNotExists = "not_exists"
)

// Condition tests one attribute against a value. Attribute is a dot path
// into the evaluation context, e.g. "entity.status" or "principal.id".
type Condition struct {
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"`
	Value     any    `json:"value,omitempty"`
}

// ConditionGroup combines conditions with all (conjunction) or any
// (disjunction) semantics. Groups nest. An empty group matches.
type ConditionGroup struct {
	All []ConditionNode `json:"all,omitempty"`
	Any []ConditionNode `json:"any,omitempty"`
}

// ConditionNode is either a nested ConditionGroup or a leaf Condition,
// decided by the presence of an "all" or "any" key.
type ConditionNode struct {
	Group *ConditionGroup
	Leaf  *Condition
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *ConditionNode) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["all"]; ok {
		n.Group = &ConditionGroup{}
		return json.Unmarshal(data, n.Group)
	}
	if _, ok := probe["any"]; ok {
		n.Group = &ConditionGroup{}
		return json.Unmarshal(data, n.Group)
	}
	n.Leaf = &Condition{}
	return json.Unmarshal(data, n.Leaf)
}

// MarshalJSON implements json.Marshaler.
func (n ConditionNode) MarshalJSON() ([]byte, error) {
	if n.Group != nil {
		return json.Marshal(n.Group)
	}
	return json.Marshal(n.Leaf)
}

// ParseConditions parses and validates a policy condition document. A nil
// or empty document is valid and matches everything.
func ParseConditions(raw json.RawMessage) (*ConditionGroup, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &ConditionGroup{}, nil
	}
	var g ConditionGroup
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, NewError(ErrInvalidConditions, err.Error())
	}
	return &g, nil
}

// EvaluationContext is the nested attribute bag conditions resolve against.
// Top-level namespaces: "entity" (attributes plus id, class_id, tenant_id,
// display_name), "principal" (id), "env" (time, hour, weekday).
type EvaluationContext map[string]any

// Resolve follows a dot path through nested maps. The second return is
// false when any segment is missing.
func (ec EvaluationContext) Resolve(path string) (any, bool) {
	var current any = map[string]any(ec)
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Evaluate reports whether the group matches the context. All listed
// conditions must hold and at least one Any condition must hold; an empty
// group matches.
func (g *ConditionGroup) Evaluate(ec EvaluationContext) bool {
	for _, n := range g.All {
		if !n.evaluate(ec) {
			return false
		}
	}
	if len(g.Any) > 0 {
		for _, n := range g.Any {
			if n.evaluate(ec) {
				return true
			}
		}
		return false
	}
	return true
}

func (n ConditionNode) evaluate(ec EvaluationContext) bool {
	if n.Group != nil {
		return n.Group.Evaluate(ec)
	}
	if n.Leaf != nil {
		return n.Leaf.Evaluate(ec)
	}
	return false
}

// Evaluate reports whether the condition holds against the context.
// Unknown operators and type mismatches evaluate to false, keeping the
// overlay total.
func (c *Condition) Evaluate(ec EvaluationContext) bool {
	resolved, found := ec.Resolve(c.Attribute)

	switch c.Operator {
	case OpExists:
		return found
	case OpNotExists:
		return !found
	}
	if !found {
		return false
	}

	switch c.Operator {
	case OpEq:
		return looseEqual(resolved, c.Value)
	case OpNeq:
		return !looseEqual(resolved, c.Value)
	case OpGt, OpGte, OpLt, OpLte:
		return compareOrdered(resolved, c.Value, c.Operator)
	case OpIn:
		return memberOf(resolved, c.Value)
	case OpNotIn:
		return !memberOf(resolved, c.Value)
	case OpContains:
		return containsValue(resolved, c.Value)
	case OpMatches:
		s, ok := resolved.(string)
		pattern, ok2 := c.Value.(string)
		if !ok || !ok2 {
			return false
		}
		matched, err := regexp.MatchString(pattern, s)
		return err == nil && matched
	}
	return false
}

// looseEqual compares with JSON-decoded typing in mind: all numbers are
// compared as float64 regardless of concrete Go type.
func looseEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func compareOrdered(a, b any, op string) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return false
		}
		switch op {
		case OpGt:
			return af > bf
		case OpGte:
			return af >= bf
		case OpLt:
			return af < bf
		case OpLte:
			return af <= bf
		}
		return false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return false
	}
	switch op {
	case OpGt:
		return as > bs
	case OpGte:
		return as >= bs
	case OpLt:
		return as < bs
	case OpLte:
		return as <= bs
	}
	return false
}

func memberOf(v, list any) bool {
	items, ok := list.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if looseEqual(v, item) {
			return true
		}
	}
	return false
}

func containsValue(container, v any) bool {
	switch c := container.(type) {
	case []any:
		for _, item := range c {
			if looseEqual(item, v) {
				return true
			}
		}
		return false
	case string:
		s, ok := v.(string)
		return ok && strings.Contains(c, s)
	}
	return false
}

// ============================================================================
// POLICY OVERLAY
// ============================================================================

// evalContext assembles the attribute bag for one check.
func (s *Snapshot) evalContext(principalID string, entity *Entity, now time.Time) EvaluationContext {
	entityNS := map[string]any{
		"id":           entity.ID,
		"class_id":     entity.ClassID,
		"display_name": entity.DisplayName,
	}
	if entity.TenantID != nil {
		entityNS["tenant_id"] = *entity.TenantID
	}
	for k, v := range entity.Attributes {
		entityNS[k] = v
	}
	return EvaluationContext{
		"entity": entityNS,
		"principal": map[string]any{
			"id": principalID,
		},
		"env": map[string]any{
			"time":    now.Format(time.RFC3339),
			"hour":    now.Hour(),
			"weekday": int(now.Weekday()),
		},
	}
}

// applyPolicies runs the overlay over a role-graph result and returns the
// final result plus the outcome label for the decision log.
//
// Policies were ordered at snapshot build time: priority descending, DENY
// before ALLOW at equal priority. The first applicable policy whose
// conditions match wins. A DENY match forces the final result to deny even
// over a role-graph allow. An ALLOW match never extends the role-graph
// result; it only records that the overlay did not object. No match leaves
// the role-graph result untouched. Policies with malformed condition
// documents never match.
func (s *Snapshot) applyPolicies(graph CheckResult, principalID, entityID, permission, tenantID string) (CheckResult, string) {
	entity := s.Entity(entityID)
	if entity == nil {
		return graph, PolicyOutcomeNoMatch
	}

	c := s.AncestorClosure(entityID, tenantID)
	ec := s.evalContext(principalID, entity, s.Now)

	for _, p := range s.policies {
		if !p.ValidAt(s.Now) {
			continue
		}
		if !p.TargetsPermission(permission) {
			continue
		}
		if p.TargetClassID != nil && *p.TargetClassID != entity.ClassID {
			continue
		}
		if p.TenantID != nil && tenantID != "" && *p.TenantID != tenantID {
			continue
		}
		if p.ScopeEntityID != nil && !c.contains(*p.ScopeEntityID) {
			continue
		}
		g, err := ParseConditions(p.Conditions)
		if err != nil || !g.Evaluate(ec) {
			continue
		}

		if p.Effect == EffectDeny {
			return CheckResult{Denied: true, PolicyName: p.Name}, PolicyOutcomeDenied
		}
		graph.PolicyName = p.Name
		return graph, PolicyOutcomeAllowed
	}
	return graph, PolicyOutcomeNoMatch
}
