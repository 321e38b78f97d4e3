package engine

// condition.go — pure condition evaluation.
// Side-effect free and safe to call repeatedly; the runner and the
// authoring-time preview endpoint share these functions.
//
// Malformed input never raises: every case degrades to false except the
// presence checks (exists/notExists) and empty groups, which pass.

import (
	"reflect"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/campushive/hivelab/internal/hivelab"
)

// LookupPath resolves a dotted path against a nested context map. The second
// return value is false when any intermediate value is missing, nil, or not
// a map — this distinguishes "absent" from a present nil.
func LookupPath(ctx map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = ctx
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// EvaluateCondition evaluates a single condition against the context.
func EvaluateCondition(cond hivelab.Condition, ctx map[string]any) bool {
	if cond.Operator == hivelab.OpExpression {
		return evaluateExpression(cond.Expression, ctx)
	}

	value, present := LookupPath(ctx, cond.Field)

	switch cond.Operator {
	case hivelab.OpExists:
		return present && value != nil
	case hivelab.OpNotExists:
		return !present || value == nil
	case hivelab.OpEquals:
		return present && valuesEqual(value, cond.Value)
	case hivelab.OpNotEquals:
		return !present || !valuesEqual(value, cond.Value)
	case hivelab.OpGreaterThan:
		return compareNumeric(value, cond.Value, ">")
	case hivelab.OpLessThan:
		return compareNumeric(value, cond.Value, "<")
	case hivelab.OpGreaterThanOrEquals:
		return compareNumeric(value, cond.Value, ">=")
	case hivelab.OpLessThanOrEquals:
		return compareNumeric(value, cond.Value, "<=")
	case hivelab.OpContains:
		s, sok := value.(string)
		sub, vok := cond.Value.(string)
		return sok && vok && strings.Contains(s, sub)
	case hivelab.OpNotContains:
		s, sok := value.(string)
		sub, vok := cond.Value.(string)
		return sok && vok && !strings.Contains(s, sub)
	case hivelab.OpIn:
		list, ok := cond.Value.([]any)
		return ok && containsValue(list, value)
	case hivelab.OpNotIn:
		list, ok := cond.Value.([]any)
		return ok && !containsValue(list, value)
	default:
		return false
	}
}

// EvaluateGroup evaluates an AND/OR group, recursing into nested groups.
// Groups with no children pass vacuously.
func EvaluateGroup(group hivelab.ConditionGroup, ctx map[string]any) bool {
	if len(group.Conditions) == 0 {
		return true
	}
	switch group.Logic {
	case hivelab.LogicOr:
		for _, node := range group.Conditions {
			if EvaluateNode(node, ctx) {
				return true
			}
		}
		return false
	default: // and, including unspecified logic
		for _, node := range group.Conditions {
			if !EvaluateNode(node, ctx) {
				return false
			}
		}
		return true
	}
}

// EvaluateNode evaluates either branch of the condition/group union. An
// empty node gates nothing and passes.
func EvaluateNode(node hivelab.ConditionNode, ctx map[string]any) bool {
	if node.Group != nil {
		return EvaluateGroup(*node.Group, ctx)
	}
	if node.Condition != nil {
		return EvaluateCondition(*node.Condition, ctx)
	}
	return true
}

// EvaluateAll evaluates a rule's condition list as an implicit AND and
// returns the per-node results for the run's audit record. An empty list is
// vacuously true.
func EvaluateAll(nodes []hivelab.ConditionNode, ctx map[string]any) ([]bool, bool) {
	if len(nodes) == 0 {
		return nil, true
	}
	results := make([]bool, len(nodes))
	pass := true
	for i, node := range nodes {
		results[i] = EvaluateNode(node, ctx)
		if !results[i] {
			pass = false
		}
	}
	return results, pass
}

// evaluateExpression runs an expr-lang expression against the context.
// Compile or runtime errors evaluate to false, consistent with the
// fail-closed operator table.
func evaluateExpression(expression string, ctx map[string]any) bool {
	if expression == "" {
		return false
	}
	program, err := expr.Compile(expression, expr.Env(ctx), expr.AllowUndefinedVariables())
	if err != nil {
		return false
	}
	out, err := expr.Run(program, ctx)
	if err != nil {
		return false
	}
	return isTruthy(out)
}

func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// valuesEqual compares two context values, treating all numeric types as
// interchangeable (JSON decoding yields float64).
func valuesEqual(a, b any) bool {
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

// compareNumeric returns false when either side is not numeric.
func compareNumeric(a, b any, op string) bool {
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case ">":
		return af > bf
	case "<":
		return af < bf
	case ">=":
		return af >= bf
	case "<=":
		return af <= bf
	default:
		return false
	}
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func containsValue(list []any, item any) bool {
	for _, v := range list {
		if valuesEqual(v, item) {
			return true
		}
	}
	return false
}
