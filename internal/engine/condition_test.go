package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushive/hivelab/internal/hivelab"
)

func TestLookupPath(t *testing.T) {
	ctx := map[string]any{
		"state": map[string]any{
			"poll": map[string]any{"votes": 42.0},
			"nil":  nil,
		},
	}

	v, ok := LookupPath(ctx, "state.poll.votes")
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	v, ok = LookupPath(ctx, "state.nil")
	require.True(t, ok, "present nil is not missing")
	assert.Nil(t, v)

	_, ok = LookupPath(ctx, "state.poll.votes.deeper")
	assert.False(t, ok, "descending through a scalar is missing")

	_, ok = LookupPath(ctx, "a.b.c")
	assert.False(t, ok)

	_, ok = LookupPath(ctx, "")
	assert.False(t, ok)
}

func TestEvaluateCondition_Operators(t *testing.T) {
	ctx := map[string]any{
		"state": map[string]any{
			"count":  10.0,
			"name":   "welcome board",
			"status": "open",
			"empty":  nil,
		},
	}

	tests := []struct {
		name string
		cond hivelab.Condition
		want bool
	}{
		{"equals match", hivelab.Condition{Field: "state.count", Operator: hivelab.OpEquals, Value: 10}, true},
		{"equals mismatch", hivelab.Condition{Field: "state.count", Operator: hivelab.OpEquals, Value: 11}, false},
		{"equals missing field", hivelab.Condition{Field: "state.absent", Operator: hivelab.OpEquals, Value: 10}, false},
		{"notEquals", hivelab.Condition{Field: "state.count", Operator: hivelab.OpNotEquals, Value: 11}, true},
		{"notEquals on missing field", hivelab.Condition{Field: "state.absent", Operator: hivelab.OpNotEquals, Value: 1}, true},
		{"greaterThan", hivelab.Condition{Field: "state.count", Operator: hivelab.OpGreaterThan, Value: 5}, true},
		{"greaterThan equal value", hivelab.Condition{Field: "state.count", Operator: hivelab.OpGreaterThan, Value: 10}, false},
		{"greaterThan non-numeric", hivelab.Condition{Field: "state.name", Operator: hivelab.OpGreaterThan, Value: 5}, false},
		{"lessThan", hivelab.Condition{Field: "state.count", Operator: hivelab.OpLessThan, Value: 20}, true},
		{"greaterThanOrEquals", hivelab.Condition{Field: "state.count", Operator: hivelab.OpGreaterThanOrEquals, Value: 10}, true},
		{"lessThanOrEquals", hivelab.Condition{Field: "state.count", Operator: hivelab.OpLessThanOrEquals, Value: 9}, false},
		{"contains", hivelab.Condition{Field: "state.name", Operator: hivelab.OpContains, Value: "board"}, true},
		{"contains non-string value", hivelab.Condition{Field: "state.count", Operator: hivelab.OpContains, Value: "1"}, false},
		{"notContains", hivelab.Condition{Field: "state.name", Operator: hivelab.OpNotContains, Value: "closed"}, true},
		{"notContains non-string is fail-closed", hivelab.Condition{Field: "state.count", Operator: hivelab.OpNotContains, Value: "x"}, false},
		{"in", hivelab.Condition{Field: "state.status", Operator: hivelab.OpIn, Value: []any{"open", "draft"}}, true},
		{"in non-list value", hivelab.Condition{Field: "state.status", Operator: hivelab.OpIn, Value: "open"}, false},
		{"notIn", hivelab.Condition{Field: "state.status", Operator: hivelab.OpNotIn, Value: []any{"closed"}}, true},
		{"notIn non-list is fail-closed", hivelab.Condition{Field: "state.status", Operator: hivelab.OpNotIn, Value: "closed"}, false},
		{"exists", hivelab.Condition{Field: "state.count", Operator: hivelab.OpExists}, true},
		{"exists on nil value", hivelab.Condition{Field: "state.empty", Operator: hivelab.OpExists}, false},
		{"notExists on missing", hivelab.Condition{Field: "a.b.c", Operator: hivelab.OpNotExists}, true},
		{"notExists on present", hivelab.Condition{Field: "state.count", Operator: hivelab.OpNotExists}, false},
		{"unknown operator", hivelab.Condition{Field: "state.count", Operator: "bogus", Value: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.cond, ctx))
		})
	}
}

func TestEvaluateCondition_Pure(t *testing.T) {
	ctx := map[string]any{"state": map[string]any{"n": 3.0}}
	cond := hivelab.Condition{Field: "state.n", Operator: hivelab.OpGreaterThan, Value: 2}

	first := EvaluateCondition(cond, ctx)
	second := EvaluateCondition(cond, ctx)
	assert.Equal(t, first, second)
	assert.True(t, first)
}

func TestEvaluateCondition_MissingFieldIsSafe(t *testing.T) {
	empty := map[string]any{}

	eq := hivelab.Condition{Field: "a.b.c", Operator: hivelab.OpEquals, Value: 5}
	assert.False(t, EvaluateCondition(eq, empty))

	ne := hivelab.Condition{Field: "a.b.c", Operator: hivelab.OpNotExists}
	assert.True(t, EvaluateCondition(ne, empty))
}

func TestEvaluateGroup(t *testing.T) {
	ctx := map[string]any{"state": map[string]any{"a": 1.0, "b": 2.0}}
	condTrue := hivelab.ConditionNode{Condition: &hivelab.Condition{Field: "state.a", Operator: hivelab.OpEquals, Value: 1}}
	condFalse := hivelab.ConditionNode{Condition: &hivelab.Condition{Field: "state.b", Operator: hivelab.OpEquals, Value: 99}}

	tests := []struct {
		name  string
		logic hivelab.GroupLogic
		nodes []hivelab.ConditionNode
		want  bool
	}{
		{"and true/false", hivelab.LogicAnd, []hivelab.ConditionNode{condTrue, condFalse}, false},
		{"or true/false", hivelab.LogicOr, []hivelab.ConditionNode{condTrue, condFalse}, true},
		{"and true/true", hivelab.LogicAnd, []hivelab.ConditionNode{condTrue, condTrue}, true},
		{"or true/true", hivelab.LogicOr, []hivelab.ConditionNode{condTrue, condTrue}, true},
		{"and false/false", hivelab.LogicAnd, []hivelab.ConditionNode{condFalse, condFalse}, false},
		{"or false/false", hivelab.LogicOr, []hivelab.ConditionNode{condFalse, condFalse}, false},
		{"empty and", hivelab.LogicAnd, nil, true},
		{"empty or", hivelab.LogicOr, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateGroup(hivelab.ConditionGroup{Logic: tt.logic, Conditions: tt.nodes}, ctx)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateGroup_Nested(t *testing.T) {
	ctx := map[string]any{"state": map[string]any{"a": 1.0, "b": 2.0}}

	// a == 1 AND (b == 99 OR b == 2)
	group := hivelab.ConditionGroup{
		Logic: hivelab.LogicAnd,
		Conditions: []hivelab.ConditionNode{
			{Condition: &hivelab.Condition{Field: "state.a", Operator: hivelab.OpEquals, Value: 1}},
			{Group: &hivelab.ConditionGroup{
				Logic: hivelab.LogicOr,
				Conditions: []hivelab.ConditionNode{
					{Condition: &hivelab.Condition{Field: "state.b", Operator: hivelab.OpEquals, Value: 99}},
					{Condition: &hivelab.Condition{Field: "state.b", Operator: hivelab.OpEquals, Value: 2}},
				},
			}},
		},
	}
	assert.True(t, EvaluateGroup(group, ctx))
}

func TestEvaluateAll(t *testing.T) {
	ctx := map[string]any{"state": map[string]any{"n": 5.0}}

	results, pass := EvaluateAll(nil, ctx)
	assert.True(t, pass, "empty condition list is vacuously true")
	assert.Empty(t, results)

	nodes := []hivelab.ConditionNode{
		{Condition: &hivelab.Condition{Field: "state.n", Operator: hivelab.OpGreaterThan, Value: 1}},
		{Condition: &hivelab.Condition{Field: "state.n", Operator: hivelab.OpGreaterThan, Value: 10}},
	}
	results, pass = EvaluateAll(nodes, ctx)
	assert.False(t, pass)
	assert.Equal(t, []bool{true, false}, results)
}

func TestEvaluateCondition_Expression(t *testing.T) {
	ctx := map[string]any{
		"state": map[string]any{"votes": 12.0},
		"user":  map[string]any{"id": "u-1"},
	}

	ok := EvaluateCondition(hivelab.Condition{
		Operator:   hivelab.OpExpression,
		Expression: `state.votes > 10 && user.id == "u-1"`,
	}, ctx)
	assert.True(t, ok)

	ok = EvaluateCondition(hivelab.Condition{
		Operator:   hivelab.OpExpression,
		Expression: `state.votes > 100`,
	}, ctx)
	assert.False(t, ok)

	// Malformed expressions fail closed.
	ok = EvaluateCondition(hivelab.Condition{
		Operator:   hivelab.OpExpression,
		Expression: `state.votes >`,
	}, ctx)
	assert.False(t, ok)

	ok = EvaluateCondition(hivelab.Condition{Operator: hivelab.OpExpression}, ctx)
	assert.False(t, ok)
}
