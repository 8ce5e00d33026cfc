package domain

import (
	"encoding/json"
	"testing"
)

func TestParseFilterTreeEmptyPayloads(t *testing.T) {
	for _, raw := range []string{"", "null", "{}", "  {}  "} {
		tree, ok, err := ParseFilterTree([]byte(raw))
		if err != nil {
			t.Fatalf("payload %q: unexpected error: %v", raw, err)
		}
		if ok {
			t.Fatalf("payload %q: expected match-everything sentinel, got tree %+v", raw, tree)
		}
	}
}

func TestParseFilterTreeTreeWithoutLeaves(t *testing.T) {
	raw := `{"id":"root","logic":"AND","conditions":[{"id":"g1","logic":"OR","conditions":[]}]}`
	_, ok, err := ParseFilterTree([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("tree with zero condition leaves should parse as empty")
	}
}

func TestParseFilterTreeInvalidJSON(t *testing.T) {
	if _, _, err := ParseFilterTree([]byte(`{"logic":`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestFilterTreeRoundTrip(t *testing.T) {
	raw := `{
		"id": "root",
		"logic": "OR",
		"conditions": [
			{"id": "c1", "field": "name", "operator": "icontains", "value": "acme"},
			{
				"id": "g1",
				"logic": "AND",
				"conditions": [
					{"id": "c2", "field": "status", "operator": "in", "value": ["todo", "done"]},
					{"id": "c3", "field": "due_date", "operator": "isnull", "value": true}
				]
			}
		]
	}`
	tree, ok, err := ParseFilterTree([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ok {
		t.Fatalf("expected a non-empty tree")
	}
	if tree.Logic != LogicOr {
		t.Fatalf("expected root logic OR, got %s", tree.Logic)
	}
	if len(tree.Conditions) != 2 {
		t.Fatalf("expected 2 root children, got %d", len(tree.Conditions))
	}
	cond, isCond := tree.Conditions[0].(Condition)
	if !isCond {
		t.Fatalf("first child should be a condition, got %T", tree.Conditions[0])
	}
	if cond.Value.Scalar() != "acme" {
		t.Fatalf("expected scalar value acme, got %q", cond.Value.Scalar())
	}
	group, isGroup := tree.Conditions[1].(Group)
	if !isGroup {
		t.Fatalf("second child should be a group, got %T", tree.Conditions[1])
	}
	inCond := group.Conditions[0].(Condition)
	if got := inCond.Value.List(); len(got) != 2 || got[0] != "todo" || got[1] != "done" {
		t.Fatalf("unexpected list value %v", got)
	}
	nullCond := group.Conditions[1].(Condition)
	if nullCond.Value.Kind() != ValueKindBool || !nullCond.Value.Bool() {
		t.Fatalf("expected boolean true value, got %+v", nullCond.Value)
	}

	encoded, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, ok, err := ParseFilterTree(encoded)
	if err != nil || !ok {
		t.Fatalf("re-parse: ok=%v err=%v", ok, err)
	}
	reencoded, err := json.Marshal(again)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if string(encoded) != string(reencoded) {
		t.Fatalf("round trip drifted:\n%s\n%s", encoded, reencoded)
	}
}

func TestEnsureIDsIdempotent(t *testing.T) {
	raw := `{"logic":"AND","conditions":[
		{"field":"name","operator":"icontains","value":"x"},
		{"logic":"OR","conditions":[{"field":"email","operator":"exact","value":"a@b.c"}]}
	]}`
	tree, ok, err := ParseFilterTree([]byte(raw))
	if err != nil || !ok {
		t.Fatalf("parse: ok=%v err=%v", ok, err)
	}
	ids := collectIDs(tree)
	for id, n := range ids {
		if id == "" {
			t.Fatalf("node left without an identifier")
		}
		if n != 1 {
			t.Fatalf("identifier %s assigned %d times", id, n)
		}
	}

	second := EnsureIDs(tree)
	if len(collectIDs(second)) != len(ids) {
		t.Fatalf("second pass changed node count")
	}
	for id := range collectIDs(second) {
		if _, present := ids[id]; !present {
			t.Fatalf("second pass minted new identifier %s", id)
		}
	}
}

func TestCloneTreeIsDeep(t *testing.T) {
	tree, ok, err := ParseFilterTree([]byte(`{"id":"root","logic":"AND","conditions":[
		{"id":"c1","field":"status","operator":"in","value":["todo"]}
	]}`))
	if err != nil || !ok {
		t.Fatalf("parse: ok=%v err=%v", ok, err)
	}
	clone := CloneTree(tree)
	clone.Conditions[0] = Condition{ID: "c1", Field: "status", Operator: OpIn, Value: ListValue("done")}

	orig := tree.Conditions[0].(Condition)
	if got := orig.Value.List(); len(got) != 1 || got[0] != "todo" {
		t.Fatalf("mutating clone leaked into original: %v", got)
	}
}

func TestValueJSONShapes(t *testing.T) {
	cases := []struct {
		raw  string
		kind ValueKind
	}{
		{`"hello"`, ValueKindScalar},
		{`true`, ValueKindBool},
		{`["a","b"]`, ValueKindList},
		{`42`, ValueKindScalar},
		{`null`, ValueKindScalar},
	}
	for _, tc := range cases {
		var v Value
		if err := json.Unmarshal([]byte(tc.raw), &v); err != nil {
			t.Fatalf("decode %s: %v", tc.raw, err)
		}
		if v.Kind() != tc.kind {
			t.Fatalf("decode %s: kind %d, want %d", tc.raw, v.Kind(), tc.kind)
		}
	}

	var n Value
	if err := json.Unmarshal([]byte(`42`), &n); err != nil {
		t.Fatalf("decode number: %v", err)
	}
	if n.Scalar() != "42" {
		t.Fatalf("number should decode to its string form, got %q", n.Scalar())
	}
}

func TestValueEqualSurvivesPairRoundTrip(t *testing.T) {
	original := PairValue("2025-01-01", "2025-01-31")
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The wire form is a plain array, so the decode comes back as a list
	// kind. Structural equality must still hold both ways.
	var decoded Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !original.Equal(decoded) || !decoded.Equal(original) {
		t.Fatalf("round-tripped range compares unequal to its original")
	}
	if low, high := decoded.Pair(); low != "2025-01-01" || high != "2025-01-31" {
		t.Fatalf("pair reads = %q %q", low, high)
	}

	if original.Equal(PairValue("2025-01-01", "2025-02-28")) {
		t.Fatalf("ranges with different bounds should not compare equal")
	}
	if original.Equal(ScalarValue("2025-01-01")) {
		t.Fatalf("a range should not compare equal to a scalar")
	}
}

func TestNewEmptyTreeShape(t *testing.T) {
	tree := NewEmptyTree(ClientCatalog.DefaultField())
	if tree.Logic != LogicAnd {
		t.Fatalf("new tree logic = %s, want AND", tree.Logic)
	}
	if len(tree.Conditions) != 1 {
		t.Fatalf("new tree has %d children, want 1", len(tree.Conditions))
	}
	cond := tree.Conditions[0].(Condition)
	if cond.Field != "name" || cond.Operator != OpContains {
		t.Fatalf("unexpected default condition %+v", cond)
	}
	if !cond.Value.IsZero() {
		t.Fatalf("default condition value should be empty, got %+v", cond.Value)
	}
}

func collectIDs(g Group) map[string]int {
	ids := map[string]int{g.ID: 1}
	var walk func(Group)
	walk = func(g Group) {
		for _, child := range g.Conditions {
			switch node := child.(type) {
			case Group:
				ids[node.ID]++
				walk(node)
			case Condition:
				ids[node.ID]++
			}
		}
	}
	walk(g)
	return ids
}
