package domain

import (
	"encoding/json"
	"testing"
)

func TestEditorAddConditionNested(t *testing.T) {
	e := NewFilterEditor(TaskCatalog)
	tree := e.NewTree()
	tree = e.AddGroup(tree, tree.ID)
	nested := tree.Conditions[1].(Group)

	tree = e.AddCondition(tree, nested.ID)
	got := tree.Conditions[1].(Group)
	if len(got.Conditions) != 2 {
		t.Fatalf("nested group has %d children, want 2", len(got.Conditions))
	}
	added := got.Conditions[1].(Condition)
	if added.Field != "title" || added.Operator != OpContains {
		t.Fatalf("added condition not at catalog defaults: %+v", added)
	}
	ids := collectIDs(tree)
	for id, n := range ids {
		if n != 1 {
			t.Fatalf("identifier %s occurs %d times", id, n)
		}
	}
}

func TestEditorUnknownGroupIsNoOp(t *testing.T) {
	e := NewFilterEditor(ClientCatalog)
	tree := e.NewTree()
	next := e.AddCondition(tree, "no-such-group")
	if len(next.Conditions) != len(tree.Conditions) {
		t.Fatalf("append under unknown group changed the tree")
	}
}

func TestEditorRemoveKeepsRootNonEmpty(t *testing.T) {
	e := NewFilterEditor(ClientCatalog)
	tree := e.NewTree()
	only := tree.Conditions[0].(Condition)

	next := e.RemoveNode(tree, tree.ID, only.ID)
	if len(next.Conditions) != 1 {
		t.Fatalf("removing the last root condition should be rejected")
	}
	if next.Conditions[0].NodeID() != only.ID {
		t.Fatalf("rejected removal should hand back the original tree")
	}
}

func TestEditorRemovePrunesEmptiedGroup(t *testing.T) {
	e := NewFilterEditor(ClientCatalog)
	tree := e.NewTree()
	tree = e.AddGroup(tree, tree.ID)
	nested := tree.Conditions[1].(Group)
	inner := nested.Conditions[0].(Condition)

	tree = e.RemoveNode(tree, nested.ID, inner.ID)
	if len(tree.Conditions) != 1 {
		t.Fatalf("emptied nested group should be pruned, got %d root children", len(tree.Conditions))
	}
	if _, isGroup := tree.Conditions[0].(Group); isGroup {
		t.Fatalf("remaining root child should be the original condition")
	}
}

func TestEditorOperationsAreCopyOnWrite(t *testing.T) {
	e := NewFilterEditor(ClientCatalog)
	before := e.NewTree()
	snapshot, err := json.Marshal(before)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	after := e.AddCondition(before, before.ID)
	after = e.UpdateGroupLogic(after, after.ID, LogicOr)

	again, err := json.Marshal(before)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(snapshot) != string(again) {
		t.Fatalf("edit mutated the input tree:\n%s\n%s", snapshot, again)
	}
	if after.Logic != LogicOr || len(after.Conditions) != 2 {
		t.Fatalf("edits were not applied to the returned tree: %+v", after)
	}
}

func TestEditorFieldChangeResetsOperatorAndValue(t *testing.T) {
	e := NewFilterEditor(ClientCatalog)
	tree := e.NewTree()
	cond := tree.Conditions[0].(Condition)

	field := "owner"
	tree = e.UpdateCondition(tree, tree.ID, cond.ID, ConditionPatch{Field: &field})
	got := tree.Conditions[0].(Condition)
	if got.Field != "owner" {
		t.Fatalf("field = %q, want owner", got.Field)
	}
	if got.Operator != OpIn {
		t.Fatalf("user field should reset to its default operator, got %q", got.Operator)
	}
	if got.Value.Kind() != ValueKindList || len(got.Value.List()) != 0 {
		t.Fatalf("user field should reset to an empty list value, got %+v", got.Value)
	}
}

func TestEditorOperatorChangeResetsValueShape(t *testing.T) {
	e := NewFilterEditor(TaskCatalog)
	tree := e.NewTree()
	cond := tree.Conditions[0].(Condition)

	field := "due_date"
	tree = e.UpdateCondition(tree, tree.ID, cond.ID, ConditionPatch{Field: &field})

	pastN := OperatorDescriptor{Label: "In the past N days", Value: OpPastNDays, Shape: ValueShapeNumericCount}
	tree = e.UpdateCondition(tree, tree.ID, cond.ID, ConditionPatch{Operator: &pastN})
	got := tree.Conditions[0].(Condition)
	if got.Operator != OpPastNDays {
		t.Fatalf("operator = %q, want %q", got.Operator, OpPastNDays)
	}
	if got.Value.Scalar() != NumericCountDefault {
		t.Fatalf("rolling-window value = %q, want %q", got.Value.Scalar(), NumericCountDefault)
	}

	between := OperatorDescriptor{Label: "Between", Value: OpBetween, Shape: ValueShapePair}
	tree = e.UpdateCondition(tree, tree.ID, cond.ID, ConditionPatch{Operator: &between})
	got = tree.Conditions[0].(Condition)
	if low, high := got.Value.Pair(); low != "" || high != "" {
		t.Fatalf("between should reset to an empty pair, got %q %q", low, high)
	}

	notSet := OperatorDescriptor{Label: "Is not set", Value: OpIsNull, ValueOverride: true, Shape: ValueShapeOverride}
	tree = e.UpdateCondition(tree, tree.ID, cond.ID, ConditionPatch{Operator: &notSet})
	got = tree.Conditions[0].(Condition)
	if got.Operator != OpIsNull || got.Value.Kind() != ValueKindBool || !got.Value.Bool() {
		t.Fatalf("override operator should pin its value, got %+v", got)
	}
}

func TestEditorValueEditKeepsOperator(t *testing.T) {
	e := NewFilterEditor(ClientCatalog)
	tree := e.NewTree()
	cond := tree.Conditions[0].(Condition)

	v := ScalarValue("acme")
	tree = e.UpdateCondition(tree, tree.ID, cond.ID, ConditionPatch{Value: &v})
	got := tree.Conditions[0].(Condition)
	if got.Operator != OpContains || got.Value.Scalar() != "acme" {
		t.Fatalf("value edit drifted: %+v", got)
	}
}

func TestEditorSetFromSavedFilters(t *testing.T) {
	e := NewFilterEditor(TaskCatalog)

	tree := e.SetFromSavedFilters([]byte(`{"logic":"OR","conditions":[
		{"field":"status","operator":"in","value":["todo"]}
	]}`))
	if tree.Logic != LogicOr {
		t.Fatalf("loaded logic = %s, want OR", tree.Logic)
	}
	for id, n := range collectIDs(tree) {
		if id == "" || n != 1 {
			t.Fatalf("loaded tree has bad identifier assignment (%q x%d)", id, n)
		}
	}

	empty := e.SetFromSavedFilters([]byte(`{}`))
	if len(empty.Conditions) != 1 {
		t.Fatalf("empty payload should yield the default tree")
	}
	broken := e.SetFromSavedFilters([]byte(`{"logic":`))
	if len(broken.Conditions) != 1 {
		t.Fatalf("malformed payload should yield the default tree")
	}
}
