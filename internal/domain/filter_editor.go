package domain

// FilterEditor applies discrete, named mutations to a filter tree while
// preserving its invariants. Every operation takes a full tree and returns
// a new full tree; the input is never mutated, so callers holding prior
// snapshots stay valid and change detection can compare by structure.
//
// Malformed or foreign identifiers are treated as caller bugs, not faults:
// the operation degrades to a no-op and hands back the input tree.
type FilterEditor struct {
	catalog Catalog
}

// NewFilterEditor builds an editor bound to one entity type's catalog.
func NewFilterEditor(catalog Catalog) *FilterEditor {
	return &FilterEditor{catalog: catalog}
}

// Catalog exposes the catalog the editor parametrizes its defaults from.
func (e *FilterEditor) Catalog() Catalog { return e.catalog }

// NewTree returns the empty default tree: a root AND group with one
// condition on the catalog's default field.
func (e *FilterEditor) NewTree() FilterTree {
	return NewEmptyTree(e.catalog.DefaultField())
}

// AddCondition appends a default condition as the last child of the group
// identified by groupID.
func (e *FilterEditor) AddCondition(tree FilterTree, groupID string) FilterTree {
	next, found := appendChild(CloneTree(tree), groupID, NewCondition(e.catalog.DefaultField()))
	if !found {
		return tree
	}
	return next
}

// AddGroup appends a nested AND group holding one default condition as the
// last child of groupID.
func (e *FilterEditor) AddGroup(tree FilterTree, groupID string) FilterTree {
	child := NewEmptyTree(e.catalog.DefaultField())
	next, found := appendChild(CloneTree(tree), groupID, child)
	if !found {
		return tree
	}
	return next
}

// RemoveNode removes the child nodeID from group groupID. A removal that
// leaves a non-root group childless removes that group as well. A removal
// that would leave the root group with zero children is rejected and the
// tree is returned unchanged.
func (e *FilterEditor) RemoveNode(tree FilterTree, groupID, nodeID string) FilterTree {
	next, found := removeChild(CloneTree(tree), groupID, nodeID)
	if !found {
		return tree
	}
	next = pruneEmptyGroups(next)
	if len(next.Conditions) == 0 {
		return tree
	}
	return next
}

// ConditionPatch is one discrete edit to a condition. Exactly one of the
// three fields is normally set; Field wins over Operator, Operator over
// Value.
type ConditionPatch struct {
	// Field changes the condition's field, resetting operator and value to
	// the new field type's defaults.
	Field *string
	// Operator changes the operator, resetting the value to the shape the
	// new operator requires.
	Operator *OperatorDescriptor
	// Value replaces the raw value without any reset.
	Value *Value
}

// UpdateCondition applies a patch to condition condID inside group groupID.
func (e *FilterEditor) UpdateCondition(tree FilterTree, groupID, condID string, patch ConditionPatch) FilterTree {
	next, found := patchCondition(CloneTree(tree), groupID, condID, func(cond Condition) Condition {
		switch {
		case patch.Field != nil:
			fieldType := e.catalog.FieldTypeOf(*patch.Field)
			op := DefaultOperatorFor(fieldType)
			cond.Field = *patch.Field
			cond.Operator = op.Value
			cond.Value = DefaultValueFor(op, fieldType)
		case patch.Operator != nil:
			fieldType := e.catalog.FieldTypeOf(cond.Field)
			cond.Operator = patch.Operator.Value
			cond.Value = DefaultValueFor(*patch.Operator, fieldType)
		case patch.Value != nil:
			cond.Value = *patch.Value
		}
		return cond
	})
	if !found {
		return tree
	}
	return next
}

// UpdateGroupLogic sets AND/OR on a group without touching its children.
func (e *FilterEditor) UpdateGroupLogic(tree FilterTree, groupID string, logic Logic) FilterTree {
	next, found := patchGroup(CloneTree(tree), groupID, func(g Group) Group {
		g.Logic = ParseLogic(string(logic))
		return g
	})
	if !found {
		return tree
	}
	return next
}

// SetFromSavedFilters loads an external, possibly identifier-less filter
// structure. Identifiers are assigned where missing; a payload with no
// conditions yields the empty default tree.
func (e *FilterEditor) SetFromSavedFilters(raw []byte) FilterTree {
	tree, ok, err := ParseFilterTree(raw)
	if err != nil || !ok {
		return e.NewTree()
	}
	return tree
}

func appendChild(g Group, groupID string, child Node) (Group, bool) {
	if g.ID == groupID {
		g.Conditions = append(g.Conditions, child)
		return g, true
	}
	for i, node := range g.Conditions {
		sub, ok := node.(Group)
		if !ok {
			continue
		}
		if next, found := appendChild(sub, groupID, child); found {
			g.Conditions[i] = next
			return g, true
		}
	}
	return g, false
}

func removeChild(g Group, groupID, nodeID string) (Group, bool) {
	if g.ID == groupID {
		for i, node := range g.Conditions {
			if node.NodeID() != nodeID {
				continue
			}
			g.Conditions = append(g.Conditions[:i], g.Conditions[i+1:]...)
			return g, true
		}
		return g, false
	}
	for i, node := range g.Conditions {
		sub, ok := node.(Group)
		if !ok {
			continue
		}
		if next, found := removeChild(sub, groupID, nodeID); found {
			g.Conditions[i] = next
			return g, true
		}
	}
	return g, false
}

// pruneEmptyGroups drops childless nested groups bottom-up. The root is
// left alone; the caller enforces the root floor.
func pruneEmptyGroups(root Group) Group {
	kept := root.Conditions[:0:0]
	for _, node := range root.Conditions {
		sub, ok := node.(Group)
		if !ok {
			kept = append(kept, node)
			continue
		}
		sub = pruneEmptyGroups(sub)
		if len(sub.Conditions) == 0 {
			continue
		}
		kept = append(kept, sub)
	}
	root.Conditions = kept
	return root
}

func patchCondition(g Group, groupID, condID string, apply func(Condition) Condition) (Group, bool) {
	if g.ID == groupID {
		for i, node := range g.Conditions {
			cond, ok := node.(Condition)
			if !ok || cond.ID != condID {
				continue
			}
			g.Conditions[i] = apply(cond)
			return g, true
		}
		return g, false
	}
	for i, node := range g.Conditions {
		sub, ok := node.(Group)
		if !ok {
			continue
		}
		if next, found := patchCondition(sub, groupID, condID, apply); found {
			g.Conditions[i] = next
			return g, true
		}
	}
	return g, false
}

func patchGroup(g Group, groupID string, apply func(Group) Group) (Group, bool) {
	if g.ID == groupID {
		return apply(g), true
	}
	for i, node := range g.Conditions {
		sub, ok := node.(Group)
		if !ok {
			continue
		}
		if next, found := patchGroup(sub, groupID, apply); found {
			g.Conditions[i] = next
			return g, true
		}
	}
	return g, false
}
