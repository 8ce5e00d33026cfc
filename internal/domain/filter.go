package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Logic is the boolean combinator of a filter group.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// ParseLogic normalizes a raw logic string, defaulting to AND.
func ParseLogic(raw string) Logic {
	if Logic(raw) == LogicOr {
		return LogicOr
	}
	return LogicAnd
}

// ValueKind discriminates the wire representations a condition value can
// take.
type ValueKind int

const (
	ValueKindScalar ValueKind = iota
	ValueKindBool
	ValueKindList
	ValueKindPair
)

// Value is the tagged union of condition value shapes: a scalar string, a
// fixed boolean override, a list of selected option values, or an inclusive
// two-element range.
type Value struct {
	kind ValueKind
	str  string
	b    bool
	list []string
}

// ScalarValue wraps a single string value.
func ScalarValue(s string) Value {
	return Value{kind: ValueKindScalar, str: s}
}

// BoolValue wraps a fixed boolean override value.
func BoolValue(b bool) Value {
	return Value{kind: ValueKindBool, b: b}
}

// ListValue wraps a set of selected option values.
func ListValue(items ...string) Value {
	list := make([]string, len(items))
	copy(list, items)
	return Value{kind: ValueKindList, list: list}
}

// PairValue wraps an inclusive [low, high] range.
func PairValue(low, high string) Value {
	return Value{kind: ValueKindPair, list: []string{low, high}}
}

// Kind reports which shape the value carries.
func (v Value) Kind() ValueKind { return v.kind }

// Scalar returns the scalar string, or "" for non-scalar values.
func (v Value) Scalar() string { return v.str }

// Bool returns the boolean override value.
func (v Value) Bool() bool { return v.b }

// List returns a copy of the list or pair elements.
func (v Value) List() []string {
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

// Pair returns the range bounds. Missing elements are empty strings.
func (v Value) Pair() (string, string) {
	low, high := "", ""
	if len(v.list) > 0 {
		low = v.list[0]
	}
	if len(v.list) > 1 {
		high = v.list[1]
	}
	return low, high
}

// IsZero reports whether the value is an empty scalar.
func (v Value) IsZero() bool {
	return v.kind == ValueKindScalar && v.str == ""
}

// Equal compares two values structurally. List and pair kinds share one
// wire shape (a JSON array), so a pair compares equal to a list carrying
// the same elements; a round-tripped range stays equal to its original.
func (v Value) Equal(other Value) bool {
	if v.isListKind() && other.isListKind() {
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueKindScalar:
		return v.str == other.str
	case ValueKindBool:
		return v.b == other.b
	default:
		return true
	}
}

func (v Value) isListKind() bool {
	return v.kind == ValueKindList || v.kind == ValueKindPair
}

// MarshalJSON writes the wire shape the kind dictates.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueKindBool:
		return json.Marshal(v.b)
	case ValueKindList, ValueKindPair:
		if v.list == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.list)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalJSON accepts any of the wire shapes. A two-element array is kept
// as a list; the operator decides whether to read it as a pair.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = ScalarValue("")
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ScalarValue(s)
	case '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			items = append(items, fmt.Sprintf("%v", item))
		}
		*v = Value{kind: ValueKindList, list: items}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	default:
		// Numbers arrive from legacy payloads; store them as scalars.
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported condition value %s", string(data))
		}
		*v = ScalarValue(n.String())
	}
	return nil
}

// Node is a filter tree node: either a Condition leaf or a nested Group.
type Node interface {
	NodeID() string
	filterNode()
}

// Condition is a leaf node: one field, one operator, one value.
type Condition struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    Value  `json:"value"`
}

// NodeID returns the condition's identifier.
func (c Condition) NodeID() string { return c.ID }

func (c Condition) filterNode() {}

// Group is an internal node combining children under AND or OR. Children
// may themselves be groups, to unbounded depth.
type Group struct {
	ID         string `json:"id"`
	Logic      Logic  `json:"logic"`
	Conditions []Node `json:"conditions"`
}

// NodeID returns the group's identifier.
func (g Group) NodeID() string { return g.ID }

func (g Group) filterNode() {}

// UnmarshalJSON decodes the recursive wire format, telling conditions from
// nested groups by the presence of a "logic" key.
func (g *Group) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string            `json:"id"`
		Logic      string            `json:"logic"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.ID = raw.ID
	g.Logic = ParseLogic(raw.Logic)
	g.Conditions = make([]Node, 0, len(raw.Conditions))
	for _, rawNode := range raw.Conditions {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(rawNode, &probe); err != nil {
			return fmt.Errorf("decode filter node: %w", err)
		}
		if _, isGroup := probe["logic"]; isGroup {
			var child Group
			if err := json.Unmarshal(rawNode, &child); err != nil {
				return err
			}
			g.Conditions = append(g.Conditions, child)
		} else {
			var child Condition
			if err := json.Unmarshal(rawNode, &child); err != nil {
				return err
			}
			g.Conditions = append(g.Conditions, child)
		}
	}
	return nil
}

// FilterTree is the root group of a filter. It is the unit that gets
// serialized, persisted, and handed to the query translator.
type FilterTree = Group

// NewCondition builds a condition on the given field with the field type's
// default operator and an empty value of the matching shape.
func NewCondition(field FieldDescriptor) Condition {
	op := DefaultOperatorFor(field.Type)
	return Condition{
		ID:       uuid.New().String(),
		Field:    field.ID,
		Operator: op.Value,
		Value:    DefaultValueFor(op, field.Type),
	}
}

// NewEmptyTree builds a root AND group holding exactly one default
// condition on the given field.
func NewEmptyTree(defaultField FieldDescriptor) FilterTree {
	return Group{
		ID:         uuid.New().String(),
		Logic:      LogicAnd,
		Conditions: []Node{NewCondition(defaultField)},
	}
}

// EnsureIDs assigns fresh identifiers to every node that lacks one.
// Idempotent: nodes that already carry an identifier are untouched, so
// re-running on an identified tree changes nothing.
func EnsureIDs(tree FilterTree) FilterTree {
	return ensureGroupIDs(tree)
}

func ensureGroupIDs(g Group) Group {
	out := g
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.Logic == "" {
		out.Logic = LogicAnd
	}
	out.Conditions = make([]Node, len(g.Conditions))
	for i, child := range g.Conditions {
		switch node := child.(type) {
		case Group:
			out.Conditions[i] = ensureGroupIDs(node)
		case Condition:
			if node.ID == "" {
				node.ID = uuid.New().String()
			}
			out.Conditions[i] = node
		default:
			out.Conditions[i] = child
		}
	}
	return out
}

// CloneTree deep-copies a filter tree. Edits to the copy never alias the
// original's children.
func CloneTree(tree FilterTree) FilterTree {
	return cloneGroup(tree)
}

func cloneGroup(g Group) Group {
	out := g
	out.Conditions = make([]Node, len(g.Conditions))
	for i, child := range g.Conditions {
		switch node := child.(type) {
		case Group:
			out.Conditions[i] = cloneGroup(node)
		case Condition:
			node.Value = cloneValue(node.Value)
			out.Conditions[i] = node
		default:
			out.Conditions[i] = child
		}
	}
	return out
}

func cloneValue(v Value) Value {
	if v.list == nil {
		return v
	}
	list := make([]string, len(v.list))
	copy(list, v.list)
	v.list = list
	return v
}

// IsEmptyTree reports whether the tree carries no condition leaves at all.
// An empty tree is the universal match-everything sentinel.
func IsEmptyTree(tree FilterTree) bool {
	return countConditions(tree) == 0
}

func countConditions(g Group) int {
	total := 0
	for _, child := range g.Conditions {
		switch node := child.(type) {
		case Group:
			total += countConditions(node)
		case Condition:
			_ = node
			total++
		}
	}
	return total
}

// ParseFilterTree decodes a raw filter payload. `{}`, `null`, and the empty
// string all decode to (zero tree, false): the match-everything sentinel.
func ParseFilterTree(raw []byte) (FilterTree, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == "{}" {
		return Group{}, false, nil
	}
	var tree Group
	if err := json.Unmarshal(trimmed, &tree); err != nil {
		return Group{}, false, fmt.Errorf("decode filter tree: %w", err)
	}
	if IsEmptyTree(tree) {
		return Group{}, false, nil
	}
	return EnsureIDs(tree), true, nil
}
