package domain

// ValueShape classifies what kind of value a condition carries for a given
// operator. The editor uses it to decide which reset to apply on operator
// change; the rendering layer uses it to pick an input widget.
type ValueShape string

const (
	// ValueShapeScalar is a single free-text value.
	ValueShapeScalar ValueShape = "scalar"
	// ValueShapePair is a two-element inclusive range.
	ValueShapePair ValueShape = "pair"
	// ValueShapeList is a set of selected option values.
	ValueShapeList ValueShape = "list"
	// ValueShapeNumericCount is a day count ("N days from now").
	ValueShapeNumericCount ValueShape = "numericCount"
	// ValueShapeOverride means the operator fixes the value itself and the
	// user supplies nothing.
	ValueShapeOverride ValueShape = "override"
)

// Operator codes understood by the query translator.
const (
	OpExact       = "exact"
	OpContains    = "icontains"
	OpStartsWith  = "istartswith"
	OpEndsWith    = "iendswith"
	OpGreaterThan = "gt"
	OpLessThan    = "lt"
	OpGTE         = "gte"
	OpLTE         = "lte"
	OpBetween     = "between"
	OpIn          = "in"
	OpIsNull      = "isnull"
	OpToday       = "today"
	OpYesterday   = "yesterday"
	OpTomorrow    = "tomorrow"
	OpAfterToday  = "after_today"
	OpBeforeToday = "before_today"
	OpPastNDays   = "past_n_days"
	OpFutureNDays = "future_n_days"
)

// NumericCountDefault is the day count preselected when a rolling-window
// operator is chosen. Saved views created under this default depend on it,
// so it must not change.
const NumericCountDefault = "15"

// OperatorDescriptor describes one operator choice for a field type. When
// ValueOverride is non-nil the condition value is forced to that constant
// and no value input is shown.
type OperatorDescriptor struct {
	Label         string `json:"label"`
	Value         string `json:"value"`
	ValueOverride any    `json:"valueOverride,omitempty"`
	Shape         ValueShape
}

// Per-type operator lists. The first entry of each list is the type's
// default operator, applied when a condition's field changes to a field of
// that type.
var (
	stringOperators = []OperatorDescriptor{
		{Label: "Contains", Value: OpContains, Shape: ValueShapeScalar},
		{Label: "Equals", Value: OpExact, Shape: ValueShapeScalar},
		{Label: "Starts with", Value: OpStartsWith, Shape: ValueShapeScalar},
		{Label: "Ends with", Value: OpEndsWith, Shape: ValueShapeScalar},
		{Label: "Is set", Value: OpIsNull, ValueOverride: false, Shape: ValueShapeOverride},
		{Label: "Is not set", Value: OpIsNull, ValueOverride: true, Shape: ValueShapeOverride},
	}

	numberOperators = []OperatorDescriptor{
		{Label: "Equals", Value: OpExact, Shape: ValueShapeScalar},
		{Label: "Greater than", Value: OpGreaterThan, Shape: ValueShapeScalar},
		{Label: "Less than", Value: OpLessThan, Shape: ValueShapeScalar},
		{Label: "At least", Value: OpGTE, Shape: ValueShapeScalar},
		{Label: "At most", Value: OpLTE, Shape: ValueShapeScalar},
		{Label: "Between", Value: OpBetween, Shape: ValueShapePair},
		{Label: "Is set", Value: OpIsNull, ValueOverride: false, Shape: ValueShapeOverride},
		{Label: "Is not set", Value: OpIsNull, ValueOverride: true, Shape: ValueShapeOverride},
	}

	dateOperators = []OperatorDescriptor{
		{Label: "Today", Value: OpToday, ValueOverride: OpToday, Shape: ValueShapeOverride},
		{Label: "Yesterday", Value: OpYesterday, ValueOverride: OpYesterday, Shape: ValueShapeOverride},
		{Label: "Tomorrow", Value: OpTomorrow, ValueOverride: OpTomorrow, Shape: ValueShapeOverride},
		{Label: "After today", Value: OpAfterToday, ValueOverride: OpAfterToday, Shape: ValueShapeOverride},
		{Label: "Before today", Value: OpBeforeToday, ValueOverride: OpBeforeToday, Shape: ValueShapeOverride},
		{Label: "In the past N days", Value: OpPastNDays, Shape: ValueShapeNumericCount},
		{Label: "In the next N days", Value: OpFutureNDays, Shape: ValueShapeNumericCount},
		{Label: "Between", Value: OpBetween, Shape: ValueShapePair},
		{Label: "On", Value: OpExact, Shape: ValueShapeScalar},
		{Label: "Is set", Value: OpIsNull, ValueOverride: false, Shape: ValueShapeOverride},
		{Label: "Is not set", Value: OpIsNull, ValueOverride: true, Shape: ValueShapeOverride},
	}

	selectOperators = []OperatorDescriptor{
		{Label: "Is any of", Value: OpIn, Shape: ValueShapeList},
		{Label: "Equals", Value: OpExact, Shape: ValueShapeScalar},
		{Label: "Is set", Value: OpIsNull, ValueOverride: false, Shape: ValueShapeOverride},
		{Label: "Is not set", Value: OpIsNull, ValueOverride: true, Shape: ValueShapeOverride},
	}

	userOperators = []OperatorDescriptor{
		{Label: "Is any of", Value: OpIn, Shape: ValueShapeList},
		{Label: "Equals", Value: OpExact, Shape: ValueShapeScalar},
		{Label: "Is set", Value: OpIsNull, ValueOverride: false, Shape: ValueShapeOverride},
		{Label: "Is not set", Value: OpIsNull, ValueOverride: true, Shape: ValueShapeOverride},
	}

	booleanOperators = []OperatorDescriptor{
		{Label: "Equals", Value: OpExact, Shape: ValueShapeScalar},
	}
)

// OperatorsFor returns the ordered operator list for a field type. An
// unrecognized type falls back to the string operator list so the editor
// never fails on a stale or unknown field.
func OperatorsFor(fieldType FieldType) []OperatorDescriptor {
	switch fieldType {
	case FieldTypeString:
		return stringOperators
	case FieldTypeNumber:
		return numberOperators
	case FieldTypeDate:
		return dateOperators
	case FieldTypeSelect:
		return selectOperators
	case FieldTypeUser:
		return userOperators
	case FieldTypeBoolean:
		return booleanOperators
	default:
		return stringOperators
	}
}

// DefaultOperatorFor returns the first operator of the type's list.
func DefaultOperatorFor(fieldType FieldType) OperatorDescriptor {
	return OperatorsFor(fieldType)[0]
}

// ValueShapeFor classifies the value shape required by an operator code,
// independent of field type. Codes not in the table are plain scalars.
func ValueShapeFor(operator string) ValueShape {
	switch operator {
	case OpIsNull, OpToday, OpYesterday, OpTomorrow, OpAfterToday, OpBeforeToday:
		return ValueShapeOverride
	case OpBetween:
		return ValueShapePair
	case OpPastNDays, OpFutureNDays:
		return ValueShapeNumericCount
	case OpIn:
		return ValueShapeList
	default:
		return ValueShapeScalar
	}
}

// DefaultValueFor produces the empty value of the correct shape for an
// operator chosen on a field of the given type.
func DefaultValueFor(descriptor OperatorDescriptor, fieldType FieldType) Value {
	if descriptor.ValueOverride != nil {
		return valueFromOverride(descriptor.ValueOverride)
	}
	switch descriptor.Shape {
	case ValueShapePair:
		return PairValue("", "")
	case ValueShapeNumericCount:
		return ScalarValue(NumericCountDefault)
	case ValueShapeList:
		return ListValue()
	default:
		return ScalarValue("")
	}
}

func valueFromOverride(override any) Value {
	switch v := override.(type) {
	case bool:
		return BoolValue(v)
	case string:
		return ScalarValue(v)
	default:
		return ScalarValue("")
	}
}
