// Package query compiles filter trees into SQL predicates. It is the
// backend half of the filter contract: whatever the editor can express,
// this package must evaluate against the record store.
package query

import (
	"fmt"
	"strings"
	"time"

	"crm-api/internal/domain"
)

// Context carries the evaluation-time inputs a filter tree cannot be
// resolved without: the acting user (for the "me" sentinel) and the
// reference clock/timezone for calendar-day operators. The sentinel and
// the date vocabulary are resolved here and nowhere earlier, so a saved
// view containing "me" or "today" floats with whoever runs it and when.
type Context struct {
	ActingUserID string
	Now          func() time.Time
	Location     *time.Location
}

func (c Context) now() time.Time {
	if c.Now != nil {
		return c.Now().In(c.location())
	}
	return time.Now().In(c.location())
}

func (c Context) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.Local
}

// Translator compiles filter trees, search terms, sorting, and pagination
// for one entity table.
type Translator struct {
	columns       map[string]string
	userColumns   map[string]bool
	dateColumns   map[string]bool
	searchColumns []string
	defaultSort   domain.SortSpec
}

// NewTranslator builds a translator from a field-to-column mapping.
// userColumns marks which fields hold user references and therefore
// understand the "me" sentinel; dateColumns marks timestamp fields whose
// "On" comparison means the calendar day, not the exact instant.
func NewTranslator(columns map[string]string, userColumns, dateColumns, searchColumns []string, defaultSort domain.SortSpec) *Translator {
	users := make(map[string]bool, len(userColumns))
	for _, field := range userColumns {
		users[field] = true
	}
	dates := make(map[string]bool, len(dateColumns))
	for _, field := range dateColumns {
		dates[field] = true
	}
	return &Translator{
		columns:       columns,
		userColumns:   users,
		dateColumns:   dates,
		searchColumns: searchColumns,
		defaultSort:   defaultSort,
	}
}

// ClientTranslator translates filters over the clients table.
func ClientTranslator() *Translator {
	return NewTranslator(
		map[string]string{
			"name":       "c.name",
			"email":      "c.email",
			"phone":      "c.phone",
			"address":    "c.address",
			"owner":      "c.owner_id",
			"created_at": "c.created_at",
			"updated_at": "c.updated_at",
		},
		[]string{"owner"},
		[]string{"created_at", "updated_at"},
		[]string{"c.name", "c.email"},
		domain.SortSpec{Field: "created_at", Direction: domain.SortDesc},
	)
}

// TaskTranslator translates filters over the tasks table joined to its
// client.
func TaskTranslator() *Translator {
	return NewTranslator(
		map[string]string{
			"title":            "t.title",
			"status":           "t.status",
			"priority":         "t.priority",
			"due_date":         "t.due_date",
			"completed_at":     "t.completed_at",
			"client":           "t.client_id",
			"client_name":      "c.name",
			"assigned_to":      "t.assigned_to_id",
			"assigned_to_name": "u.username",
			"created_at":       "t.created_at",
			"updated_at":       "t.updated_at",
		},
		[]string{"assigned_to"},
		[]string{"due_date", "completed_at", "created_at", "updated_at"},
		[]string{"t.title"},
		domain.SortSpec{Field: "created_at", Direction: domain.SortDesc},
	)
}

// builder accumulates a WHERE fragment with positional args. Placeholders
// continue from argOffset so callers can prepend their own parameters.
type builder struct {
	args      []any
	argOffset int
}

func (b *builder) bind(value any) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", b.argOffset+len(b.args))
}

// Where compiles a filter tree into a SQL predicate and its args. An empty
// tree compiles to ("", nil): match everything. argOffset is the number of
// parameters the caller has already placed before these.
func (t *Translator) Where(tree domain.FilterTree, qctx Context, argOffset int) (string, []any) {
	if domain.IsEmptyTree(tree) {
		return "", nil
	}
	b := &builder{argOffset: argOffset}
	clause := t.groupClause(tree, qctx, b)
	if clause == "" {
		return "", nil
	}
	return clause, b.args
}

// Search compiles a free-text search term into an OR predicate over the
// entity's search columns, independent of any filter tree.
func (t *Translator) Search(term string, argOffset int) (string, []any) {
	term = strings.TrimSpace(term)
	if term == "" || len(t.searchColumns) == 0 {
		return "", nil
	}
	b := &builder{argOffset: argOffset}
	pattern := b.bind("%" + escapeLike(term) + "%")
	parts := make([]string, len(t.searchColumns))
	for i, col := range t.searchColumns {
		parts[i] = fmt.Sprintf("%s ILIKE %s", col, pattern)
	}
	return "(" + strings.Join(parts, " OR ") + ")", b.args
}

// OrderBy compiles a sort spec, falling back to the translator's default
// when the field is unknown. The output is assembled purely from the
// static column map, never from request input.
func (t *Translator) OrderBy(sort domain.SortSpec) string {
	column, ok := t.columns[sort.Field]
	if !ok {
		column = t.columns[t.defaultSort.Field]
		sort.Direction = t.defaultSort.Direction
	}
	dir := "ASC"
	if sort.Direction == domain.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s NULLS LAST", column, dir)
}

// groupClause compiles a group. Degraded children compile to "" and are
// dropped from the combination, so they are identities under AND and OR
// alike; a group whose every child degrades compiles to "" itself.
func (t *Translator) groupClause(g domain.Group, qctx Context, b *builder) string {
	parts := make([]string, 0, len(g.Conditions))
	for _, child := range g.Conditions {
		var clause string
		switch node := child.(type) {
		case domain.Group:
			clause = t.groupClause(node, qctx, b)
		case domain.Condition:
			clause = t.conditionClause(node, qctx, b)
		}
		if clause != "" {
			parts = append(parts, clause)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	joiner := " AND "
	if g.Logic == domain.LogicOr {
		joiner = " OR "
	}
	return "(" + strings.Join(parts, joiner) + ")"
}

// conditionClause translates one leaf. Unknown fields and operators and
// incomplete values degrade to "" rather than erroring: the parent group
// drops the leaf and the remaining conditions still filter, so a stale
// saved view never breaks the listing and never widens an OR group. The
// one non-identity degradation is an empty in-list, which matches
// nothing.
func (t *Translator) conditionClause(cond domain.Condition, qctx Context, b *builder) string {
	column, ok := t.columns[cond.Field]
	if !ok {
		return ""
	}
	if t.userColumns[cond.Field] {
		return t.userClause(column, cond, qctx, b)
	}

	switch cond.Operator {
	case domain.OpExact:
		if t.dateColumns[cond.Field] {
			return dayEqualClause(column, cond.Value, qctx, b)
		}
		return fmt.Sprintf("%s::text = %s", column, b.bind(cond.Value.Scalar()))
	case domain.OpContains:
		return likeClause(column, "%"+escapeLike(cond.Value.Scalar())+"%", cond.Value, b)
	case domain.OpStartsWith:
		return likeClause(column, escapeLike(cond.Value.Scalar())+"%", cond.Value, b)
	case domain.OpEndsWith:
		return likeClause(column, "%"+escapeLike(cond.Value.Scalar()), cond.Value, b)
	case domain.OpGreaterThan:
		return fmt.Sprintf("%s > %s", column, b.bind(cond.Value.Scalar()))
	case domain.OpLessThan:
		return fmt.Sprintf("%s < %s", column, b.bind(cond.Value.Scalar()))
	case domain.OpGTE:
		return fmt.Sprintf("%s >= %s", column, b.bind(cond.Value.Scalar()))
	case domain.OpLTE:
		return fmt.Sprintf("%s <= %s", column, b.bind(cond.Value.Scalar()))
	case domain.OpBetween:
		low, high := cond.Value.Pair()
		if low == "" || high == "" {
			return ""
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", column, b.bind(low), b.bind(high))
	case domain.OpIn:
		values := cond.Value.List()
		if len(values) == 0 {
			return "FALSE"
		}
		return fmt.Sprintf("%s::text = ANY(%s)", column, b.bind(values))
	case domain.OpIsNull:
		if cond.Value.Bool() {
			return fmt.Sprintf("%s IS NULL", column)
		}
		return fmt.Sprintf("%s IS NOT NULL", column)
	case domain.OpToday:
		start, end := dayBounds(qctx, 0)
		return rangeClause(column, start, end, b)
	case domain.OpYesterday:
		start, end := dayBounds(qctx, -1)
		return rangeClause(column, start, end, b)
	case domain.OpTomorrow:
		start, end := dayBounds(qctx, 1)
		return rangeClause(column, start, end, b)
	case domain.OpAfterToday:
		_, end := dayBounds(qctx, 0)
		return fmt.Sprintf("%s >= %s", column, b.bind(end))
	case domain.OpBeforeToday:
		start, _ := dayBounds(qctx, 0)
		return fmt.Sprintf("%s < %s", column, b.bind(start))
	case domain.OpPastNDays:
		n := dayCount(cond.Value)
		return fmt.Sprintf("%s >= %s", column, b.bind(qctx.now().AddDate(0, 0, -n)))
	case domain.OpFutureNDays:
		n := dayCount(cond.Value)
		return fmt.Sprintf("%s <= %s", column, b.bind(qctx.now().AddDate(0, 0, n)))
	default:
		return ""
	}
}

// userClause handles user-reference fields, resolving the "me" sentinel to
// the acting principal at translation time.
func (t *Translator) userClause(column string, cond domain.Condition, qctx Context, b *builder) string {
	switch cond.Operator {
	case domain.OpIsNull:
		if cond.Value.Bool() {
			return fmt.Sprintf("%s IS NULL", column)
		}
		return fmt.Sprintf("%s IS NOT NULL", column)
	case domain.OpIn:
		raw := cond.Value.List()
		if len(raw) == 0 {
			return "FALSE"
		}
		resolved := make([]string, 0, len(raw))
		for _, item := range raw {
			resolved = append(resolved, domain.ParseUserRef(item).Resolve(qctx.ActingUserID))
		}
		return fmt.Sprintf("%s::text = ANY(%s)", column, b.bind(resolved))
	default:
		// exact, and any legacy scalar-valued operator
		value := cond.Value.Scalar()
		if value == "" {
			if list := cond.Value.List(); len(list) == 1 {
				value = list[0]
			}
		}
		if value == "" {
			return ""
		}
		resolved := domain.ParseUserRef(value).Resolve(qctx.ActingUserID)
		return fmt.Sprintf("%s::text = %s", column, b.bind(resolved))
	}
}

func likeClause(column, pattern string, value domain.Value, b *builder) string {
	// A blank search term matches everything; emit no predicate for it.
	if value.Scalar() == "" {
		return ""
	}
	return fmt.Sprintf("%s ILIKE %s", column, b.bind(pattern))
}

// dayEqualClause compiles "On <day>" for a timestamp column: any instant
// within the named calendar day in the reference timezone. An unparseable
// day degrades like any other incomplete value.
func dayEqualClause(column string, value domain.Value, qctx Context, b *builder) string {
	raw := strings.TrimSpace(value.Scalar())
	if raw == "" {
		return ""
	}
	day, err := time.ParseInLocation("2006-01-02", raw, qctx.location())
	if err != nil {
		return ""
	}
	return rangeClause(column, day, day.AddDate(0, 0, 1), b)
}

func rangeClause(column string, start, end time.Time, b *builder) string {
	return fmt.Sprintf("(%s >= %s AND %s < %s)", column, b.bind(start), column, b.bind(end))
}

// dayBounds returns the half-open [start, end) bounds of the calendar day
// offset days from today in the context's reference timezone.
func dayBounds(qctx Context, offset int) (time.Time, time.Time) {
	now := qctx.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, qctx.location()).AddDate(0, 0, offset)
	return start, start.AddDate(0, 0, 1)
}

func dayCount(value domain.Value) int {
	n := 0
	_, _ = fmt.Sscanf(strings.TrimSpace(value.Scalar()), "%d", &n)
	if n < 0 {
		n = 0
	}
	return n
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
