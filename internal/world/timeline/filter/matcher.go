package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/loreweave/loreweave/internal/world/event"
)

// EventFields is the per-event view a predicate evaluates against. It
// mirrors the columns the SQL translation targets.
type EventFields struct {
	EntityID   string
	EntityKind event.EntityKind
	Event      event.Event
}

// Predicate reports whether an event matches a parsed filter.
type Predicate func(EventFields) bool

// ParseEventPredicate parses an AIP-160 filter expression into an in-memory
// predicate over timeline events. An empty filter matches everything.
func ParseEventPredicate(filterStr string) (Predicate, error) {
	if strings.TrimSpace(filterStr) == "" {
		return func(EventFields) bool { return true }, nil
	}

	decls, err := EventDeclarations()
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}

	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}

	return compileExpr(parsed.CheckedExpr.Expr)
}

func compileExpr(e *expr.Expr) (Predicate, error) {
	if e == nil {
		return func(EventFields) bool { return true }, nil
	}

	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return nil, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}
	return compileCall(call.CallExpr)
}

func compileCall(call *expr.Expr_Call) (Predicate, error) {
	switch call.Function {
	case "_&&_", "AND":
		return compileLogical(call.Args, true)
	case "_||_", "OR":
		return compileLogical(call.Args, false)
	case "_==_", "=":
		return compileComparison(call.Args, "=")
	case "_!=_", "!=":
		return compileComparison(call.Args, "!=")
	case "_<_", "<":
		return compileComparison(call.Args, "<")
	case "_<=_", "<=":
		return compileComparison(call.Args, "<=")
	case "_>_", ">":
		return compileComparison(call.Args, ">")
	case "_>=_", ">=":
		return compileComparison(call.Args, ">=")
	default:
		return nil, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func compileLogical(args []*expr.Expr, all bool) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("logical operator requires 2 arguments")
	}
	left, err := compileExpr(args[0])
	if err != nil {
		return nil, err
	}
	right, err := compileExpr(args[1])
	if err != nil {
		return nil, err
	}
	if all {
		return func(f EventFields) bool { return left(f) && right(f) }, nil
	}
	return func(f EventFields) bool { return left(f) || right(f) }, nil
}

func compileComparison(args []*expr.Expr, op string) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return nil, err
	}
	if _, ok := fieldMapping[field]; !ok {
		return nil, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return nil, err
	}

	return func(f EventFields) bool {
		return compare(fieldValue(field, f), value, op)
	}, nil
}

// fieldValue resolves a filter field on one event, using the same
// representations the sqlite columns store.
func fieldValue(field string, f EventFields) any {
	switch field {
	case "entity_id":
		return f.EntityID
	case "entity_kind":
		return string(f.EntityKind)
	case "kind":
		return string(f.Event.Kind)
	case "title":
		return f.Event.Title
	case "location_id":
		return f.Event.LocationID
	case "significance":
		return int64(f.Event.Significance)
	case "filtered":
		return f.Event.Filtered
	case "ts":
		return f.Event.Timestamp.UTC().UnixMilli()
	}
	return nil
}

func compare(have, want any, op string) bool {
	switch h := have.(type) {
	case string:
		w, ok := want.(string)
		if !ok {
			return false
		}
		return compareOrdered(strings.Compare(h, w), op)
	case int64:
		w, ok := toInt64(want)
		if !ok {
			return false
		}
		return compareOrdered(compareInt64(h, w), op)
	case bool:
		w, ok := want.(bool)
		if !ok {
			return false
		}
		switch op {
		case "=":
			return h == w
		case "!=":
			return h != w
		}
		return false
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareOrdered(cmp int, op string) bool {
	switch op {
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}
