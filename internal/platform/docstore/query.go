package docstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// Kind selects how a JSON field is cast before comparison or sorting.
type Kind int

const (
	Text Kind = iota
	Number
	Time
)

// Op is a comparison operator usable in a Filter.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "<>"
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpIn  Op = "IN"
)

// ErrInvalidQuery reports a malformed field path or operator.
var ErrInvalidQuery = fmt.Errorf("docstore: invalid query: %w", shared.ErrValidation)

var (
	fieldPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)
	likeEscaper  = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// Filter restricts results to documents whose field compares to Value.
type Filter struct {
	Field string
	Op    Op
	Value any
	Kind  Kind
}

// Search matches Term case-insensitively as a substring of any of Fields.
type Search struct {
	Term   string
	Fields []string
}

// Sort orders results by a field.
type Sort struct {
	Field string
	Kind  Kind
	Desc  bool
}

// Query describes a list request against one collection.
type Query struct {
	Filters []Filter
	Search  *Search
	Sort    []Sort
	Limit   int
	Offset  int
}

// Where appends a filter and returns the query for chaining.
func (q Query) Where(field string, op Op, value any, kind Kind) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: value, Kind: kind})
	return q
}

// column fields are stored outside the JSON document.
var columns = map[string]Kind{
	"id":         Text,
	"created_at": Time,
	"updated_at": Time,
}

func fieldExpr(field string, kind Kind) (string, error) {
	if !fieldPattern.MatchString(field) {
		return "", fmt.Errorf("%w: field %q", ErrInvalidQuery, field)
	}
	if _, ok := columns[field]; ok {
		return field, nil
	}
	var raw string
	if strings.Contains(field, ".") {
		raw = fmt.Sprintf("(doc#>>'{%s}')", strings.ReplaceAll(field, ".", ","))
	} else {
		raw = fmt.Sprintf("(doc->>'%s')", field)
	}
	switch kind {
	case Number:
		return raw + "::numeric", nil
	case Time:
		return raw + "::timestamptz", nil
	default:
		return raw, nil
	}
}

func validOp(op Op) bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn:
		return true
	}
	return false
}

// build renders the SELECT for table. Every row carries the total match count.
func (q Query) build(table string) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	placeholder := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	for _, f := range q.Filters {
		if !validOp(f.Op) {
			return "", nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
		}
		expr, err := fieldExpr(f.Field, f.Kind)
		if err != nil {
			return "", nil, err
		}
		if f.Op == OpIn {
			where = append(where, fmt.Sprintf("%s = ANY(%s)", expr, placeholder(f.Value)))
			continue
		}
		where = append(where, fmt.Sprintf("%s %s %s", expr, f.Op, placeholder(f.Value)))
	}

	if q.Search != nil && strings.TrimSpace(q.Search.Term) != "" && len(q.Search.Fields) > 0 {
		p := placeholder("%" + likeEscaper.Replace(strings.TrimSpace(q.Search.Term)) + "%")
		parts := make([]string, 0, len(q.Search.Fields))
		for _, field := range q.Search.Fields {
			expr, err := fieldExpr(field, Text)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, fmt.Sprintf("%s ILIKE %s", expr, p))
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, doc, COUNT(*) OVER() FROM ")
	sb.WriteString(table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	order := make([]string, 0, len(q.Sort)+1)
	for _, s := range q.Sort {
		expr, err := fieldExpr(s.Field, s.Kind)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		order = append(order, expr+" "+dir)
	}
	order = append(order, "id ASC")
	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(order, ", "))

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(placeholder(q.Limit))
	}
	if q.Offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(placeholder(q.Offset))
	}
	return sb.String(), args, nil
}
