package index

import (
	"errors"
	"regexp"
	"strings"

	"flatdb/record"
)

// Supported operators in operator-expression conditions.
const (
	OpGt      = "$gt"
	OpLt      = "$lt"
	OpGte     = "$gte"
	OpLte     = "$lte"
	OpNe      = "$ne"
	OpIn      = "$in"
	OpBetween = "$between"
	OpLike    = "$like"
)

// MatchesAll reports whether every field condition of q holds for rec.
func MatchesAll(rec *record.Record, q record.Query) bool {
	for field, spec := range q {
		if !Matches(rec, field, spec) {
			return false
		}
	}
	return true
}

// Matches evaluates one field condition. A plain value compares for
// equality, with an absent field reading as Null. An operator-expression
// must satisfy every operator it names. Malformed operands and
// type-incompatible comparisons are non-matches, never errors.
func Matches(rec *record.Record, field string, spec record.Value) bool {
	if expr, ok := record.OperatorExpr(spec); ok {
		v, _ := rec.Get(field)
		for _, op := range expr.Keys() {
			operand, _ := expr.Get(op)
			if !matchOp(v, op, operand) {
				return false
			}
		}
		return true
	}

	v, ok := rec.Get(field)
	if !ok {
		v = record.Null{}
	}
	return record.Equal(v, spec)
}

func matchOp(v record.Value, op string, operand record.Value) bool {
	switch op {
	case OpGt, OpLt, OpGte, OpLte:
		if isNull(v) {
			return false
		}
		c, ok := record.Compare(v, operand)
		if !ok {
			return false
		}
		switch op {
		case OpGt:
			return c > 0
		case OpLt:
			return c < 0
		case OpGte:
			return c >= 0
		default:
			return c <= 0
		}

	case OpNe:
		return !record.Equal(nullable(v), operand)

	case OpIn:
		list, ok := operand.(record.List)
		if !ok {
			return false
		}
		for _, member := range list {
			if record.Equal(nullable(v), member) {
				return true
			}
		}
		return false

	case OpBetween:
		list, ok := operand.(record.List)
		if !ok || len(list) != 2 || isNull(v) {
			return false
		}
		lo, okLo := record.Compare(v, list[0])
		hi, okHi := record.Compare(v, list[1])
		return okLo && okHi && lo >= 0 && hi <= 0

	case OpLike:
		s, ok := v.(record.String)
		if !ok {
			return false
		}
		re, err := likePattern(operand)
		if err != nil {
			return false
		}
		return re.MatchString(string(s))
	}

	// Unknown operator: degrade to non-match rather than failing the query.
	return false
}

func isNull(v record.Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(record.Null)
	return ok
}

func nullable(v record.Value) record.Value {
	if v == nil {
		return record.Null{}
	}
	return v
}

// likeCache memoizes compiled patterns. The store is a single-actor
// library, so plain map access is fine here.
var likeCache = map[string]*regexp.Regexp{}

// likePattern translates a SQL-style pattern to a regexp: '%' is any run
// of characters, '_' exactly one, matching is case-insensitive. The
// pattern is anchored at the start unless it begins with '%', and at the
// end unless it ends with '%'.
func likePattern(operand record.Value) (*regexp.Regexp, error) {
	s, ok := operand.(record.String)
	if !ok {
		return nil, errNotAPattern
	}
	p := string(s)
	if re, ok := likeCache[p]; ok {
		return re, nil
	}

	var sb strings.Builder
	sb.WriteString("(?is)")
	if !strings.HasPrefix(p, "%") {
		sb.WriteString("^")
	}
	for _, r := range p {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if !strings.HasSuffix(p, "%") {
		sb.WriteString("$")
	}

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, err
	}
	likeCache[p] = re
	return re, nil
}

var errNotAPattern = errors.New("like operand is not a string pattern")
