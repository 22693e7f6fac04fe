package query

import (
	"regexp"
	"strings"

	"github.com/roach88/recordsim/internal/ir"
)

// matcher evaluates conditions. It caches compiled like patterns for the
// duration of one evaluation.
type matcher struct {
	likes map[string]*regexp.Regexp
}

func newMatcher() *matcher {
	return &matcher{likes: make(map[string]*regexp.Regexp)}
}

// match applies op to an attribute value and the condition operands.
// Absent attributes arrive as Null.
func (m *matcher) match(op Operator, v ir.Value, operands []ir.Value) bool {
	switch op {
	case Null:
		return ir.IsNull(v)
	case NotNull:
		return !ir.IsNull(v)
	case In:
		return anyEqual(v, operands)
	case NotIn:
		if len(operands) == 0 {
			return true
		}
		return !ir.IsNull(v) && !anyEqual(v, operands)
	}

	if ir.IsNull(v) || len(operands) == 0 {
		return false
	}
	first := operands[0]

	switch op {
	case Equal:
		return ir.Equal(v, first)
	case NotEqual:
		return !ir.Equal(v, first)
	case GreaterThan:
		return compareIs(v, first, func(c int) bool { return c > 0 })
	case GreaterEqual:
		return compareIs(v, first, func(c int) bool { return c >= 0 })
	case LessThan:
		return compareIs(v, first, func(c int) bool { return c < 0 })
	case LessEqual:
		return compareIs(v, first, func(c int) bool { return c <= 0 })
	case Between:
		return len(operands) == 2 && between(v, operands[0], operands[1])
	case NotBetween:
		return len(operands) == 2 && !between(v, operands[0], operands[1])
	case Like:
		return m.like(v, first)
	case NotLike:
		return textOf(v) != nil && !m.like(v, first)
	case BeginsWith:
		return textTest(v, first, strings.HasPrefix)
	case DoesNotBeginWith:
		return textOf(v) != nil && !textTest(v, first, strings.HasPrefix)
	case EndsWith:
		return textTest(v, first, strings.HasSuffix)
	case DoesNotEndWith:
		return textOf(v) != nil && !textTest(v, first, strings.HasSuffix)
	}
	return false
}

func anyEqual(v ir.Value, operands []ir.Value) bool {
	for _, o := range operands {
		if ir.Equal(v, o) {
			return true
		}
	}
	return false
}

func compareIs(a, b ir.Value, test func(int) bool) bool {
	c, ok := ir.Compare(a, b)
	return ok && test(c)
}

func between(v, lo, hi ir.Value) bool {
	return compareIs(v, lo, func(c int) bool { return c >= 0 }) &&
		compareIs(v, hi, func(c int) bool { return c <= 0 })
}

// textOf returns the string form of a text value, or nil for other kinds.
func textOf(v ir.Value) *string {
	if s, ok := ir.Unwrap(v).(ir.String); ok {
		str := string(s)
		return &str
	}
	return nil
}

// textTest applies a case-folded string predicate.
func textTest(v, operand ir.Value, test func(s, affix string) bool) bool {
	s, affix := textOf(v), textOf(operand)
	if s == nil || affix == nil {
		return false
	}
	return test(ir.Key(*s), ir.Key(*affix))
}

func (m *matcher) like(v, pattern ir.Value) bool {
	s, p := textOf(v), textOf(pattern)
	if s == nil || p == nil {
		return false
	}
	re, ok := m.likes[*p]
	if !ok {
		re = compileLike(*p)
		m.likes[*p] = re
	}
	return re.MatchString(*s)
}

// compileLike translates a SQL like pattern into a case-insensitive regular
// expression. % matches any run, _ one character, and [..] / [^..] a
// character class.
func compileLike(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		case '[':
			end := indexRune(runes[i+1:], ']')
			if end < 0 {
				b.WriteString(regexp.QuoteMeta(string(r)))
				continue
			}
			class := runes[i+1 : i+1+end]
			b.WriteByte('[')
			for j, c := range class {
				if j == 0 && c == '^' {
					b.WriteRune(c)
					continue
				}
				if c == '\\' || c == '[' || c == ']' {
					b.WriteByte('\\')
				}
				b.WriteRune(c)
			}
			b.WriteByte(']')
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return regexp.MustCompile(`^` + regexp.QuoteMeta(pattern) + `$`)
	}
	return re
}

func indexRune(rs []rune, target rune) int {
	for i, r := range rs {
		if r == target {
			return i
		}
	}
	return -1
}
