package ir

import (
	"cmp"
	"strings"

	"github.com/google/uuid"
)

// Normalize reduces a value to the primitive form used for comparison:
//   - Aliased unwraps to its inner value
//   - Reference unwraps to its id (GUID)
//   - OptionSetValue becomes Int
//   - Money becomes Float
//
// Other kinds are returned unchanged.
func Normalize(v Value) Value {
	switch val := Unwrap(v).(type) {
	case nil:
		return Null{}
	case Reference:
		return GUID(val.ID)
	case OptionSetValue:
		return Int(val)
	case Money:
		return Float(val)
	default:
		return val
	}
}

// Equal reports whether two values are equal after normalization.
// Null never equals anything, including Null (SQL semantics).
// String comparison is case-sensitive.
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Compare orders two values after normalization.
// The second result is false when either side is null or the kinds are not
// comparable (e.g. bool vs datetime).
//
// Cross-kind rules:
//   - Int and Float compare numerically
//   - GUID and String compare when the string parses as a UUID
func Compare(a, b Value) (int, bool) {
	na, nb := Normalize(a), Normalize(b)
	if IsNull(na) || IsNull(nb) {
		return 0, false
	}

	switch x := na.(type) {
	case String:
		switch y := nb.(type) {
		case String:
			return strings.Compare(string(x), string(y)), true
		case GUID:
			return compareGUIDString(y, string(x), true)
		}
	case Int:
		switch y := nb.(type) {
		case Int:
			return cmp.Compare(x, y), true
		case Float:
			return cmp.Compare(float64(x), float64(y)), true
		}
	case Float:
		switch y := nb.(type) {
		case Float:
			return cmp.Compare(x, y), true
		case Int:
			return cmp.Compare(float64(x), float64(y)), true
		}
	case Bool:
		if y, ok := nb.(Bool); ok {
			return compareBool(bool(x), bool(y)), true
		}
	case DateTime:
		if y, ok := nb.(DateTime); ok {
			return x.Time.Compare(y.Time), true
		}
	case GUID:
		switch y := nb.(type) {
		case GUID:
			return strings.Compare(x.String(), y.String()), true
		case String:
			return compareGUIDString(x, string(y), false)
		}
	}
	return 0, false
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareGUIDString compares a GUID against a string holding a UUID.
// When swapped is true the string is the left-hand operand.
func compareGUIDString(g GUID, s string, swapped bool) (int, bool) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return 0, false
	}
	c := strings.Compare(g.String(), parsed.String())
	if swapped {
		c = -c
	}
	return c, true
}
