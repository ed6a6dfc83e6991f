package extract

// Kind classifies an attribute value before it is admitted into the
// result map. Only strings and homogeneous string lists are storable;
// numbers, booleans, objects and mixed arrays are KindInvalid.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindStringList
)

// Classify tags a raw field value and returns its normalized form:
// KindString yields a string, KindStringList a []string (JSON arrays
// arrive as []any and are converted). KindInvalid yields nil.
func Classify(v any) (any, Kind) {
	switch t := v.(type) {
	case string:
		return t, KindString
	case []string:
		return t, KindStringList
	case []any:
		out := make([]string, 0, len(t))
		for _, elem := range t {
			s, ok := elem.(string)
			if !ok {
				return nil, KindInvalid
			}
			out = append(out, s)
		}
		return out, KindStringList
	default:
		return nil, KindInvalid
	}
}

// isFalsy mirrors the truthiness rules the upstream IdP payloads are
// judged by: nil, empty string, false and numeric zero are all "no
// value". Empty arrays and empty objects are values.
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	default:
		return false
	}
}
