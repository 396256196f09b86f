package contacts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FieldKind selects how a field value is canonicalized.
type FieldKind int

const (
	// KindText covers free text fields: name, phone, city.
	KindText FieldKind = iota
	// KindOptIn covers boolean consent flags.
	KindOptIn
)

// Normalize canonicalizes raw so that two representations of the same
// logical value compare equal. KindOptIn yields a bool, KindText a string.
func Normalize(kind FieldKind, raw any) any {
	if kind == KindOptIn {
		return NormalizeOptIn(raw)
	}
	return NormalizeText(raw)
}

// NormalizeOptIn reads a consent flag. Only booleans, the integer 1 and the
// strings true/1/yes count as consent; floats and anything unrecognized are
// false.
func NormalizeOptIn(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case int:
		return v == 1
	case int32:
		return v == 1
	case int64:
		return v == 1
	case json.Number:
		// Integer form only; "1.0" is not a consent flag
		n, err := v.Int64()
		return err == nil && n == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		}
		return false
	default:
		return false
	}
}

// NormalizeText returns the trimmed string form of raw; nil becomes "".
func NormalizeText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
