package models

// Kind tags a Field as either an extracted value or one of the reserved sentinels.
type Kind uint8

const (
	KindValue Kind = iota
	KindOpen
	KindUnknown
	KindCheckLink
	KindTimeout
	KindError
	KindNotFound
)

var sentinelText = map[Kind]string{
	KindOpen:      "Open / Unspecified",
	KindUnknown:   "Unknown",
	KindCheckLink: "Check Link",
	KindTimeout:   "Timeout - Check Manually",
	KindError:     "Error",
	KindNotFound:  "Not Found",
}

// Field holds either a real extracted string or a sentinel. The zero Field is
// the Unknown sentinel so a record never carries an absent date.
type Field struct {
	kind  Kind
	value string
	set   bool
}

// Value wraps an extracted string.
func Value(s string) Field {
	return Field{kind: KindValue, value: s, set: true}
}

// Sentinel returns the reserved Field for kind. KindValue is coerced to Unknown.
func Sentinel(kind Kind) Field {
	if _, ok := sentinelText[kind]; !ok {
		kind = KindUnknown
	}
	return Field{kind: kind, set: true}
}

// Kind reports the tag of f.
func (f Field) Kind() Kind {
	if !f.set {
		return KindUnknown
	}
	return f.kind
}

// IsSentinel reports whether f stands in for missing or failed data.
func (f Field) IsSentinel() bool {
	return f.Kind() != KindValue
}

// String renders f using the output vocabulary.
func (f Field) String() string {
	if f.Kind() == KindValue {
		return f.value
	}
	return sentinelText[f.Kind()]
}

// Equal reports whether f and other carry the same kind and text.
func (f Field) Equal(other Field) bool {
	return f.Kind() == other.Kind() && f.String() == other.String()
}

// MarshalText keeps JSON and other text encoders on the output vocabulary.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Label is the machine-friendly name used for metrics and logs.
func (k Kind) Label() string {
	switch k {
	case KindValue:
		return "value"
	case KindOpen:
		return "open"
	case KindUnknown:
		return "unknown"
	case KindCheckLink:
		return "check_link"
	case KindTimeout:
		return "timeout"
	case KindError:
		return "error"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
