package store

import (
	"regexp"
	"strconv"
	"strings"
)

// Coercer converts raw text input for a column into its conceptual type.
// Coercion is advisory: text that does not parse is kept as-is.
type Coercer interface {
	// Coerce returns the parsed value (int64, float64, bool) or the
	// trimmed text when parsing fails.
	Coerce(text string) any
	// Normalize returns the canonical text form stored in the data file.
	Normalize(text string) string
}

var (
	integerPattern = regexp.MustCompile(`^[+-]?\d+$`)
	floatPattern   = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

type stringCoercer struct{}

func (stringCoercer) Coerce(text string) any        { return text }
func (stringCoercer) Normalize(text string) string { return text }

type integerCoercer struct{}

func (integerCoercer) Coerce(text string) any {
	t := strings.TrimSpace(text)
	if !integerPattern.MatchString(t) {
		return text
	}
	n, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		// Out of int64 range.
		return text
	}
	return n
}

func (c integerCoercer) Normalize(text string) string {
	if n, ok := c.Coerce(text).(int64); ok {
		return strconv.FormatInt(n, 10)
	}
	return text
}

type floatCoercer struct{}

func (floatCoercer) Coerce(text string) any {
	t := strings.TrimSpace(text)
	if !floatPattern.MatchString(t) {
		return text
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return text
	}
	return f
}

func (c floatCoercer) Normalize(text string) string {
	if f, ok := c.Coerce(text).(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return text
}

type booleanCoercer struct{}

func (booleanCoercer) Coerce(text string) any {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "yes", "y", "1":
		return true
	case "false", "no", "n", "0":
		return false
	}
	return text
}

func (c booleanCoercer) Normalize(text string) string {
	if b, ok := c.Coerce(text).(bool); ok {
		return strconv.FormatBool(b)
	}
	return text
}

// CoercerFor returns the coercion strategy for a field type.
// Types without a strategy (e.g. "date") are treated as strings.
func CoercerFor(ft FieldType) Coercer {
	switch FieldType(strings.ToLower(string(ft))) {
	case FieldTypeInteger:
		return integerCoercer{}
	case FieldTypeFloat:
		return floatCoercer{}
	case FieldTypeBoolean:
		return booleanCoercer{}
	default:
		return stringCoercer{}
	}
}
