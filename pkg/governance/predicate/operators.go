package predicate

import "strings"

// compare applies a leaf operator to the resolved and expected values.
// Type mismatches are never errors: they simply do not match.
func compare(op Operator, actual, expected any) bool {
	switch op {
	case OperatorEquals:
		return valuesEqual(actual, expected)
	case OperatorNotEquals:
		return !valuesEqual(actual, expected)
	case OperatorGreaterThan:
		a, b, ok := toNumeric(actual, expected)
		return ok && a > b
	case OperatorLessThan:
		a, b, ok := toNumeric(actual, expected)
		return ok && a < b
	case OperatorContains:
		a, aok := actual.(string)
		b, bok := expected.(string)
		return aok && bok && strings.Contains(a, b)
	}
	return false
}

// valuesEqual compares primitives by value. Numbers of different Go kinds
// compare equal when their float64 values match; composite values never do.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	if a, b, ok := toNumeric(actual, expected); ok {
		return a == b
	}

	switch a := actual.(type) {
	case string:
		b, ok := expected.(string)
		return ok && a == b
	case bool:
		b, ok := expected.(bool)
		return ok && a == b
	}

	return false
}

// truthy reports the boolean interpretation of a resolved value.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	if f, ok := toFloat64(v); ok {
		return f != 0
	}
	return true
}

// toNumeric converts both values to float64, reporting false when either is
// not numeric.
func toNumeric(actual, expected any) (float64, float64, bool) {
	a, ok := toFloat64(actual)
	if !ok {
		return 0, 0, false
	}
	b, ok := toFloat64(expected)
	if !ok {
		return 0, 0, false
	}
	return a, b, true
}

// toFloat64 converts numeric kinds to float64.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
