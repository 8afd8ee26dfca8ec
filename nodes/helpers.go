package nodes

// toFloat coerces a node output value to float64. JSON decoding and quote
// nodes produce float64; int covers values set programmatically.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// truthy maps a node output value onto the boolean the logic gates combine.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case string:
		return x != "" && x != "false"
	default:
		return true
	}
}

// compare evaluates a comparison operator against a threshold.
func compare(op string, value, threshold float64) bool {
	switch op {
	case "gt", ">":
		return value > threshold
	case "gte", ">=":
		return value >= threshold
	case "lt", "<":
		return value < threshold
	case "lte", "<=":
		return value <= threshold
	case "eq", "==":
		return value == threshold
	case "neq", "!=":
		return value != threshold
	}
	return false
}

// validComparison reports whether op is a supported comparison operator.
func validComparison(op string) bool {
	switch op {
	case "gt", ">", "gte", ">=", "lt", "<", "lte", "<=", "eq", "==", "neq", "!=":
		return true
	}
	return false
}
