package types

// Values is the dynamic key/value container agents exchange data
// through. The engine never interprets value shapes beyond key
// presence; agents validate shapes at their own boundary, typically
// against a JSONSchema descriptor.
type Values map[string]any

// Get returns the value for key and whether it is present.
func (v Values) Get(key string) (any, bool) {
	val, ok := v[key]
	return val, ok
}

// GetString returns the string value for key, or "" when absent or not
// a string.
func (v Values) GetString(key string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return ""
}

// GetFloat returns the numeric value for key, accepting float64 and
// the integer types JSON and YAML decoders produce.
func (v Values) GetFloat(key string) (float64, bool) {
	switch n := v[key].(type) {
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

// GetBool returns the boolean value for key, or false when absent.
func (v Values) GetBool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// Clone returns a shallow copy of the container.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Merge copies every entry of other into v, overwriting existing keys.
func (v Values) Merge(other Values) Values {
	for k, val := range other {
		v[k] = val
	}
	return v
}
