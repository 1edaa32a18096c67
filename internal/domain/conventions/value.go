package conventions

// Configuration modules and manifests decode into loosely typed values. The
// helpers below read them without failing on unexpected shapes.

func valueAt(value any, keys ...string) (any, bool) {
	current := value

	for _, key := range keys {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func objectAt(value any, keys ...string) (map[string]any, bool) {
	v, ok := valueAt(value, keys...)
	if !ok {
		return nil, false
	}

	obj, ok := v.(map[string]any)

	return obj, ok
}

// stringsAt reads a string or a list of strings.
func stringsAt(value any, keys ...string) []string {
	v, ok := valueAt(value, keys...)
	if !ok {
		return nil
	}

	return asStrings(v)
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

func stringAt(value any, keys ...string) (string, bool) {
	v, ok := valueAt(value, keys...)
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}

// unwrapModule follows `default` wrappers left by transpiled config modules.
func unwrapModule(value any) any {
	for range 2 {
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}

		inner, ok := obj["default"].(map[string]any)
		if !ok {
			return value
		}

		value = inner
	}

	return value
}
