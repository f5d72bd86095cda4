package slots

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/trymeuj/aiva/internal/catalog"
)

// Validate checks value against spec and returns the normalized value:
// numbers come back as float64, booleans as bool, arrays as []any. A
// non-nil error means the candidate is dropped and the parameter stays
// missing with the error text as reason.
func Validate(value any, spec catalog.ParameterSpec) (any, error) {
	name := spec.Name

	if value == nil {
		if spec.Required {
			return nil, fmt.Errorf("%s cannot be empty", name)
		}
		return nil, nil
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		if spec.Required {
			return nil, fmt.Errorf("%s cannot be empty", name)
		}
		return s, nil
	}

	switch spec.Type {
	case catalog.TypeString, catalog.TypeDate, catalog.TypeFile:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string, got %T", name, value)
		}
		return s, nil

	case catalog.TypeNumber:
		return validateNumber(value, spec)

	case catalog.TypeBoolean:
		return validateBoolean(value, name)

	case catalog.TypeArray:
		return validateArray(value, name)

	case catalog.TypeObject:
		return validateObject(value, name)

	default:
		return value, nil
	}
}

func validateNumber(value any, spec catalog.ParameterSpec) (any, error) {
	name := spec.Name
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number, got %q", name, v)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("%s must be a number, got %T", name, value)
	}
	if spec.Integer && f != float64(int64(f)) {
		return nil, fmt.Errorf("%s must be an integer, got %v", name, f)
	}
	return f, nil
}

var booleanLiterals = map[string]bool{
	"true": true, "yes": true, "1": true,
	"false": false, "no": false, "0": false,
}

func validateBoolean(value any, name string) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		if b, ok := booleanLiterals[strings.ToLower(strings.TrimSpace(v))]; ok {
			return b, nil
		}
		return nil, fmt.Errorf("%s must be a boolean (true/false), got %q", name, v)
	default:
		return nil, fmt.Errorf("%s must be a boolean (true/false), got %T", name, value)
	}
}

func validateArray(value any, name string) (any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			if arr, ok := parsed.([]any); ok {
				return arr, nil
			}
			return nil, fmt.Errorf("%s must be an array, parsed as %T", name, parsed)
		}
		// Comma-separated fallback.
		if strings.Contains(v, ",") {
			parts := strings.Split(v, ",")
			arr := make([]any, 0, len(parts))
			for _, p := range parts {
				arr = append(arr, strings.TrimSpace(p))
			}
			return arr, nil
		}
		return nil, fmt.Errorf("%s must be a valid array, got %q", name, v)
	default:
		return nil, fmt.Errorf("%s must be an array, got %T", name, value)
	}
}

func validateObject(value any, name string) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case string:
		var parsed map[string]any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return parsed, nil
		}
		return nil, fmt.Errorf("%s must be a valid object, got %q", name, v)
	default:
		return nil, fmt.Errorf("%s must be an object, got %T", name, value)
	}
}
