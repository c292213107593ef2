package application

import (
	"fmt"

	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/domain"
)

// getStringParam extracts a string parameter from the arguments map.
// Returns an error if the parameter is required but missing or not a string.
func getStringParam(args map[string]interface{}, name string, required bool) (string, error) {
	value, exists := args[name]
	if !exists {
		if required {
			return "", &domain.Error{
				Code:    domain.InvalidParams,
				Message: fmt.Sprintf("missing required parameter: %s", name),
			}
		}
		return "", nil
	}

	strValue, ok := value.(string)
	if !ok {
		return "", &domain.Error{
			Code:    domain.InvalidParams,
			Message: fmt.Sprintf("parameter %s must be a string", name),
		}
	}

	return strValue, nil
}

// getStringParamDefault extracts an optional string parameter, falling
// back to def when it is absent or empty.
func getStringParamDefault(args map[string]interface{}, name, def string) (string, error) {
	value, err := getStringParam(args, name, false)
	if err != nil {
		return "", err
	}
	if value == "" {
		return def, nil
	}
	return value, nil
}

// getObjectParam extracts an object (mapping) parameter from the arguments
// map. Returns an error if the parameter is required but missing or not an
// object. Arbitrary nested fields are passed through untouched.
func getObjectParam(args map[string]interface{}, name string, required bool) (map[string]interface{}, error) {
	value, exists := args[name]
	if !exists {
		if required {
			return nil, &domain.Error{
				Code:    domain.InvalidParams,
				Message: fmt.Sprintf("missing required parameter: %s", name),
			}
		}
		return nil, nil
	}

	objValue, ok := value.(map[string]interface{})
	if !ok {
		return nil, &domain.Error{
			Code:    domain.InvalidParams,
			Message: fmt.Sprintf("parameter %s must be an object", name),
		}
	}

	return objValue, nil
}

// requireObjectKeys verifies that an object parameter contains every named
// key. Semantic validation of the values stays with Bugzilla.
func requireObjectKeys(obj map[string]interface{}, name string, keys ...string) error {
	for _, key := range keys {
		if _, ok := obj[key]; !ok {
			return &domain.Error{
				Code:    domain.InvalidParams,
				Message: fmt.Sprintf("parameter %s must contain field: %s", name, key),
			}
		}
	}
	return nil
}
