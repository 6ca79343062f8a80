package cli

import (
	"fmt"
	"strings"
)

// parseAssignment splits KEY=VALUE. Values stay strings; the validator coerces them.
func parseAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected KEY=VALUE, got %q", s)
	}
	return key, strings.TrimSpace(value), nil
}

func parseAssignments(args []string) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, value, err := parseAssignment(arg)
		if err != nil {
			return nil, err
		}
		params[key] = value
	}
	return params, nil
}
