package toolhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument = errors.New("invalid tool argument")
)

// ParseArguments reads the argument text that follows a tool name. JSON
// objects are used as is; anything else is passed under "input".
func ParseArguments(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	var payload map[string]any
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			return payload
		}
	}
	if strings.HasPrefix(raw, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return map[string]any{"items": arr}
		}
	}
	return map[string]any{"input": raw}
}

func SplitCommand(payload string) (name string, args string) {
	parts := strings.Fields(payload)
	if len(parts) == 0 {
		return "", ""
	}

	name = parts[0]
	if len(payload) > len(name) {
		args = strings.TrimSpace(payload[len(name):])
	}

	return name, args
}

func StringArg(args map[string]any, keys ...string) (string, error) {
	for _, key := range keys {
		raw, ok := args[key]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("%w: argument '%s' has invalid type: expected string, got %T", ErrInvalidArgument, key, raw)
		}
		return strings.TrimSpace(s), nil
	}
	return "", fmt.Errorf("%w: missing '%s' argument", ErrInvalidArgument, keys[0])
}

func IntArg(args map[string]any, key string, fallback int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	default:
		return 0, fmt.Errorf("%w: argument '%s' has invalid type: expected number, got %T", ErrInvalidArgument, key, raw)
	}
}

func BoolArg(args map[string]any, key string) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return false, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strings.EqualFold(v, "true"), nil
	default:
		return false, fmt.Errorf("%w: argument '%s' has invalid type: expected bool, got %T", ErrInvalidArgument, key, raw)
	}
}

func MapArg(args map[string]any, key string) (map[string]any, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: argument '%s' has invalid type: expected object, got %T", ErrInvalidArgument, key, raw)
	}
	return m, nil
}
