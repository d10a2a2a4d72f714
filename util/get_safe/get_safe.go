package getsafe

import (
	"strconv"
	"time"
)

func String(payload map[string]any, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Metadata returns the nested object under key, or an empty map.
func Metadata(payload map[string]any, key string) map[string]any {
	if v, ok := payload[key]; ok {
		if m, ok := v.(map[string]any); ok && m != nil {
			return m
		}
	}
	return map[string]any{}
}

// Time reads an RFC 3339 timestamp. Missing or malformed values give the
// zero time.
func Time(payload map[string]any, key string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, String(payload, key))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// UnixNano reads a decimal nanosecond count.
func UnixNano(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
