package commands

import (
	"errors"
	"fmt"
	"strings"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

const (
	formatJSON  = "json"
	formatTable = "table"
)

// formatNames renders a list_users_response content (an array of names)
// in the requested format.
func formatNames(content any, format string) (string, error) {
	names := toStringSlice(content)

	switch format {
	case formatJSON:
		return toPrettyJSON(names)
	case formatTable:
		var b strings.Builder
		for _, n := range names {
			fmt.Fprintln(&b, n)
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatUserInfo renders a user_info_response content, which is either
// {"ip":..., "status":...} or a not-found message string, which is printed
// as-is whatever the format.
func formatUserInfo(target string, content any, format string) (string, error) {
	if s, ok := content.(string); ok {
		return s + "\n", nil
	}

	m, _ := content.(map[string]any)
	ip, _ := m["ip"].(string)
	status, _ := m["status"].(string)

	switch format {
	case formatJSON:
		return toPrettyJSON(map[string]string{"name": target, "ip": ip, "status": status})
	case formatTable:
		return fmt.Sprintf("name:   %s\nip:     %s\nstatus: %s\n", target, ip, status), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func toStringSlice(content any) []string {
	raw, ok := content.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
