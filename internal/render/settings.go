package render

import (
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

// settingString reads key as a trimmed string, or def when absent or not scalar.
func settingString(settings map[string]any, key, def string) string {
	v, ok := settings[key]
	if !ok || v == nil {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func settingBool(settings map[string]any, key string, def bool) bool {
	v, ok := settings[key]
	if !ok || v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

func settingInt(settings map[string]any, key string, def int) int {
	v, ok := settings[key]
	if !ok || v == nil {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// settingItems reads key as a list of objects. Entries that are not
// objects are dropped; a non-list value yields nil.
func settingItems(settings map[string]any, key string) []map[string]any {
	v, ok := settings[key]
	if !ok || v == nil {
		return nil
	}
	list, err := cast.ToSliceE(v)
	if err != nil {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// safeURL keeps http(s) URLs and site-relative paths and drops anything else.
func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
