package config

import (
	"strings"
)

// secretKeys lists the dot-separated keys whose values are masked on
// display.
var secretKeys = map[string]bool{
	"mqtt.password":  true,
	"telegram.token": true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// Flatten turns nested JSON objects into dot-separated keys, so
// {"mqtt": {"topic": "drops"}} becomes {"mqtt.topic": "drops"}. Empty
// objects produce no keys.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			if prefix != "" {
				k = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(k, child)
				continue
			}
			out[k] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten is the inverse of Flatten. A key that collides with a scalar
// parent replaces the scalar with an object.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range flat {
		setPath(out, strings.Split(k, "."), v)
	}
	return out
}

func setPath(node map[string]any, path []string, v any) {
	last := len(path) - 1
	for _, part := range path[:last] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[part] = child
		}
		node = child
	}
	node[path[last]] = v
}

// MaskSecrets returns a copy of flat with non-empty secrets replaced by
// "***" plus their last four characters.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		s, ok := v.(string)
		if !secretKeys[k] || !ok || s == "" {
			out[k] = v
			continue
		}
		out[k] = "***" + s[max(0, len(s)-4):]
	}
	return out
}
