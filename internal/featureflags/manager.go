// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
)

// Known flags.
const (
	// MarkdownHTML adds rendered content_html to post responses.
	MarkdownHTML = "markdown_html"
	// RealtimeNotifications enables the websocket endpoints.
	RealtimeNotifications = "realtime_notifications"
)

var defaults = map[string]string{
	MarkdownHTML:          "on",
	RealtimeNotifications: "on",
}

// rule is a parsed flag value. Percent 100 enables the flag for everyone,
// 0 for nobody; anything between is a per-user rollout.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) rule {
	r := rule{raw: value}
	switch value {
	case "on", "true", "1":
		r.percent = 100
	case "off", "false", "0":
	default:
		if pct, ok := strings.CutSuffix(value, "%"); ok {
			if n, err := strconv.Atoi(pct); err == nil {
				r.percent = min(max(n, 0), 100)
			}
		}
	}
	return r
}

// Manager answers flag lookups for a parsed FEATURE_FLAGS value such as
// "markdown_html=on,realtime_notifications=25%".
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw on top of the built-in defaults. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule, len(defaults))}
	for name, value := range defaults {
		m.rules[name] = parseRule(value)
	}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			continue
		}
		m.rules[name] = parseRule(value)
	}
	return m
}

// Enabled reports whether name is on for userID. Unknown flags are off, and a
// partial rollout never includes the anonymous user (id 0).
func (m *Manager) Enabled(name string, userID uint) bool {
	name = normalize(name)
	var r rule
	if m == nil {
		r = parseRule(defaults[name])
	} else {
		r = m.rules[name]
	}

	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0 || userID == 0:
		return false
	}
	return bucket(name, userID) < r.percent
}

// Raw returns the configured value of every flag.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.rules))
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.rules))
	for name := range maps.Keys(m.rules) {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// bucket places a user deterministically in [0,100) for one flag.
func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
