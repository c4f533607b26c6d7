package identity

import (
	"strings"
)

// RoleRule selects role entries belonging to an application. Role narrows the
// match to a single role of that application when set.
type RoleRule struct {
	Application string `mapstructure:"application" yaml:"application"`
	Role        string `mapstructure:"role" yaml:"role"`
}

// RoleFilter is the set of rules a role entry must satisfy (any of them) to be
// surfaced. A nil or empty filter keeps every entry.
type RoleFilter []RoleRule

// ForApplication is shorthand for a filter keeping every role of one
// application. An empty application yields an empty filter.
func ForApplication(application string) RoleFilter {
	if application == "" {
		return nil
	}
	return RoleFilter{{Application: application}}
}

// Apply returns the entries matched by the filter, deduplicated and in input
// order. The input slice is never modified.
func (f RoleFilter) Apply(entries []string) []string {
	roles := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry]; dup {
			continue
		}
		if len(f) > 0 && !f.matches(entry) {
			continue
		}
		seen[entry] = struct{}{}
		roles = append(roles, entry)
	}
	return roles
}

func (f RoleFilter) matches(entry string) bool {
	for _, rule := range f {
		if rule.matches(entry) {
			return true
		}
	}
	return false
}

// matches accepts "<app><sep><role>" entries (sep is '.', ':' or '/') and
// entries where the application is one of the '.'-separated segments.
func (r RoleRule) matches(entry string) bool {
	if r.Application == "" {
		return r.Role == "" || entry == r.Role
	}

	if rest, ok := cutApplication(entry, r.Application); ok {
		return r.Role == "" || rest == r.Role
	}

	segments := strings.Split(entry, ".")
	for i, seg := range segments {
		if !strings.EqualFold(seg, r.Application) {
			continue
		}
		if r.Role == "" {
			return true
		}
		return i+1 < len(segments) && strings.Join(segments[i+1:], ".") == r.Role
	}
	return false
}

func cutApplication(entry, application string) (string, bool) {
	if strings.EqualFold(entry, application) {
		return "", true
	}
	if len(entry) <= len(application) || !strings.EqualFold(entry[:len(application)], application) {
		return "", false
	}
	switch entry[len(application)] {
	case '.', ':', '/':
		return entry[len(application)+1:], true
	}
	return "", false
}
