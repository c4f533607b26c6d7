// Package identity maps verified token claims to the normalized caller
// identity handed to downstream handlers.
//
// Extraction is pure: it never performs I/O and never fails. Missing or
// malformed optional claims produce empty values.
package identity

import (
	"strings"
)

// Claim names read by the Extractor.
const (
	PreferredUsernameClaim = "preferred_username"
	UPNClaim               = "upn"
	DefaultRolesClaim      = "roles"
)

// Identity given to client-credentials callers, which carry no user claims.
const (
	DefaultAppUsername = "app"
	DefaultAppRole     = "AppRole"
)

// Identity is the normalized caller identity derived from a verified token.
type Identity struct {
	// Username is the mailbox part of preferred_username (before the first '@').
	Username string `json:"username"`
	// Email is preferred_username verbatim.
	Email string `json:"email"`
	// Roles holds the role claim entries selected by the RoleFilter, in the
	// order they appear in the token and without duplicates.
	Roles []string `json:"roles"`
	// ClientCredentials is set for application tokens obtained through the
	// client credentials flow. Their Username and Roles are the configured
	// app defaults and Email is empty.
	ClientCredentials bool `json:"client_credentials"`
	// Attributes holds profile fields added after verification, keyed by
	// the configured attribute names. See core.Enricher.
	Attributes map[string]any `json:"attributes,omitempty"`
	// Claims is the full verified claim set.
	Claims map[string]any `json:"-"`
}

// IsClientCredentials reports whether claims belong to an application token:
// neither upn nor preferred_username is present.
func IsClientCredentials(claims map[string]any) bool {
	_, hasUPN := claims[UPNClaim]
	_, hasUsername := claims[PreferredUsernameClaim]
	return !hasUPN && !hasUsername
}

// SetAttribute stores a profile attribute.
func (i *Identity) SetAttribute(name string, value any) {
	if i.Attributes == nil {
		i.Attributes = make(map[string]any)
	}
	i.Attributes[name] = value
}

// HasRole reports whether role is one of the extracted roles.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Extractor turns claims into an Identity.
type Extractor struct {
	rolesClaim  string
	filter      RoleFilter
	appUsername string
	appRole     string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRolesClaim sets the claim holding role entries. Default: "roles".
func WithRolesClaim(name string) Option {
	return func(e *Extractor) {
		if name != "" {
			e.rolesClaim = name
		}
	}
}

// WithRoleFilter sets the rules selecting which role entries are surfaced.
// An empty filter surfaces every entry.
func WithRoleFilter(filter RoleFilter) Option {
	return func(e *Extractor) {
		e.filter = filter
	}
}

// WithAppDefaults sets the username and single role given to
// client-credentials callers. Empty values keep the defaults ("app" and
// "AppRole").
func WithAppDefaults(username, role string) Option {
	return func(e *Extractor) {
		if username != "" {
			e.appUsername = username
		}
		if role != "" {
			e.appRole = role
		}
	}
}

// NewExtractor returns an Extractor with the given options applied.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		rolesClaim:  DefaultRolesClaim,
		appUsername: DefaultAppUsername,
		appRole:     DefaultAppRole,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract builds an Identity from claims.
func (e *Extractor) Extract(claims map[string]any) *Identity {
	if IsClientCredentials(claims) {
		return &Identity{
			Username:          e.appUsername,
			Roles:             []string{e.appRole},
			ClientCredentials: true,
			Claims:            claims,
		}
	}

	email, _ := claims[PreferredUsernameClaim].(string)

	return &Identity{
		Username: usernameFrom(email),
		Email:    email,
		Roles:    e.filter.Apply(stringEntries(claims[e.rolesClaim])),
		Claims:   claims,
	}
}

func usernameFrom(preferred string) string {
	if i := strings.IndexByte(preferred, '@'); i >= 0 {
		return preferred[:i]
	}
	return preferred
}

// stringEntries flattens a claim value into its string entries. Non-string
// entries are skipped.
func stringEntries(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
