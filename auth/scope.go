package auth

import "strings"

// Scope is a privilege requested of the user's Pinterest account.
type Scope string

const (
	// ReadPublic reads a user's public information.
	ReadPublic Scope = "read_public"
	// WritePublic writes to a user's public information.
	WritePublic Scope = "write_public"
	// ReadRelationships reads a user's relationships with other users.
	ReadRelationships Scope = "read_relationships"
	// WriteRelationships writes to a user's relationships.
	WriteRelationships Scope = "write_relationships"
)

// AllScopes returns every known scope in declaration order.
func AllScopes() []Scope {
	return []Scope{ReadPublic, WritePublic, ReadRelationships, WriteRelationships}
}

// ParseScopes converts raw scope names, as found in configuration, to Scopes.
// An empty input selects AllScopes.
func ParseScopes(raw []string) []Scope {
	if len(raw) == 0 {
		return AllScopes()
	}
	scopes := make([]Scope, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, Scope(s))
		}
	}
	return scopes
}

// EncodeScopes renders scopes as the comma separated list the authorization
// endpoint expects. Known scopes come first in declaration order, unknown ones
// follow in the order given; duplicates are dropped.
func EncodeScopes(scopes []Scope) string {
	requested := make(map[Scope]bool, len(scopes))
	for _, s := range scopes {
		requested[s] = true
	}

	encoded := make([]string, 0, len(scopes))
	for _, s := range AllScopes() {
		if requested[s] {
			encoded = append(encoded, string(s))
			delete(requested, s)
		}
	}
	for _, s := range scopes {
		if requested[s] {
			encoded = append(encoded, string(s))
			delete(requested, s)
		}
	}
	return strings.Join(encoded, ",")
}
