// Package branch holds the branch scoping policy shared by every listing
// screen: a branch name maps to a roll-number prefix (first letter + "_"),
// and records are filtered by that prefix.
//
// Roll numbers double as a poor-man's partition key: filtering transactions
// by branch needs no join against the students table. Two branches sharing a
// first letter would collide; the convention is kept anyway because changing
// it breaks every stored roll number.
package branch

import (
	"strings"

	"github.com/pkg/errors"
)

// All is the sentinel branch value granting cross-branch visibility.
const All = "all"

// ErrNoScope is returned when an identity carries no branch at all.
// A missing branch denies access instead of widening it.
var ErrNoScope = errors.New("identity has no branch scope")

// Prefix maps a branch name to its roll-number prefix: the lowercased first
// character followed by an underscore ("Main" -> "m_"). The unrestricted
// sentinel (or an empty name) has no prefix and maps to "".
func Prefix(branchName string) string {
	b := strings.ToLower(strings.TrimSpace(branchName))
	if b == "" || b == All {
		return ""
	}
	return b[:1] + "_"
}

// Filter returns the records whose key starts with prefix. An empty prefix
// is the identity filter: the input is returned unchanged.
func Filter[T any](records []T, prefix string, key func(T) string) []T {
	if prefix == "" {
		return records
	}
	res := make([]T, 0, len(records))
	for _, rec := range records {
		if strings.HasPrefix(key(rec), prefix) {
			res = append(res, rec)
		}
	}
	return res
}

// Matches reports whether a single key falls under prefix. An empty prefix
// matches everything.
func Matches(prefix, key string) bool {
	return prefix == "" || strings.HasPrefix(key, prefix)
}

// Scope is an identity's resolved branch visibility.
type Scope struct {
	branch string
}

// NewScope resolves an identity's branch into a Scope. An empty branch fails
// closed with ErrNoScope.
func NewScope(branchName string) (Scope, error) {
	b := strings.ToLower(strings.TrimSpace(branchName))
	if b == "" {
		return Scope{}, ErrNoScope
	}
	return Scope{branch: b}, nil
}

// All reports whether the scope is unrestricted.
func (s Scope) All() bool { return s.branch == All }

// Branch returns the scoped branch name ("all" when unrestricted).
func (s Scope) Branch() string { return s.branch }

// Prefix returns the roll-number prefix for the scope ("" when unrestricted).
func (s Scope) Prefix() string { return Prefix(s.branch) }

// Narrow lets an unrestricted caller voluntarily restrict the scope via a
// branch selector. Restricted scopes ignore the selector.
func (s Scope) Narrow(selected string) Scope {
	if !s.All() {
		return s
	}
	sel := strings.ToLower(strings.TrimSpace(selected))
	if sel == "" || sel == All {
		return s
	}
	return Scope{branch: sel}
}
