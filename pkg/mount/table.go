// Package mount implements the namespace mount table: an ordered, immutable
// list of (handle, owner, prefix, source) entries mapping each mounted data
// source to the path prefix under which its identifiers are exposed.
//
// Example usage:
//
//	table, err := mount.Build("/MY/PATH", []mount.Candidate{
//	    {Owner: "friendly_user_1", Source: ds1},
//	    {Owner: "friendly_user_2", Source: ds2},
//	}, mount.PolicyReject)
//
//	entry, ok := table.Resolve("/MY/PATH/FRIENDLY_USER_2/CATALOG_2")
//	local := mount.Strip(entry.Prefix, "/MY/PATH/FRIENDLY_USER_2/CATALOG_2") // "/CATALOG_2"
package mount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/playground/internal/logger"
	"github.com/marmos91/playground/pkg/datasource"
)

var (
	// ErrEmptyRoot is returned when the root mount path is empty.
	ErrEmptyRoot = errors.New("root mount path is not set")

	// ErrInvalidCandidate is returned for candidates without owner or source.
	ErrInvalidCandidate = errors.New("invalid mount candidate")

	// ErrPrefixCollision is returned when two prefixes overlap under PolicyReject.
	ErrPrefixCollision = errors.New("mount prefix collision")

	// ErrUnknownPolicy is returned by ParsePolicy.
	ErrUnknownPolicy = errors.New("unknown collision policy")
)

// CollisionPolicy decides what happens when two candidates derive
// overlapping prefixes (equal, or one a string prefix of the other).
type CollisionPolicy string

const (
	// PolicyReject fails the build.
	PolicyReject CollisionPolicy = "reject"

	// PolicyFirstWins keeps the earlier candidate and drops the later one.
	PolicyFirstWins CollisionPolicy = "first-wins"

	// PolicyCoexist keeps both; Resolve's first-match rule decides.
	PolicyCoexist CollisionPolicy = "coexist"
)

// ParsePolicy parses a policy name. The empty string means PolicyReject.
func ParsePolicy(name string) (CollisionPolicy, error) {
	switch CollisionPolicy(strings.ToLower(name)) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyFirstWins:
		return PolicyFirstWins, nil
	case PolicyCoexist:
		return PolicyCoexist, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// Candidate is a data source waiting to be mounted under its owner's name.
type Candidate struct {
	Owner  string
	Source datasource.DataSource
}

// Entry is one mounted data source. Entries are immutable.
type Entry struct {
	// Handle is the position of the entry in the table.
	Handle int

	// Owner is the upper-cased owner name.
	Owner string

	// Prefix is "<root>/<OWNER>".
	Prefix string

	Source datasource.DataSource
}

// Table is the read-only mount table. It is built once and safe for
// concurrent use without locking.
type Table struct {
	root    string
	entries []Entry
	dropped []Candidate
}

// Build mounts every candidate under root + "/" + upper(owner), in order.
func Build(root string, candidates []Candidate, policy CollisionPolicy) (*Table, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}
	if policy == "" {
		policy = PolicyReject
	}

	table := &Table{
		root:    root,
		entries: make([]Entry, 0, len(candidates)),
	}

	for i, c := range candidates {
		if c.Source == nil {
			return nil, fmt.Errorf("%w: candidate #%d has no data source", ErrInvalidCandidate, i+1)
		}
		if c.Owner == "" {
			return nil, fmt.Errorf("%w: candidate #%d has no owner", ErrInvalidCandidate, i+1)
		}

		owner := strings.ToUpper(c.Owner)
		prefix := root + "/" + owner

		if existing, ok := table.overlapping(prefix); ok {
			switch policy {
			case PolicyReject:
				return nil, fmt.Errorf("%w: %q overlaps %q (owner %s)", ErrPrefixCollision, prefix, existing.Prefix, existing.Owner)
			case PolicyFirstWins:
				logger.Warn("Skipping data source of owner %s: prefix %q overlaps %q", owner, prefix, existing.Prefix)
				table.dropped = append(table.dropped, c)
				continue
			case PolicyCoexist:
				logger.Warn("Prefix %q overlaps %q, first mounted entry wins", prefix, existing.Prefix)
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
			}
		}

		table.entries = append(table.entries, Entry{
			Handle: len(table.entries),
			Owner:  owner,
			Prefix: prefix,
			Source: c.Source,
		})
	}

	return table, nil
}

// overlapping returns the first entry whose prefix equals prefix or is a
// string prefix of it (or vice versa).
func (t *Table) overlapping(prefix string) (Entry, bool) {
	for _, e := range t.entries {
		if strings.HasPrefix(prefix, e.Prefix) || strings.HasPrefix(e.Prefix, prefix) {
			return e, true
		}
	}
	return Entry{}, false
}

// Resolve returns the first entry, in mount order, whose prefix is a string
// prefix of id.
func (t *Table) Resolve(id string) (Entry, bool) {
	for _, e := range t.entries {
		if strings.HasPrefix(id, e.Prefix) {
			return e, true
		}
	}
	return Entry{}, false
}

// Root returns the root mount path.
func (t *Table) Root() string {
	return t.root
}

// Entries returns the entries in mount order.
// The returned slice is a copy and safe to modify.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, len(t.entries))
	copy(entries, t.entries)
	return entries
}

// Dropped returns the candidates left out under PolicyFirstWins, in
// candidate order. Their data sources are still the caller's to release.
func (t *Table) Dropped() []Candidate {
	dropped := make([]Candidate, len(t.dropped))
	copy(dropped, t.dropped)
	return dropped
}

// Len returns the number of mounted entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Strip removes prefix from id. The caller must have matched id against
// prefix (see Resolve).
func Strip(prefix, id string) string {
	return id[len(prefix):]
}

// Extend prepends prefix to a backend-local identifier.
func Extend(prefix, local string) string {
	return prefix + local
}
