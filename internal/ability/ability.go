// Package ability builds the immutable set of (action, subject) grants
// available to an identity for the duration of one request.
package ability

import "github.com/launchpad-web/launchpad/internal/identity"

// Action is the verb half of a rule.
type Action string

// Subject is the resource half of a rule.
type Subject string

// Rule is a single granted (action, subject) pair.
type Rule struct {
	Action  Action  `json:"action"`
	Subject Subject `json:"subject"`
}

// Set is a closed, read-only collection of rules. Anything not granted is denied.
type Set struct {
	rules []Rule
	index map[Rule]struct{}
}

// Can reports whether the pair was granted.
func (s *Set) Can(action Action, subject Subject) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[Rule{Action: action, Subject: subject}]
	return ok
}

// Cannot is the negation of Can.
func (s *Set) Cannot(action Action, subject Subject) bool {
	return !s.Can(action, subject)
}

// Rules returns the granted rules in grant order.
func (s *Set) Rules() []Rule {
	if s == nil {
		return nil
	}
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Grant adds a rule to the set under construction.
type Grant func(action Action, subject Subject)

// Contributor adds the grants of one business domain. Contributors must not
// perform I/O and must only look at the identity they are given.
type Contributor func(id *identity.Identity, grant Grant)

// Builder composes contributors in a fixed order.
type Builder struct {
	contributors []Contributor
}

// NewBuilder returns a Builder that runs contributors in the given order.
func NewBuilder(contributors ...Contributor) *Builder {
	list := make([]Contributor, 0, len(contributors))
	for _, c := range contributors {
		if c != nil {
			list = append(list, c)
		}
	}
	return &Builder{contributors: list}
}

// Default returns the application's builder.
func Default() *Builder {
	return NewBuilder(Notes, Profile, Pages, Admin)
}

// Build runs every contributor against id (which may be nil) and freezes the result.
func (b *Builder) Build(id *identity.Identity) *Set {
	set := &Set{index: make(map[Rule]struct{})}
	grant := func(action Action, subject Subject) {
		rule := Rule{Action: action, Subject: subject}
		if _, ok := set.index[rule]; ok {
			return
		}
		set.index[rule] = struct{}{}
		set.rules = append(set.rules, rule)
	}
	for _, contribute := range b.contributors {
		contribute(id, grant)
	}
	return set
}
