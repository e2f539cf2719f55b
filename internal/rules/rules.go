// Package rules tracks which configured reference mappings were applied during a run.
package rules

import (
	"sync"

	"github.com/leapstack-labs/reffix/internal/config"
)

// Rule is one configured mapping. Rules are compared by identity, so two
// identical configuration entries are still tracked separately.
type Rule = *config.ReferenceConfig

// Set is the ordered list of configured rules with their applied flags.
// A flag only ever goes from false to true.
type Set struct {
	mu      sync.Mutex
	rules   []Rule
	applied map[Rule]bool
}

// New builds a rule set from the configured references, all unapplied.
func New(refs []config.ReferenceConfig) *Set {
	s := &Set{
		rules:   make([]Rule, 0, len(refs)),
		applied: make(map[Rule]bool, len(refs)),
	}
	for i := range refs {
		r := &refs[i]
		s.rules = append(s.rules, r)
		s.applied[r] = false
	}
	return s
}

// Rules returns the rules in configuration order.
func (s *Set) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of configured rules.
func (s *Set) Len() int {
	return len(s.rules)
}

// Lookup returns the first rule whose ProjectReference equals fileName.
func (s *Set) Lookup(fileName string) (Rule, bool) {
	for _, r := range s.rules {
		if r.ProjectReference == fileName {
			return r, true
		}
	}
	return nil, false
}

// MarkApplied flags a rule as used. Unknown rules are ignored.
func (s *Set) MarkApplied(r Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applied[r]; ok {
		s.applied[r] = true
	}
}

// Applied reports whether a rule has been used.
func (s *Set) Applied(r Rule) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied[r]
}

// Unmatched returns, in configuration order, every rule that was never applied.
func (s *Set) Unmatched() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Rule
	for _, r := range s.rules {
		if !s.applied[r] {
			out = append(out, r)
		}
	}
	return out
}

// ProjectReferences returns the non-empty project reference names in configuration order.
func (s *Set) ProjectReferences() []string {
	var names []string
	for _, r := range s.rules {
		if r.ProjectReference != "" {
			names = append(names, r.ProjectReference)
		}
	}
	return names
}
