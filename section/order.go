package section

import (
	"fmt"
	"sort"

	"go.dedis.ch/ballot"
	"golang.org/x/xerrors"
)

// MismatchKind tells how a vote differs from the first vote of its section.
type MismatchKind int

const (
	// MismatchCount is a vote with a different number of options.
	MismatchCount MismatchKind = iota + 1
	// MismatchIdentity is a vote with as many options but other keys.
	MismatchIdentity
)

func (k MismatchKind) String() string {
	switch k {
	case MismatchCount:
		return "key count"
	case MismatchIdentity:
		return "key identity"
	}
	return "unknown"
}

// ShapeError names the first vote whose keys differ from vote 0.
type ShapeError struct {
	Index int
	Kind  MismatchKind
	// Key is the offending key of an identity mismatch: missing from vote
	// 0 or repeated.
	Key string
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("vote %d: %s mismatch", e.Index, e.Kind)
	if e.Key != "" {
		msg += fmt.Sprintf(" (%q)", e.Key)
	}
	return msg + ": " + ballot.ErrInconsistentSectionShape.Error()
}

// Unwrap returns ErrInconsistentSectionShape.
func (e *ShapeError) Unwrap() error {
	return ballot.ErrInconsistentSectionShape
}

// KeyOrder returns the canonical option order of a section given the keys
// of each vote: the keys of the first vote, sorted. Every other vote must
// have exactly the same set of keys, in any order.
func KeyOrder(votes [][]string) ([]string, error) {
	if len(votes) == 0 {
		return nil, xerrors.Errorf("key order: %w", ballot.ErrEmptySection)
	}
	order := append([]string(nil), votes[0]...)
	sort.Strings(order)
	known := make(map[string]bool, len(order))
	for _, k := range order {
		if known[k] {
			return nil, &ShapeError{Index: 0, Kind: MismatchIdentity, Key: k}
		}
		known[k] = true
	}
	for i, keys := range votes[1:] {
		if len(keys) != len(order) {
			return nil, &ShapeError{Index: i + 1, Kind: MismatchCount}
		}
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			if !known[k] || seen[k] {
				return nil, &ShapeError{Index: i + 1, Kind: MismatchIdentity, Key: k}
			}
			seen[k] = true
		}
	}
	return order, nil
}

// KeyOrder returns the canonical option order of the section.
func (s *PlainSection) KeyOrder() ([]string, error) {
	keys := make([][]string, len(s.Votes))
	for i, v := range s.Votes {
		keys[i] = v.Keys()
	}
	return KeyOrder(keys)
}

// KeyOrder returns the canonical option order of the section.
func (s *EncryptedSection) KeyOrder() ([]string, error) {
	keys := make([][]string, len(s.Votes))
	for i, v := range s.Votes {
		keys[i] = v.Keys()
	}
	return KeyOrder(keys)
}
