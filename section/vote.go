// Package section encrypts ballots section by section and tallies the
// encrypted sections without ever decrypting a single vote.
//
// A section is one question of a ballot paper. Each vote of a section maps
// every option key (the candidate ids plus NoVote and Invalid) to 0 or 1,
// with exactly one 1.
package section

import (
	"fmt"
	"sort"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/elgamal"
)

const (
	// NoVote is the option chosen by a voter who abstains.
	NoVote = "noVote"
	// Invalid is the option chosen for a spoilt vote.
	Invalid = "invalid"
)

// PlainVote maps option keys to 0 or 1.
type PlainVote map[string]int

// EncryptedVote maps option keys to their encryption.
type EncryptedVote map[string]*elgamal.EncryptedOption

// VoteError tells which vote of a section is malformed and why.
type VoteError struct {
	Index  int
	Reason string
}

func (e *VoteError) Error() string {
	return fmt.Sprintf("vote %d: %s: %v", e.Index, e.Reason, ballot.ErrMalformedVote)
}

// Unwrap returns ErrMalformedVote.
func (e *VoteError) Unwrap() error {
	return ballot.ErrMalformedVote
}

// IsSpecial tells whether key is NoVote or Invalid rather than a candidate.
func IsSpecial(key string) bool {
	return key == NoVote || key == Invalid
}

// Validate checks that the vote holds NoVote, Invalid and at least one
// candidate, that every value is 0 or 1, and that exactly one is 1.
func (v PlainVote) Validate() error {
	return v.validate(0)
}

func (v PlainVote) validate(index int) error {
	if _, ok := v[NoVote]; !ok {
		return &VoteError{Index: index, Reason: "missing " + NoVote}
	}
	if _, ok := v[Invalid]; !ok {
		return &VoteError{Index: index, Reason: "missing " + Invalid}
	}
	if len(v) < 3 {
		return &VoteError{Index: index, Reason: "no candidate"}
	}
	ones := 0
	for _, k := range v.Keys() {
		switch v[k] {
		case 0:
		case 1:
			ones++
		default:
			return &VoteError{Index: index, Reason: fmt.Sprintf("option %q is %d", k, v[k])}
		}
		if k == "" {
			return &VoteError{Index: index, Reason: "empty option key"}
		}
	}
	if ones != 1 {
		return &VoteError{Index: index, Reason: fmt.Sprintf("%d options chosen", ones)}
	}
	return nil
}

// Keys returns the option keys in lexicographic order.
func (v PlainVote) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Keys returns the option keys in lexicographic order.
func (v EncryptedVote) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
