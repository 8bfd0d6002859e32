package section

import (
	"fmt"
	"sync"

	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/elgamal"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// ProofError names the option whose proof failed.
type ProofError struct {
	Index int
	Key   string
	Err   error
}

func (e *ProofError) Error() string {
	return fmt.Sprintf("vote %d option %q: %v", e.Index, e.Key, e.Err)
}

// Unwrap returns the verification error, which wraps ErrProofVerification.
func (e *ProofError) Unwrap() error {
	return e.Err
}

// VerifySection checks the proof of every option of every vote against pub.
// Every option is checked, and the failure of the lowest vote index, then
// the lowest key, is returned as a *ProofError whatever the worker count.
//
// The proofs only show that each option holds 0 or 1. A vote choosing
// several options passes here and is caught by DecryptSection, whose total
// then differs from the number of votes.
func VerifySection(pub *elgamal.PublicKey, s *EncryptedSection, workers int) error {
	order, err := s.KeyOrder()
	if err != nil {
		return err
	}
	n := len(order)
	failed := make([]*ProofError, len(s.Votes)*n)
	err = parallel(workers, len(failed), func(i int) error {
		vote, key := i/n, order[i%n]
		opt := s.Votes[vote][key]
		if opt == nil {
			failed[i] = &ProofError{Index: vote, Key: key,
				Err: xerrors.Errorf("%w: missing option", ballot.ErrProofVerification)}
			return nil
		}
		if err := opt.Verify(pub); err != nil {
			log.Warnf("rejecting vote %d: proof of option %q does not verify", vote, key)
			failed[i] = &ProofError{Index: vote, Key: key, Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, pe := range failed {
		if pe != nil {
			return pe
		}
	}
	return nil
}

// Decrypter tallies encrypted sections. It owns the private key of the
// election and the lookup tables computed so far, one per vote count.
type Decrypter struct {
	priv    *elgamal.PrivateKey
	workers int

	sync.RWMutex
	tables map[int]*elgamal.LookupTable
}

// NewDecrypter returns a decrypter for priv. Access control to it is the
// caller's business.
func NewDecrypter(priv *elgamal.PrivateKey) *Decrypter {
	return &Decrypter{
		priv:    priv,
		workers: defaultWorkers(),
		tables:  make(map[int]*elgamal.LookupTable),
	}
}

// SetWorkers sets how many proofs are verified concurrently.
func (d *Decrypter) SetWorkers(n int) {
	d.workers = n
}

// PublicKey returns the public half of the decrypter's key.
func (d *Decrypter) PublicKey() *elgamal.PublicKey {
	return &d.priv.Public
}

// CalculateLookupTable computes, or returns the already computed, table for
// sections of n votes. It must be called before DecryptSection is asked to
// tally a section of n votes.
func (d *Decrypter) CalculateLookupTable(n int) (*elgamal.LookupTable, error) {
	if t, ok := d.LookupTable(n); ok {
		return t, nil
	}
	t, err := elgamal.NewLookupTable(d.priv.Public.Group, n)
	if err != nil {
		return nil, err
	}
	d.Lock()
	defer d.Unlock()
	if existing, ok := d.tables[n]; ok {
		return existing, nil
	}
	d.tables[n] = t
	log.Lvlf3("calculated lookup table for %d votes", n)
	return t, nil
}

// LookupTable returns the table for n votes if it was calculated.
func (d *Decrypter) LookupTable(n int) (*elgamal.LookupTable, bool) {
	d.RLock()
	defer d.RUnlock()
	t, ok := d.tables[n]
	return t, ok
}

// DecryptSection verifies every proof of the section, combines the
// ciphertexts of each option over all votes and decrypts the products. It
// never returns a partial tally. A bad proof, a shape mismatch, a value
// outside the lookup table or a total that differs from the number of votes
// fails the whole section.
func (d *Decrypter) DecryptSection(s *EncryptedSection, sectionID uuid.UUID) (*DecryptedSection, error) {
	if s == nil {
		return nil, xerrors.Errorf("section %v: %w", sectionID, ballot.ErrEmptySection)
	}
	order, err := s.KeyOrder()
	if err != nil {
		return nil, xerrors.Errorf("section %v: %w", sectionID, err)
	}
	n := len(s.Votes)
	table, ok := d.LookupTable(n)
	if !ok {
		return nil, xerrors.Errorf("section %v: %d votes: %w", sectionID, n, ballot.ErrMissingLookupTable)
	}
	if err := checkOptions(order); err != nil {
		return nil, xerrors.Errorf("section %v: %w", sectionID, err)
	}
	if err := VerifySection(&d.priv.Public, s, d.workers); err != nil {
		return nil, xerrors.Errorf("section %v: %w", sectionID, err)
	}

	p := d.priv.Public.Group.P
	res := &DecryptedSection{Candidates: make(map[string]int)}
	for _, key := range order {
		agg := elgamal.Identity()
		for _, v := range s.Votes {
			agg = agg.Combine(&v[key].Ciphertext, p)
		}
		count, err := d.priv.Decrypt(agg, table)
		if err != nil {
			return nil, ballot.ErrorOrNil(err,
				fmt.Sprintf("section %v option %q", sectionID, key))
		}
		switch key {
		case NoVote:
			res.NoVoteCount = count
		case Invalid:
			res.InvalidCount = count
		default:
			res.Candidates[key] = count
		}
	}
	if res.Total() != n {
		log.Warnf("section %v: %d votes but %d options chosen", sectionID, n, res.Total())
		return nil, xerrors.Errorf("section %v: %d votes but %d options chosen: %w",
			sectionID, n, res.Total(), ballot.ErrMalformedVote)
	}
	log.Lvlf2("tallied section %v: %d votes", sectionID, n)
	return res, nil
}

// checkOptions makes sure the canonical keys carry both special options and
// at least one candidate.
func checkOptions(order []string) error {
	var noVote, invalid bool
	candidates := 0
	for _, k := range order {
		noVote = noVote || k == NoVote
		invalid = invalid || k == Invalid
		if !IsSpecial(k) {
			candidates++
		}
	}
	switch {
	case !noVote:
		return &VoteError{Index: 0, Reason: "missing " + NoVote}
	case !invalid:
		return &VoteError{Index: 0, Reason: "missing " + Invalid}
	case candidates == 0:
		return &VoteError{Index: 0, Reason: "no candidate"}
	}
	return nil
}

// DecryptBallotSection gathers the section sectionID of every ballot paper
// and tallies all their votes together. The lookup table for the total
// number of votes must have been calculated.
func (d *Decrypter) DecryptBallotSection(papers []*EncryptedBallotPaper, sectionID uuid.UUID) (*DecryptedSection, error) {
	merged := &EncryptedSection{}
	for _, b := range papers {
		s, ok := b.Sections[sectionID]
		if !ok {
			continue
		}
		merged.Votes = append(merged.Votes, s.Votes...)
	}
	return d.DecryptSection(merged, sectionID)
}

// CountVotes returns how many votes the ballot papers hold for sectionID,
// which is the size of the lookup table DecryptBallotSection needs.
func CountVotes(papers []*EncryptedBallotPaper, sectionID uuid.UUID) int {
	n := 0
	for _, b := range papers {
		if s, ok := b.Sections[sectionID]; ok {
			n += len(s.Votes)
		}
	}
	return n
}
