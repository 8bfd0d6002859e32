package ballot

import "golang.org/x/xerrors"

// These are the kinds of failure the engine reports. Errors of the group,
// elgamal and section packages wrap one of them, so that callers can branch
// with xerrors.Is. Decoding a malformed wire value, reading the
// configuration or the store fail with plain errors.
var (
	// ErrGroupInvariant is returned when p and q are not a safe-prime
	// pairing. It is a programming error and never retried.
	ErrGroupInvariant = xerrors.New("group invariant violation")
	// ErrMalformedVote is returned for a plaintext vote that is not one-hot
	// over noVote, invalid and at least one candidate.
	ErrMalformedVote = xerrors.New("malformed vote")
	// ErrInconsistentSectionShape is returned when the votes of a section do
	// not share the same option keys.
	ErrInconsistentSectionShape = xerrors.New("inconsistent section shape")
	// ErrEmptySection is returned for a section without any vote.
	ErrEmptySection = xerrors.New("empty section")
	// ErrProofVerification is returned when a 0/1 proof does not verify.
	ErrProofVerification = xerrors.New("proof verification failed")
	// ErrLookupMiss is returned when a decrypted tally is not in the lookup
	// table: wrong key, tampered ciphertext or a table that is too small.
	ErrLookupMiss = xerrors.New("decrypted value not in lookup table")
	// ErrMissingLookupTable is returned when a section of n votes is
	// decrypted before CalculateLookupTable(n) was called.
	ErrMissingLookupTable = xerrors.New("lookup table not calculated")
)
