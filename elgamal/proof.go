package elgamal

import (
	"crypto/cipher"
	"crypto/sha256"
	"math/big"
	"strings"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/internal/decimal"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

// proofDomain separates the hash of this proof from any other hash over the
// same group elements.
const proofDomain = "or01"

// Commitment is the pair (A, B) = (g^w, h^w) of one branch of the proof.
type Commitment struct {
	A *big.Int
	B *big.Int
}

// Proof is a non-interactive Chaum-Pedersen OR-proof that a ciphertext
// encrypts 0 or 1. Branch b proves that (alpha, beta/g^b) is a
// Diffie-Hellman tuple with respect to (g, h). Only one branch is real, the
// other one is simulated, and the verifier cannot tell which.
type Proof struct {
	Commitments [2]Commitment
	// Challenge is the challenge of branch 0. The challenge of branch 1 is
	// H(transcript) - Challenge mod q.
	Challenge *big.Int
	Responses [2]*big.Int
}

// Prove builds the proof for ct = EncryptWith(pub, m, r), m in {0,1}.
func Prove(pub *PublicKey, ct *Ciphertext, m int, r *big.Int, rand cipher.Stream) (*Proof, error) {
	if m != 0 && m != 1 {
		return nil, xerrors.Errorf("%w: cannot prove value %d is a bit", ballot.ErrMalformedVote, m)
	}
	if rand == nil {
		rand = random.New()
	}
	grp := pub.Group
	q := grp.Q
	sim := 1 - m
	pr := &Proof{}
	challenges := [2]*big.Int{}

	// Simulated branch: pick the challenge and the response, then solve
	// for the commitment.
	challenges[sim] = random.Int(q, rand)
	pr.Responses[sim] = random.Int(q, rand)
	pr.Commitments[sim] = simulate(pub, ct, sim, challenges[sim], pr.Responses[sim])

	// Real branch: an honest Schnorr commitment.
	w := random.Int(q, rand)
	pr.Commitments[m] = Commitment{
		A: grp.Exp(w),
		B: new(big.Int).Exp(pub.H, w, grp.P),
	}

	c := challenge(pub, ct, pr.Commitments)
	challenges[m] = new(big.Int).Sub(c, challenges[sim])
	challenges[m].Mod(challenges[m], q)
	s := new(big.Int).Mul(challenges[m], r)
	s.Add(s, w)
	pr.Responses[m] = s.Mod(s, q)

	pr.Challenge = challenges[0]
	return pr, nil
}

// simulate solves A = g^s * alpha^-c and B = h^s * (beta/g^b)^-c.
func simulate(pub *PublicKey, ct *Ciphertext, b int, c, s *big.Int) Commitment {
	grp := pub.Group
	p := grp.P
	ac := new(big.Int).Exp(ct.Alpha, c, p)
	a := grp.Mul(grp.Exp(s), grp.Inverse(ac))
	bc := new(big.Int).Exp(shifted(pub, ct, b), c, p)
	hs := new(big.Int).Exp(pub.H, s, p)
	return Commitment{A: a, B: grp.Mul(hs, grp.Inverse(bc))}
}

// shifted returns beta / g^b.
func shifted(pub *PublicKey, ct *Ciphertext, b int) *big.Int {
	if b == 0 {
		return ct.Beta
	}
	grp := pub.Group
	return grp.Mul(ct.Beta, grp.Inverse(grp.Exp(big.NewInt(int64(b)))))
}

// challenge is the Fiat-Shamir hash of the statement and both commitments,
// reduced mod q.
func challenge(pub *PublicKey, ct *Ciphertext, cm [2]Commitment) *big.Int {
	grp := pub.Group
	transcript := proofDomain + "|" + strings.Join(decimal.Strings(
		grp.P, grp.Q, grp.G, pub.H,
		ct.Alpha, ct.Beta,
		cm[0].A, cm[0].B, cm[1].A, cm[1].B,
	), ",")
	digest := sha256.Sum256([]byte(transcript))
	c := new(big.Int).SetBytes(digest[:])
	return c.Mod(c, grp.Q)
}

// Verify checks the proof against ct. Any failure wraps
// ErrProofVerification; a vote with such a ciphertext must not be counted.
func Verify(pub *PublicKey, ct *Ciphertext, pr *Proof) error {
	if pr == nil || ct == nil {
		return xerrors.Errorf("%w: missing ciphertext or proof", ballot.ErrProofVerification)
	}
	grp := pub.Group
	p := grp.P
	for _, e := range []*big.Int{ct.Alpha, ct.Beta,
		pr.Commitments[0].A, pr.Commitments[0].B,
		pr.Commitments[1].A, pr.Commitments[1].B} {
		if !grp.IsElement(e) {
			return xerrors.Errorf("%w: value outside of the group", ballot.ErrProofVerification)
		}
	}
	for _, s := range []*big.Int{pr.Challenge, pr.Responses[0], pr.Responses[1]} {
		if !grp.IsScalar(s) {
			return xerrors.Errorf("%w: scalar out of range", ballot.ErrProofVerification)
		}
	}

	c := challenge(pub, ct, pr.Commitments)
	c1 := new(big.Int).Sub(c, pr.Challenge)
	challenges := [2]*big.Int{pr.Challenge, c1.Mod(c1, grp.Q)}
	sum := new(big.Int).Add(challenges[0], challenges[1])
	if sum.Mod(sum, grp.Q).Cmp(c) != 0 {
		return xerrors.Errorf("%w: challenges do not sum to the hash", ballot.ErrProofVerification)
	}

	for b := 0; b < 2; b++ {
		cm := pr.Commitments[b]
		s := pr.Responses[b]
		// g^s == A * alpha^c
		left := grp.Exp(s)
		right := grp.Mul(cm.A, new(big.Int).Exp(ct.Alpha, challenges[b], p))
		if left.Cmp(right) != 0 {
			return xerrors.Errorf("%w: branch %d fails on g", ballot.ErrProofVerification, b)
		}
		// h^s == B * (beta/g^b)^c
		left = new(big.Int).Exp(pub.H, s, p)
		right = grp.Mul(cm.B, new(big.Int).Exp(shifted(pub, ct, b), challenges[b], p))
		if left.Cmp(right) != 0 {
			return xerrors.Errorf("%w: branch %d fails on h", ballot.ErrProofVerification, b)
		}
	}
	return nil
}
