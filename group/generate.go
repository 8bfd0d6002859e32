package group

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/ballot"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// MinBits is the smallest modulus Generate accepts. Anything this small is
// only useful in tests.
const MinBits = 16

// smallPrimes are used to discard candidates before running Miller-Rabin.
var smallPrimes = []uint64{
	3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71,
	73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131, 137, 139, 149,
	151, 157, 163, 167, 173, 179, 181, 191, 193, 197, 199, 211, 223, 227,
	229, 233, 239, 241, 251, 257, 263, 269, 271, 277, 281, 283, 293,
}

// Generate searches a bits-bit safe prime p, derives q = (p-1)/2 and picks a
// generator of the subgroup of order q. The search has no upper bound on the
// number of candidates; it only stops once a safe prime is found. If rand is
// nil, crypto/rand is used.
func Generate(bits int, rand cipher.Stream) (*Params, error) {
	if rand == nil {
		rand = random.New()
	}
	p, q, err := SafePrime(bits, rand)
	if err != nil {
		return nil, err
	}
	g, err := FindGenerator(p, q, rand)
	if err != nil {
		return nil, err
	}
	params := &Params{P: p, Q: q, G: g}
	if err := params.Validate(); err != nil {
		return nil, xerrors.Errorf("generated parameters: %w", err)
	}
	return params, nil
}

// SafePrime returns a bits-bit prime p such that q = (p-1)/2 is prime too.
func SafePrime(bits int, rand cipher.Stream) (p, q *big.Int, err error) {
	if bits < MinBits {
		return nil, nil, xerrors.Errorf("%w: safe prime of %d bits, need at least %d", ballot.ErrGroupInvariant, bits, MinBits)
	}
	p = new(big.Int)
	q = new(big.Int)
	for tries := 1; ; tries++ {
		p.SetBytes(random.Bits(uint(bits), true, rand))
		// A safe prime above 7 is 3 mod 4, so q is odd.
		p.SetBit(p, 0, 1)
		p.SetBit(p, 1, 1)
		q.Rsh(p, 1)
		if tries%10000 == 0 {
			log.Lvlf3("still searching a %d-bit safe prime after %d candidates", bits, tries)
		}
		if !sieve(p, q) {
			continue
		}
		if !q.ProbablyPrime(primeRounds) || !p.ProbablyPrime(primeRounds) {
			continue
		}
		log.Lvlf2("found a %d-bit safe prime after %d candidates", bits, tries)
		return p, q, nil
	}
}

// sieve returns false if p or q has a small prime factor.
func sieve(p, q *big.Int) bool {
	m := new(big.Int)
	for _, s := range smallPrimes {
		bs := new(big.Int).SetUint64(s)
		if m.Mod(p, bs).Sign() == 0 || m.Mod(q, bs).Sign() == 0 {
			return false
		}
	}
	return true
}

// FindGenerator returns a generator of the subgroup of order q of Z_p*. It
// computes g = h^j mod p with j = (p-1)/q for random h in [1,p-1] until g is
// not 1. A q that does not divide p-1 with an even cofactor is reported as
// ErrGroupInvariant and not retried.
func FindGenerator(p, q *big.Int, rand cipher.Stream) (*big.Int, error) {
	j, err := (&Params{P: p, Q: q}).Cofactor()
	if err != nil {
		return nil, err
	}
	if rand == nil {
		rand = random.New()
	}
	pm1 := new(big.Int).Sub(p, one)
	for {
		h := random.Int(pm1, rand)
		h.Add(h, one)
		g := new(big.Int).Exp(h, j, p)
		if g.Cmp(one) > 0 {
			return g, nil
		}
	}
}

// mustValid panics if params are broken. It is only used for the built-in
// groups.
func mustValid(params *Params) *Params {
	if err := params.Validate(); err != nil {
		panic(ballot.ErrorOrNil(err, "built-in group"))
	}
	return params
}
