// Package group holds the safe-prime group every key, ciphertext and proof of
// an election lives in: p = 2q+1 with p and q prime, and a generator g of the
// subgroup of order q.
package group

import (
	"encoding/json"
	"math/big"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/internal/decimal"
	"golang.org/x/xerrors"
)

// primeRounds is the number of Miller-Rabin rounds used to accept p and q.
const primeRounds = 20

var one = big.NewInt(1)

// Params are the public parameters of the group.
type Params struct {
	// P is the safe prime modulus.
	P *big.Int
	// Q is the Sophie-Germain prime (P-1)/2, the order of G.
	Q *big.Int
	// G generates the subgroup of order Q.
	G *big.Int
}

// Cofactor returns j = (p-1)/q. It fails with ErrGroupInvariant if q does not
// divide p-1 or if j is odd.
func (g *Params) Cofactor() (*big.Int, error) {
	if g.P == nil || g.Q == nil || g.Q.Sign() <= 0 {
		return nil, xerrors.Errorf("%w: missing p or q", ballot.ErrGroupInvariant)
	}
	pm1 := new(big.Int).Sub(g.P, one)
	j, rem := new(big.Int).DivMod(pm1, g.Q, new(big.Int))
	if rem.Sign() != 0 {
		return nil, xerrors.Errorf("%w: q does not divide p-1", ballot.ErrGroupInvariant)
	}
	if j.Bit(0) != 0 {
		return nil, xerrors.Errorf("%w: cofactor %v is odd", ballot.ErrGroupInvariant, j)
	}
	return j, nil
}

// Validate checks that p and q are probable primes, that q divides p-1 with
// an even cofactor, and that g is an element of order q other than 0 and 1.
func (g *Params) Validate() error {
	if g.P == nil || g.Q == nil || g.G == nil {
		return xerrors.Errorf("%w: incomplete parameters", ballot.ErrGroupInvariant)
	}
	if _, err := g.Cofactor(); err != nil {
		return err
	}
	if !g.Q.ProbablyPrime(primeRounds) {
		return xerrors.Errorf("%w: q is not prime", ballot.ErrGroupInvariant)
	}
	if !g.P.ProbablyPrime(primeRounds) {
		return xerrors.Errorf("%w: p is not prime", ballot.ErrGroupInvariant)
	}
	if g.G.Cmp(one) <= 0 || g.G.Cmp(g.P) >= 0 {
		return xerrors.Errorf("%w: generator out of range", ballot.ErrGroupInvariant)
	}
	if new(big.Int).Exp(g.G, g.Q, g.P).Cmp(one) != 0 {
		return xerrors.Errorf("%w: generator does not have order q", ballot.ErrGroupInvariant)
	}
	return nil
}

// IsElement tells whether x is in the subgroup of order q.
func (g *Params) IsElement(x *big.Int) bool {
	if x == nil || x.Sign() <= 0 || x.Cmp(g.P) >= 0 {
		return false
	}
	return new(big.Int).Exp(x, g.Q, g.P).Cmp(one) == 0
}

// IsScalar tells whether x is in [0,q).
func (g *Params) IsScalar(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(g.Q) < 0
}

// Exp returns g^e mod p.
func (g *Params) Exp(e *big.Int) *big.Int {
	return new(big.Int).Exp(g.G, e, g.P)
}

// Mul returns a*b mod p.
func (g *Params) Mul(a, b *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, g.P)
}

// Inverse returns a^-1 mod p.
func (g *Params) Inverse(a *big.Int) *big.Int {
	return new(big.Int).ModInverse(a, g.P)
}

// Equal compares two parameter sets.
func (g *Params) Equal(o *Params) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.P.Cmp(o.P) == 0 && g.Q.Cmp(o.Q) == 0 && g.G.Cmp(o.G) == 0
}

// BitLen returns the size of p in bits.
func (g *Params) BitLen() int {
	return g.P.BitLen()
}

type paramsJSON struct {
	P string `json:"p"`
	Q string `json:"q"`
	G string `json:"g"`
}

// MarshalJSON writes the parameters as decimal strings.
func (g *Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(paramsJSON{
		P: decimal.String(g.P),
		Q: decimal.String(g.Q),
		G: decimal.String(g.G),
	})
}

// UnmarshalJSON reads decimal-string parameters. It does not validate them.
func (g *Params) UnmarshalJSON(data []byte) error {
	var raw paramsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if g.P, err = decimal.Parse("p", raw.P); err != nil {
		return err
	}
	if g.Q, err = decimal.Parse("q", raw.Q); err != nil {
		return err
	}
	g.G, err = decimal.Parse("g", raw.G)
	return err
}
