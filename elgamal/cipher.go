package elgamal

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/ballot"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

// Ciphertext is an exponential ElGamal pair (g^r, h^r * g^m).
type Ciphertext struct {
	Alpha *big.Int
	Beta  *big.Int
}

// Encrypt encrypts the small non-negative integer m with fresh randomness r
// in [0,q) and returns the ciphertext together with r, which the prover
// needs. r must be discarded afterwards.
func Encrypt(pub *PublicKey, m int, rand cipher.Stream) (*Ciphertext, *big.Int, error) {
	if m < 0 {
		return nil, nil, xerrors.Errorf("%w: cannot encrypt negative value %d", ballot.ErrMalformedVote, m)
	}
	if rand == nil {
		rand = random.New()
	}
	r := random.Int(pub.Group.Q, rand)
	return EncryptWith(pub, m, r), r, nil
}

// EncryptWith encrypts m using the given randomness.
func EncryptWith(pub *PublicKey, m int, r *big.Int) *Ciphertext {
	gr := pub.Group.Exp(r)
	hr := new(big.Int).Exp(pub.H, r, pub.Group.P)
	gm := pub.Group.Exp(big.NewInt(int64(m)))
	return &Ciphertext{Alpha: gr, Beta: pub.Group.Mul(hr, gm)}
}

// Identity returns the encryption of 0 with randomness 0, the neutral
// element for Combine.
func Identity() *Ciphertext {
	return &Ciphertext{Alpha: big.NewInt(1), Beta: big.NewInt(1)}
}

// Combine returns the component-wise product of c and o mod p. The result
// decrypts to the sum of both plaintexts.
func (c *Ciphertext) Combine(o *Ciphertext, p *big.Int) *Ciphertext {
	alpha := new(big.Int).Mul(c.Alpha, o.Alpha)
	beta := new(big.Int).Mul(c.Beta, o.Beta)
	return &Ciphertext{Alpha: alpha.Mod(alpha, p), Beta: beta.Mod(beta, p)}
}

// Aggregate combines all ciphertexts. An empty list gives Identity.
func Aggregate(p *big.Int, cts []*Ciphertext) *Ciphertext {
	acc := Identity()
	for _, c := range cts {
		acc = acc.Combine(c, p)
	}
	return acc
}

// Equal compares two ciphertexts.
func (c *Ciphertext) Equal(o *Ciphertext) bool {
	return c.Alpha.Cmp(o.Alpha) == 0 && c.Beta.Cmp(o.Beta) == 0
}

// Copy returns a deep copy.
func (c *Ciphertext) Copy() *Ciphertext {
	return &Ciphertext{
		Alpha: new(big.Int).Set(c.Alpha),
		Beta:  new(big.Int).Set(c.Beta),
	}
}

// DecryptElement returns g^m = beta * (alpha^x)^-1 mod p.
func (k *PrivateKey) DecryptElement(c *Ciphertext) (*big.Int, error) {
	p := k.Public.Group.P
	s := new(big.Int).Exp(c.Alpha, k.X, p)
	inv := new(big.Int).ModInverse(s, p)
	if inv == nil {
		return nil, xerrors.Errorf("%w: ciphertext alpha is not invertible", ballot.ErrLookupMiss)
	}
	return k.Public.Group.Mul(c.Beta, inv), nil
}

// Decrypt recovers m from c through the lookup table. A value outside the
// table is reported as ErrLookupMiss and never guessed.
func (k *PrivateKey) Decrypt(c *Ciphertext, table *LookupTable) (int, error) {
	if !table.Group().Equal(k.Public.Group) {
		return 0, xerrors.Errorf("%w: lookup table belongs to another group", ballot.ErrGroupInvariant)
	}
	e, err := k.DecryptElement(c)
	if err != nil {
		return 0, err
	}
	m, ok := table.Lookup(e)
	if !ok {
		return 0, xerrors.Errorf("%w: table covers 0..%d", ballot.ErrLookupMiss, table.Max())
	}
	return m, nil
}
