// Package elgamal implements exponential ElGamal over a safe-prime group,
// the disjunctive proof that a ciphertext holds 0 or 1, and the lookup
// table that turns a decrypted tally back into a small integer.
//
// A PrivateKey contains its PublicKey as a named field and is never a
// PublicKey itself: code that only needs to encrypt takes a *PublicKey and
// cannot be handed decryption capability by accident.
package elgamal

import (
	"crypto/cipher"
	"encoding/json"
	"math/big"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/group"
	"go.dedis.ch/ballot/internal/decimal"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

var one = big.NewInt(1)

// PublicKey is shared with every voter.
type PublicKey struct {
	Group *group.Params
	// H is g^x mod p.
	H *big.Int
}

// PrivateKey is held by the key custodian of the election only.
type PrivateKey struct {
	Public PublicKey
	// X is the secret exponent.
	X *big.Int
}

// GenerateKey samples a secret x in [1,p-1] and returns the key pair for
// params. If rand is nil, crypto/rand is used.
func GenerateKey(params *group.Params, rand cipher.Stream) (*PrivateKey, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rand == nil {
		rand = random.New()
	}
	pm1 := new(big.Int).Sub(params.P, one)
	for {
		x := random.Int(pm1, rand)
		x.Add(x, one)
		// x = 0 mod q gives h = 1, which hides nothing.
		h := params.Exp(x)
		if h.Cmp(one) == 0 {
			continue
		}
		return &PrivateKey{
			Public: PublicKey{Group: params, H: h},
			X:      x,
		}, nil
	}
}

// NewKeyPair generates a fresh group of the given size and a key pair in it.
// This is the slow path: the safe-prime search can take minutes for 2048
// bits and should not run on a request-serving goroutine.
func NewKeyPair(bits int, rand cipher.Stream) (*PrivateKey, error) {
	if rand == nil {
		rand = random.New()
	}
	params, err := group.Generate(bits, rand)
	if err != nil {
		return nil, err
	}
	return GenerateKey(params, rand)
}

// Validate checks the group and that h is in the subgroup of order q.
func (k *PublicKey) Validate() error {
	if k.Group == nil {
		return xerrors.Errorf("%w: public key without group", ballot.ErrGroupInvariant)
	}
	if err := k.Group.Validate(); err != nil {
		return err
	}
	if !k.Group.IsElement(k.H) || k.H.Cmp(one) == 0 {
		return xerrors.Errorf("%w: public value is not a group element", ballot.ErrGroupInvariant)
	}
	return nil
}

// Equal compares two public keys.
func (k *PublicKey) Equal(o *PublicKey) bool {
	return k.Group.Equal(o.Group) && k.H.Cmp(o.H) == 0
}

// Validate checks the public part and that it matches x.
func (k *PrivateKey) Validate() error {
	if err := k.Public.Validate(); err != nil {
		return err
	}
	if k.X == nil || k.X.Sign() <= 0 {
		return xerrors.Errorf("%w: missing secret exponent", ballot.ErrGroupInvariant)
	}
	if k.Public.Group.Exp(k.X).Cmp(k.Public.H) != 0 {
		return xerrors.Errorf("%w: secret exponent does not match public value", ballot.ErrGroupInvariant)
	}
	return nil
}

type publicKeyJSON struct {
	P string `json:"p"`
	Q string `json:"q"`
	G string `json:"g"`
	H string `json:"h"`
}

type privateKeyJSON struct {
	publicKeyJSON
	X string `json:"x"`
}

func (k *PublicKey) toJSON() publicKeyJSON {
	return publicKeyJSON{
		P: decimal.String(k.Group.P),
		Q: decimal.String(k.Group.Q),
		G: decimal.String(k.Group.G),
		H: decimal.String(k.H),
	}
}

func (k *PublicKey) fromJSON(raw publicKeyJSON) error {
	var err error
	k.Group = &group.Params{}
	if k.Group.P, err = decimal.Parse("p", raw.P); err != nil {
		return err
	}
	if k.Group.Q, err = decimal.Parse("q", raw.Q); err != nil {
		return err
	}
	if k.Group.G, err = decimal.Parse("g", raw.G); err != nil {
		return err
	}
	k.H, err = decimal.Parse("h", raw.H)
	return err
}

// MarshalJSON writes {"p","q","g","h"} as decimal strings.
func (k *PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.toJSON())
}

// UnmarshalJSON reads a public key. Call Validate before using it.
func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var raw publicKeyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return k.fromJSON(raw)
}

// MarshalJSON writes the public fields plus "x".
func (k *PrivateKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(privateKeyJSON{
		publicKeyJSON: k.Public.toJSON(),
		X:             decimal.String(k.X),
	})
}

// UnmarshalJSON reads a private key. Call Validate before using it.
func (k *PrivateKey) UnmarshalJSON(data []byte) error {
	var raw privateKeyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := k.Public.fromJSON(raw.publicKeyJSON); err != nil {
		return err
	}
	var err error
	k.X, err = decimal.Parse("x", raw.X)
	return err
}
