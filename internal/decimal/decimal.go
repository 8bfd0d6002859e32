// Package decimal converts the big integers of keys, ciphertexts and proofs
// to and from the decimal strings used on the wire.
package decimal

import (
	"math/big"

	"golang.org/x/xerrors"
)

// String returns the base-10 representation of x, or "" for nil.
func String(x *big.Int) string {
	if x == nil {
		return ""
	}
	return x.Text(10)
}

// Strings is String applied to every argument.
func Strings(xs ...*big.Int) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = String(x)
	}
	return out
}

// Parse reads a non-negative base-10 integer. The name is only used in the
// error message.
func Parse(name, s string) (*big.Int, error) {
	if s == "" {
		return nil, xerrors.Errorf("%s: missing value", name)
	}
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, xerrors.Errorf("%s: not a decimal integer: %q", name, s)
	}
	if x.Sign() < 0 {
		return nil, xerrors.Errorf("%s: negative value", name)
	}
	return x, nil
}

// ParsePair reads a two-element list of decimal integers.
func ParsePair(name string, s []string) (a, b *big.Int, err error) {
	if len(s) != 2 {
		return nil, nil, xerrors.Errorf("%s: expected 2 values, got %d", name, len(s))
	}
	a, err = Parse(name+"[0]", s[0])
	if err != nil {
		return nil, nil, err
	}
	b, err = Parse(name+"[1]", s[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
