package elgamal

import (
	"math/big"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/group"
	"golang.org/x/xerrors"
)

// LookupTable maps g^t mod p back to t for t in [0,n]. It is read-only once
// built and can be shared between goroutines.
type LookupTable struct {
	group   *group.Params
	max     int
	entries map[string]int
}

// NewLookupTable computes g^0 ... g^n. It fails if two exponents collide,
// which only happens when n reaches the group order.
func NewLookupTable(params *group.Params, n int) (*LookupTable, error) {
	if n < 0 {
		return nil, xerrors.Errorf("%w: size %d is negative", ballot.ErrMissingLookupTable, n)
	}
	t := &LookupTable{
		group:   params,
		max:     n,
		entries: make(map[string]int, n+1),
	}
	cur := big.NewInt(1)
	for i := 0; i <= n; i++ {
		k := tableKey(cur)
		if _, exists := t.entries[k]; exists {
			return nil, xerrors.Errorf("%w: g^%d repeats, group order too small for %d votes",
				ballot.ErrGroupInvariant, i, n)
		}
		t.entries[k] = i
		cur = params.Mul(cur, params.G)
	}
	return t, nil
}

func tableKey(x *big.Int) string {
	return string(x.Bytes())
}

// Lookup returns t such that e = g^t, if t is in the table.
func (t *LookupTable) Lookup(e *big.Int) (int, bool) {
	v, ok := t.entries[tableKey(e)]
	return v, ok
}

// Max is the largest value the table resolves.
func (t *LookupTable) Max() int {
	return t.max
}

// Len is the number of entries, Max()+1.
func (t *LookupTable) Len() int {
	return len(t.entries)
}

// Group returns the parameters the table was built for.
func (t *LookupTable) Group() *group.Params {
	return t.group
}
