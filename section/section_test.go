package section

import (
	"encoding/json"
	"sync"
	"testing"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/elgamal"
	"go.dedis.ch/kyber/v3/xof/blake2xb"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

const (
	candidate1 = "0f1c5c8e-8a4e-4b8e-9f0e-1d2c3b4a5f61"
	candidate2 = "1a2b3c4d-5e6f-4a1b-8c2d-3e4f5a6b7c8d"
	candidate3 = "2b3c4d5e-6f7a-4b2c-9d3e-4f5a6b7c8d9e"
)

var (
	testKey     *elgamal.PrivateKey
	testKeyOnce sync.Once
)

func electionKey(t *testing.T) *elgamal.PrivateKey {
	testKeyOnce.Do(func() {
		var err error
		testKey, err = elgamal.NewKeyPair(128, blake2xb.New([]byte("section tests")))
		if err != nil {
			panic(err)
		}
	})
	require.NotNil(t, testKey)
	return testKey
}

// oneHot returns a plaintext vote over three candidates with choice set.
func oneHot(choice string) PlainVote {
	v := PlainVote{candidate1: 0, candidate2: 0, candidate3: 0, NoVote: 0, Invalid: 0}
	v[choice] = 1
	return v
}

func encrypt(t *testing.T, choices ...string) *EncryptedSection {
	plain := &PlainSection{}
	for _, c := range choices {
		plain.Votes = append(plain.Votes, oneHot(c))
	}
	enc, err := NewEncrypter(&electionKey(t).Public, nil).EncryptSection(plain, uuid.NewV4())
	require.NoError(t, err)
	return enc
}

func TestHomomorphicTally(t *testing.T) {
	enc := encrypt(t, candidate2, candidate1, candidate2, NoVote)

	d := NewDecrypter(electionKey(t))
	_, err := d.CalculateLookupTable(4)
	require.NoError(t, err)
	res, err := d.DecryptSection(enc, uuid.NewV4())
	require.NoError(t, err)

	require.Equal(t, map[string]int{candidate1: 1, candidate2: 2, candidate3: 0}, res.Candidates)
	require.Equal(t, 1, res.NoVoteCount)
	require.Equal(t, 0, res.InvalidCount)
	require.Equal(t, 4, res.Total())
}

func TestSingleVoteRoundTrip(t *testing.T) {
	d := NewDecrypter(electionKey(t))
	_, err := d.CalculateLookupTable(1)
	require.NoError(t, err)

	for _, choice := range []string{candidate1, candidate3, NoVote, Invalid} {
		res, err := d.DecryptSection(encrypt(t, choice), uuid.NewV4())
		require.NoError(t, err)
		plain := oneHot(choice)
		for k, c := range res.Candidates {
			require.Equal(t, plain[k], c)
		}
		require.Equal(t, plain[NoVote], res.NoVoteCount)
		require.Equal(t, plain[Invalid], res.InvalidCount)
	}
}

func TestEncryptSection(t *testing.T) {
	plain := &PlainSection{Votes: []PlainVote{oneHot(candidate1), oneHot(Invalid), oneHot(candidate3)}}
	enc, err := NewEncrypter(&electionKey(t).Public, nil).EncryptSection(plain, uuid.NewV4())
	require.NoError(t, err)
	require.Len(t, enc.Votes, len(plain.Votes))

	table, err := elgamal.NewLookupTable(electionKey(t).Public.Group, 1)
	require.NoError(t, err)
	for i, v := range enc.Votes {
		require.Equal(t, plain.Votes[i].Keys(), v.Keys())
		for k, opt := range v {
			require.NoError(t, opt.Verify(&electionKey(t).Public))
			m, err := electionKey(t).Decrypt(&opt.Ciphertext, table)
			require.NoError(t, err)
			require.Equal(t, plain.Votes[i][k], m)
		}
	}

	// Every option has its own randomness.
	alphas := make(map[string]bool)
	for _, v := range enc.Votes {
		for _, opt := range v {
			require.False(t, alphas[opt.Alpha.String()])
			alphas[opt.Alpha.String()] = true
		}
	}
}

func TestEncryptSection_Rejects(t *testing.T) {
	e := NewEncrypter(&electionKey(t).Public, nil)

	bad := oneHot(candidate1)
	bad[candidate2] = 1
	_, err := e.EncryptSection(&PlainSection{Votes: []PlainVote{oneHot(candidate1), bad}}, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrMalformedVote))
	var ve *VoteError
	require.True(t, xerrors.As(err, &ve))
	require.Equal(t, 1, ve.Index)

	other := PlainVote{"someone": 1, NoVote: 0, Invalid: 0}
	_, err = e.EncryptSection(&PlainSection{Votes: []PlainVote{oneHot(candidate1), other}}, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrInconsistentSectionShape))

	_, err = e.EncryptSection(&PlainSection{}, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrEmptySection))
	_, err = e.EncryptSection(nil, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrEmptySection))
}

func TestEncrypt_Deterministic(t *testing.T) {
	plain := &PlainBallotPaper{
		ID: uuid.NewV4(),
		Sections: map[uuid.UUID]*PlainSection{
			uuid.NewV4(): {Votes: []PlainVote{oneHot(candidate1), oneHot(NoVote)}},
			uuid.NewV4(): {Votes: []PlainVote{oneHot(candidate2)}},
		},
	}
	e1 := NewEncrypter(&electionKey(t).Public, blake2xb.New([]byte("seed")))
	e1.SetWorkers(1)
	e2 := NewEncrypter(&electionKey(t).Public, blake2xb.New([]byte("seed")))
	e2.SetWorkers(8)

	b1, err := e1.EncryptBallotPaper(plain)
	require.NoError(t, err)
	b2, err := e2.EncryptBallotPaper(plain)
	require.NoError(t, err)
	j1, err := json.Marshal(b1)
	require.NoError(t, err)
	j2, err := json.Marshal(b2)
	require.NoError(t, err)
	require.JSONEq(t, string(j1), string(j2))
}

func TestEncryptBallotPaper(t *testing.T) {
	plain := &PlainBallotPaper{
		ID: uuid.NewV4(),
		Sections: map[uuid.UUID]*PlainSection{
			uuid.NewV4(): {Votes: []PlainVote{oneHot(candidate1)}},
			uuid.NewV4(): {Votes: []PlainVote{oneHot(candidate2), oneHot(candidate3)}},
			uuid.NewV4(): {Votes: []PlainVote{oneHot(NoVote), oneHot(Invalid), oneHot(candidate1)}},
		},
	}
	enc, err := NewEncrypter(&electionKey(t).Public, nil).EncryptBallotPaper(plain)
	require.NoError(t, err)
	require.Equal(t, plain.ID, enc.ID)
	require.Len(t, enc.Sections, 3)
	for id, s := range plain.Sections {
		require.Contains(t, enc.Sections, id)
		require.Len(t, enc.Sections[id].Votes, len(s.Votes))
	}
	require.Equal(t, plain.SectionIDs(), enc.SectionIDs())

	_, err = NewEncrypter(&electionKey(t).Public, nil).EncryptBallotPaper(&PlainBallotPaper{ID: uuid.NewV4()})
	require.True(t, xerrors.Is(err, ballot.ErrMalformedVote))
}

func TestDecryptSection_MissingTable(t *testing.T) {
	enc := encrypt(t, candidate1, candidate2)
	d := NewDecrypter(electionKey(t))
	_, err := d.CalculateLookupTable(3)
	require.NoError(t, err)
	_, err = d.DecryptSection(enc, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrMissingLookupTable))
}

func TestDecryptSection_Tampered(t *testing.T) {
	enc := encrypt(t, candidate1, candidate2, NoVote)
	grp := electionKey(t).Public.Group
	opt := enc.Votes[2][candidate3]
	opt.Beta = grp.Mul(opt.Beta, grp.G)

	d := NewDecrypter(electionKey(t))
	_, err := d.CalculateLookupTable(3)
	require.NoError(t, err)
	res, err := d.DecryptSection(enc, uuid.NewV4())
	require.Nil(t, res)
	require.True(t, xerrors.Is(err, ballot.ErrProofVerification))
	var pe *ProofError
	require.True(t, xerrors.As(err, &pe))
	require.Equal(t, 2, pe.Index)
	require.Equal(t, candidate3, pe.Key)

	require.Error(t, VerifySection(&electionKey(t).Public, enc, 2))
}

func TestDecryptSection_WrongKey(t *testing.T) {
	enc := encrypt(t, candidate1)
	other, err := elgamal.GenerateKey(electionKey(t).Public.Group, nil)
	require.NoError(t, err)
	d := NewDecrypter(other)
	_, err = d.CalculateLookupTable(1)
	require.NoError(t, err)
	_, err = d.DecryptSection(enc, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrProofVerification))
}

func TestDecryptSection_Shape(t *testing.T) {
	a := encrypt(t, candidate1)
	b := encrypt(t, candidate2)
	delete(b.Votes[0], candidate3)
	mixed := &EncryptedSection{Votes: []EncryptedVote{a.Votes[0], b.Votes[0]}}

	d := NewDecrypter(electionKey(t))
	_, err := d.CalculateLookupTable(2)
	require.NoError(t, err)
	_, err = d.DecryptSection(mixed, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrInconsistentSectionShape))

	_, err = d.DecryptSection(&EncryptedSection{}, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrEmptySection))

	noSpecial := encrypt(t, candidate1)
	delete(noSpecial.Votes[0], Invalid)
	_, err = d.CalculateLookupTable(1)
	require.NoError(t, err)
	_, err = d.DecryptSection(noSpecial, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrMalformedVote))
}

func TestDecryptBallotSection(t *testing.T) {
	pub := &electionKey(t).Public
	e := NewEncrypter(pub, nil)
	president, council := uuid.NewV4(), uuid.NewV4()

	var papers []*EncryptedBallotPaper
	for _, c := range []string{candidate1, candidate1, candidate3, Invalid, candidate1} {
		b, err := e.EncryptBallotPaper(&PlainBallotPaper{
			ID: uuid.NewV4(),
			Sections: map[uuid.UUID]*PlainSection{
				president: {Votes: []PlainVote{oneHot(c)}},
				council:   {Votes: []PlainVote{oneHot(candidate2), oneHot(c)}},
			},
		})
		require.NoError(t, err)
		papers = append(papers, b)
	}

	d := NewDecrypter(electionKey(t))
	require.Equal(t, 5, CountVotes(papers, president))
	require.Equal(t, 10, CountVotes(papers, council))
	_, err := d.CalculateLookupTable(5)
	require.NoError(t, err)
	_, err = d.CalculateLookupTable(10)
	require.NoError(t, err)

	res, err := d.DecryptBallotSection(papers, president)
	require.NoError(t, err)
	require.Equal(t, 3, res.Candidates[candidate1])
	require.Equal(t, 1, res.Candidates[candidate3])
	require.Equal(t, 1, res.InvalidCount)

	res, err = d.DecryptBallotSection(papers, council)
	require.NoError(t, err)
	require.Equal(t, 5, res.Candidates[candidate2])
	require.Equal(t, 3, res.Candidates[candidate1])
	require.Equal(t, 10, res.Total())

	_, err = d.DecryptBallotSection(papers, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrEmptySection))
}

func TestCalculateLookupTable(t *testing.T) {
	d := NewDecrypter(electionKey(t))
	_, ok := d.LookupTable(7)
	require.False(t, ok)

	var wg sync.WaitGroup
	tables := make([]*elgamal.LookupTable, 8)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i], _ = d.CalculateLookupTable(7)
		}(i)
	}
	wg.Wait()
	for _, tb := range tables {
		require.True(t, tb == tables[0])
		require.Equal(t, 8, tb.Len())
	}
	got, ok := d.LookupTable(7)
	require.True(t, ok)
	require.True(t, got == tables[0])

	_, err := d.CalculateLookupTable(-1)
	require.Error(t, err)
}

func TestBallotPaperJSON(t *testing.T) {
	sectionID := uuid.NewV4()
	plain := &PlainBallotPaper{
		ID:       uuid.NewV4(),
		Sections: map[uuid.UUID]*PlainSection{sectionID: {Votes: []PlainVote{oneHot(candidate2)}}},
	}
	buf, err := json.Marshal(plain)
	require.NoError(t, err)
	require.Contains(t, string(buf), `"ballotPaperId":"`+plain.ID.String()+`"`)
	require.Contains(t, string(buf), `"`+sectionID.String()+`":{"votes":[{`)

	var back PlainBallotPaper
	require.NoError(t, json.Unmarshal(buf, &back))
	require.Equal(t, plain.ID, back.ID)
	require.Equal(t, plain.Sections[sectionID].Votes, back.Sections[sectionID].Votes)

	enc, err := NewEncrypter(&electionKey(t).Public, nil).EncryptBallotPaper(plain)
	require.NoError(t, err)
	buf, err = json.Marshal(enc)
	require.NoError(t, err)
	var encBack EncryptedBallotPaper
	require.NoError(t, json.Unmarshal(buf, &encBack))
	require.Equal(t, enc.ID, encBack.ID)
	require.NoError(t, VerifySection(&electionKey(t).Public, encBack.Sections[sectionID], 1))
}

func TestDecryptedSectionJSON(t *testing.T) {
	res := &DecryptedSection{
		Candidates:   map[string]int{candidate1: 1, candidate2: 2},
		NoVoteCount:  1,
		InvalidCount: 0,
	}
	buf, err := json.Marshal(res)
	require.NoError(t, err)
	require.JSONEq(t, `{"`+candidate1+`":1,"`+candidate2+`":2,"noVoteCount":1,"invalidCount":0}`, string(buf))

	var back DecryptedSection
	require.NoError(t, json.Unmarshal(buf, &back))
	require.Equal(t, res, &back)
}

func TestValidate(t *testing.T) {
	require.NoError(t, oneHot(candidate1).Validate())
	require.NoError(t, PlainVote{"a": 0, NoVote: 0, Invalid: 1}.Validate())

	for _, bad := range []PlainVote{
		{"a": 1, Invalid: 0},
		{"a": 1, NoVote: 0},
		{NoVote: 1, Invalid: 0},
		{"a": 0, NoVote: 0, Invalid: 0},
		{"a": 1, "b": 1, NoVote: 0, Invalid: 0},
		{"a": 2, NoVote: 0, Invalid: 0},
		{"a": -1, NoVote: 1, Invalid: 0},
		{"": 1, NoVote: 0, Invalid: 0},
	} {
		err := bad.Validate()
		require.True(t, xerrors.Is(err, ballot.ErrMalformedVote), "%v", bad)
	}
}

func TestKeyOrder(t *testing.T) {
	order, err := KeyOrder([][]string{{"c", "a", "b"}, {"b", "c", "a"}})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, order)

	_, err = KeyOrder(nil)
	require.True(t, xerrors.Is(err, ballot.ErrEmptySection))

	_, err = KeyOrder([][]string{{"a", "b"}, {"a", "b", "c"}})
	var se *ShapeError
	require.True(t, xerrors.As(err, &se))
	require.Equal(t, 1, se.Index)
	require.Equal(t, MismatchCount, se.Kind)
	require.Contains(t, err.Error(), "vote 1")
	require.Contains(t, err.Error(), "key count")
	require.True(t, xerrors.Is(err, ballot.ErrInconsistentSectionShape))

	_, err = KeyOrder([][]string{{"a", "b"}, {"a", "b"}, {"a", "x"}})
	require.True(t, xerrors.As(err, &se))
	require.Equal(t, 2, se.Index)
	require.Equal(t, MismatchIdentity, se.Kind)
	require.Equal(t, "x", se.Key)
	require.Contains(t, err.Error(), "key identity")

	_, err = KeyOrder([][]string{{"a", "b"}, {"a", "a"}})
	require.True(t, xerrors.As(err, &se))
	require.Equal(t, MismatchIdentity, se.Kind)

	plain := &PlainSection{Votes: []PlainVote{oneHot(candidate1), {"x": 1, NoVote: 0, Invalid: 0, candidate2: 0, candidate3: 0}}}
	_, err = plain.KeyOrder()
	require.True(t, xerrors.As(err, &se))
	require.Equal(t, 1, se.Index)
	require.Equal(t, MismatchIdentity, se.Kind)
}

func TestParallel(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)
	require.NoError(t, parallel(4, 100, func(i int) error {
		mu.Lock()
		defer mu.Unlock()
		seen[i] = true
		return nil
	}))
	require.Len(t, seen, 100)

	require.NoError(t, parallel(0, 0, func(int) error { return nil }))

	err := parallel(3, 50, func(i int) error {
		if i == 7 {
			return xerrors.New("seven")
		}
		return nil
	})
	require.EqualError(t, err, "seven")
}

// A zero ciphertext with a forged proof must not be able to vote twice.
func TestDecryptSection_ForgedDoubleVote(t *testing.T) {
	pub := &electionKey(t).Public
	enc := encrypt(t, candidate1)
	ct, r, err := elgamal.Encrypt(pub, 2, nil)
	require.NoError(t, err)
	pr, err := elgamal.Prove(pub, ct, 1, r, nil)
	require.NoError(t, err)
	enc.Votes[0][candidate1] = &elgamal.EncryptedOption{Ciphertext: *ct, Proof: *pr}

	d := NewDecrypter(electionKey(t))
	_, err = d.CalculateLookupTable(1)
	require.NoError(t, err)
	_, err = d.DecryptSection(enc, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrProofVerification))
}

// Every option proves 0 or 1 on its own, but the vote chooses all of them.
func TestDecryptSection_SeveralChosen(t *testing.T) {
	pub := &electionKey(t).Public
	stuffed := make(EncryptedVote)
	for _, k := range []string{candidate1, candidate2, candidate3, NoVote, Invalid} {
		opt, err := elgamal.EncryptBit(pub, 1, nil)
		require.NoError(t, err)
		stuffed[k] = opt
	}
	s := &EncryptedSection{Votes: []EncryptedVote{stuffed}}
	require.NoError(t, VerifySection(pub, s, 2))

	d := NewDecrypter(electionKey(t))
	_, err := d.CalculateLookupTable(1)
	require.NoError(t, err)
	res, err := d.DecryptSection(s, uuid.NewV4())
	require.Nil(t, res)
	require.True(t, xerrors.Is(err, ballot.ErrMalformedVote))

	// Mixed with honest votes the section is still refused.
	honest := encrypt(t, candidate1, candidate2)
	s.Votes = append(honest.Votes, stuffed)
	_, err = d.CalculateLookupTable(3)
	require.NoError(t, err)
	_, err = d.DecryptSection(s, uuid.NewV4())
	require.True(t, xerrors.Is(err, ballot.ErrMalformedVote))
}

func TestVerifySection_LowestIndex(t *testing.T) {
	pub := &electionKey(t).Public
	grp := pub.Group
	enc := encrypt(t, candidate1, candidate2, candidate3, NoVote, Invalid, candidate1)
	for _, i := range []int{5, 3, 1} {
		opt := enc.Votes[i][candidate2]
		opt.Alpha = grp.Mul(opt.Alpha, grp.G)
	}
	enc.Votes[1][NoVote].Beta = grp.Mul(enc.Votes[1][NoVote].Beta, grp.G)

	for _, workers := range []int{1, 2, 8, 32} {
		err := VerifySection(pub, enc, workers)
		var pe *ProofError
		require.True(t, xerrors.As(err, &pe))
		require.Equal(t, 1, pe.Index)
		require.Equal(t, candidate2, pe.Key)
	}
}

func TestIsSpecial(t *testing.T) {
	require.True(t, IsSpecial(NoVote))
	require.True(t, IsSpecial(Invalid))
	require.False(t, IsSpecial(candidate1))

	for _, k := range oneHot(candidate1).Keys() {
		_, special := map[string]bool{NoVote: true, Invalid: true}[k]
		require.Equal(t, special, IsSpecial(k))
	}
}
