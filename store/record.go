package store

import (
	"math/big"

	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/ballot/elgamal"
	"go.dedis.ch/ballot/group"
	"go.dedis.ch/ballot/section"
	"golang.org/x/xerrors"
)

// keyRecord is the stored form of an election key. X is empty when only
// the public key is known.
type keyRecord struct {
	P []byte
	Q []byte
	G []byte
	H []byte
	X []byte
}

type ballotRecord struct {
	ID       []byte
	Sections []sectionRecord
}

type sectionRecord struct {
	ID    []byte
	Votes []voteRecord
}

type voteRecord struct {
	Options []optionRecord
}

// optionRecord holds a ciphertext and its proof. C0 is the challenge of
// branch 0, like on the wire.
type optionRecord struct {
	Key    string
	Alpha  []byte
	Beta   []byte
	A0, B0 []byte
	A1, B1 []byte
	C0     []byte
	S0, S1 []byte
}

func bytesOf(x *big.Int) []byte {
	return x.Bytes()
}

func intOf(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func newKeyRecord(pub *elgamal.PublicKey) *keyRecord {
	return &keyRecord{
		P: bytesOf(pub.Group.P),
		Q: bytesOf(pub.Group.Q),
		G: bytesOf(pub.Group.G),
		H: bytesOf(pub.H),
	}
}

func (r *keyRecord) public() (*elgamal.PublicKey, error) {
	pub := &elgamal.PublicKey{
		Group: &group.Params{P: intOf(r.P), Q: intOf(r.Q), G: intOf(r.G)},
		H:     intOf(r.H),
	}
	if err := pub.Validate(); err != nil {
		return nil, xerrors.Errorf("stored key: %w", err)
	}
	return pub, nil
}

func (r *keyRecord) private() (*elgamal.PrivateKey, error) {
	if len(r.X) == 0 {
		return nil, xerrors.Errorf("stored key has no private part: %w", ErrNotFound)
	}
	pub, err := r.public()
	if err != nil {
		return nil, err
	}
	priv := &elgamal.PrivateKey{Public: *pub, X: intOf(r.X)}
	if err := priv.Validate(); err != nil {
		return nil, xerrors.Errorf("stored key: %w", err)
	}
	return priv, nil
}

func newBallotRecord(b *section.EncryptedBallotPaper) *ballotRecord {
	rec := &ballotRecord{ID: b.ID.Bytes()}
	for _, id := range b.SectionIDs() {
		s := b.Sections[id]
		sr := sectionRecord{ID: id.Bytes()}
		for _, v := range s.Votes {
			var vr voteRecord
			for _, k := range v.Keys() {
				vr.Options = append(vr.Options, newOptionRecord(k, v[k]))
			}
			sr.Votes = append(sr.Votes, vr)
		}
		rec.Sections = append(rec.Sections, sr)
	}
	return rec
}

func newOptionRecord(key string, o *elgamal.EncryptedOption) optionRecord {
	pr := o.Proof
	return optionRecord{
		Key:   key,
		Alpha: bytesOf(o.Alpha),
		Beta:  bytesOf(o.Beta),
		A0:    bytesOf(pr.Commitments[0].A),
		B0:    bytesOf(pr.Commitments[0].B),
		A1:    bytesOf(pr.Commitments[1].A),
		B1:    bytesOf(pr.Commitments[1].B),
		C0:    bytesOf(pr.Challenge),
		S0:    bytesOf(pr.Responses[0]),
		S1:    bytesOf(pr.Responses[1]),
	}
}

func (r *ballotRecord) ballot() (*section.EncryptedBallotPaper, error) {
	id, err := uuid.FromBytes(r.ID)
	if err != nil {
		return nil, xerrors.Errorf("stored ballot id: %v", err)
	}
	b := &section.EncryptedBallotPaper{
		ID:       id,
		Sections: make(map[uuid.UUID]*section.EncryptedSection, len(r.Sections)),
	}
	for _, sr := range r.Sections {
		sid, err := uuid.FromBytes(sr.ID)
		if err != nil {
			return nil, xerrors.Errorf("stored section id: %v", err)
		}
		s := &section.EncryptedSection{Votes: make([]section.EncryptedVote, len(sr.Votes))}
		for i, vr := range sr.Votes {
			v := make(section.EncryptedVote, len(vr.Options))
			for _, opt := range vr.Options {
				v[opt.Key] = opt.option()
			}
			s.Votes[i] = v
		}
		b.Sections[sid] = s
	}
	return b, nil
}

func (r optionRecord) option() *elgamal.EncryptedOption {
	return &elgamal.EncryptedOption{
		Ciphertext: elgamal.Ciphertext{Alpha: intOf(r.Alpha), Beta: intOf(r.Beta)},
		Proof: elgamal.Proof{
			Commitments: [2]elgamal.Commitment{
				{A: intOf(r.A0), B: intOf(r.B0)},
				{A: intOf(r.A1), B: intOf(r.B1)},
			},
			Challenge: intOf(r.C0),
			Responses: [2]*big.Int{intOf(r.S0), intOf(r.S1)},
		},
	}
}
