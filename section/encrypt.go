package section

import (
	"crypto/cipher"
	"sync"

	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/elgamal"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/kyber/v3/xof/blake2xb"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// seedBits is the size of the seed each option draws from the encrypter's
// stream.
const seedBits = 256

// Encrypter turns plaintext sections and ballot papers into encrypted ones
// under a public key. It only ever holds the public key.
type Encrypter struct {
	pub     *elgamal.PublicKey
	workers int

	// rand is only read to draw per-option seeds.
	sync.Mutex
	rand cipher.Stream
}

// NewEncrypter returns an encrypter for pub. If rand is nil, crypto/rand is
// used. Given a seeded stream, the output is fully deterministic, whatever
// the number of workers.
func NewEncrypter(pub *elgamal.PublicKey, rand cipher.Stream) *Encrypter {
	if rand == nil {
		rand = random.New()
	}
	return &Encrypter{pub: pub, rand: rand, workers: defaultWorkers()}
}

// SetWorkers sets how many options are encrypted concurrently.
func (e *Encrypter) SetWorkers(n int) {
	e.workers = n
}

// PublicKey returns the key the encrypter encrypts to.
func (e *Encrypter) PublicKey() *elgamal.PublicKey {
	return e.pub
}

type encryptJob struct {
	vote  int
	key   string
	value int
	seed  []byte
}

// EncryptSection encrypts every option of every vote of plain, each with its
// own randomness. The votes keep their order and their keys. The section id
// is only used to report errors.
func (e *Encrypter) EncryptSection(plain *PlainSection, sectionID uuid.UUID) (*EncryptedSection, error) {
	if plain == nil {
		return nil, xerrors.Errorf("section %v: %w", sectionID, ballot.ErrEmptySection)
	}
	for i, v := range plain.Votes {
		if err := v.validate(i); err != nil {
			return nil, xerrors.Errorf("section %v: %w", sectionID, err)
		}
	}
	order, err := plain.KeyOrder()
	if err != nil {
		return nil, xerrors.Errorf("section %v: %w", sectionID, err)
	}

	jobs := e.jobs(plain, order)
	out := make([]*elgamal.EncryptedOption, len(jobs))
	err = parallel(e.workers, len(jobs), func(i int) error {
		j := jobs[i]
		opt, err := elgamal.EncryptBit(e.pub, j.value, blake2xb.New(j.seed))
		if err != nil {
			return xerrors.Errorf("vote %d option %q: %w", j.vote, j.key, err)
		}
		out[i] = opt
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("section %v: %w", sectionID, err)
	}

	enc := &EncryptedSection{Votes: make([]EncryptedVote, len(plain.Votes))}
	for i := range enc.Votes {
		enc.Votes[i] = make(EncryptedVote, len(order))
	}
	for i, j := range jobs {
		enc.Votes[j.vote][j.key] = out[i]
	}
	log.Lvlf3("encrypted section %v: %d votes of %d options", sectionID, len(plain.Votes), len(order))
	return enc, nil
}

// jobs lists one job per option in vote order, then key order, and draws
// the seeds in that same order.
func (e *Encrypter) jobs(plain *PlainSection, order []string) []encryptJob {
	e.Lock()
	defer e.Unlock()
	jobs := make([]encryptJob, 0, len(plain.Votes)*len(order))
	for i, v := range plain.Votes {
		for _, k := range order {
			jobs = append(jobs, encryptJob{
				vote:  i,
				key:   k,
				value: v[k],
				seed:  random.Bits(seedBits, false, e.rand),
			})
		}
	}
	return jobs
}

// EncryptBallotPaper encrypts every section of a ballot paper. The ballot id
// and the section ids are kept.
func (e *Encrypter) EncryptBallotPaper(plain *PlainBallotPaper) (*EncryptedBallotPaper, error) {
	if len(plain.Sections) == 0 {
		return nil, xerrors.Errorf("ballot paper %v has no section: %w", plain.ID, ballot.ErrMalformedVote)
	}
	enc := &EncryptedBallotPaper{
		ID:       plain.ID,
		Sections: make(map[uuid.UUID]*EncryptedSection, len(plain.Sections)),
	}
	for _, id := range plain.SectionIDs() {
		s, err := e.EncryptSection(plain.Sections[id], id)
		if err != nil {
			return nil, ballot.ErrorOrNil(err, "ballot paper "+plain.ID.String())
		}
		enc.Sections[id] = s
	}
	log.Lvlf2("encrypted ballot paper %v with %d sections", plain.ID, len(enc.Sections))
	return enc, nil
}
