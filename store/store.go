// Package store keeps election keys and encrypted ballot papers in a local
// bbolt database. Records are encoded with protobuf.
//
// Keys live in one bucket, indexed by election id. The ballot papers of an
// election live in a bucket of their own, indexed by ballot paper id, so
// that a voter casting again replaces the earlier ballot paper.
package store

import (
	"time"

	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/elgamal"
	"go.dedis.ch/ballot/section"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/protobuf"
	bbolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// ErrNotFound is returned when an election has no stored key.
var ErrNotFound = xerrors.New("not found")

var (
	bucketKeys    = []byte("keys")
	bucketBallots = []byte("ballots")
)

// Store is a handle to the database. It is safe for concurrent use.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %v", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketKeys, bucketBallots} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("creating buckets: %v", err)
	}
	log.Lvl3("opened store", path)
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutKey stores the key of an election, replacing any previous one.
func (s *Store) PutKey(election uuid.UUID, priv *elgamal.PrivateKey) error {
	rec := newKeyRecord(&priv.Public)
	rec.X = bytesOf(priv.X)
	return s.putKey(election, rec)
}

// PutPublicKey stores only the public key of an election, which is all a
// machine that encrypts ballots needs.
func (s *Store) PutPublicKey(election uuid.UUID, pub *elgamal.PublicKey) error {
	return s.putKey(election, newKeyRecord(pub))
}

func (s *Store) putKey(election uuid.UUID, rec *keyRecord) error {
	buf, err := protobuf.Encode(rec)
	if err != nil {
		return xerrors.Errorf("encoding key: %v", err)
	}
	return ballot.WrapError(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKeys).Put(election.Bytes(), buf)
	}))
}

func (s *Store) getKey(election uuid.UUID) (*keyRecord, error) {
	var rec keyRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(bucketKeys).Get(election.Bytes())
		if buf == nil {
			return xerrors.Errorf("key of election %v: %w", election, ErrNotFound)
		}
		return protobuf.Decode(buf, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PublicKey returns the public key of the election.
func (s *Store) PublicKey(election uuid.UUID) (*elgamal.PublicKey, error) {
	rec, err := s.getKey(election)
	if err != nil {
		return nil, err
	}
	return rec.public()
}

// PrivateKey returns the private key of the election. ErrNotFound is
// returned if only the public key is stored.
func (s *Store) PrivateKey(election uuid.UUID) (*elgamal.PrivateKey, error) {
	rec, err := s.getKey(election)
	if err != nil {
		return nil, err
	}
	return rec.private()
}

// PutBallot stores an encrypted ballot paper of the election. A ballot
// paper with the same id is replaced.
func (s *Store) PutBallot(election uuid.UUID, b *section.EncryptedBallotPaper) error {
	buf, err := protobuf.Encode(newBallotRecord(b))
	if err != nil {
		return xerrors.Errorf("encoding ballot paper %v: %v", b.ID, err)
	}
	return ballot.WrapError(s.db.Update(func(tx *bbolt.Tx) error {
		eb, err := tx.Bucket(bucketBallots).CreateBucketIfNotExists(election.Bytes())
		if err != nil {
			return err
		}
		return eb.Put(b.ID.Bytes(), buf)
	}))
}

// Ballots returns every ballot paper stored for the election, ordered by
// ballot paper id.
func (s *Store) Ballots(election uuid.UUID) ([]*section.EncryptedBallotPaper, error) {
	var out []*section.EncryptedBallotPaper
	err := s.db.View(func(tx *bbolt.Tx) error {
		eb := tx.Bucket(bucketBallots).Bucket(election.Bytes())
		if eb == nil {
			return nil
		}
		return eb.ForEach(func(k, v []byte) error {
			var rec ballotRecord
			if err := protobuf.Decode(v, &rec); err != nil {
				return xerrors.Errorf("decoding ballot paper: %v", err)
			}
			b, err := rec.ballot()
			if err != nil {
				return err
			}
			out = append(out, b)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Elections returns the ids of all elections with a stored key.
func (s *Store) Elections() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKeys).ForEach(func(k, _ []byte) error {
			id, err := uuid.FromBytes(k)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
	})
	return ids, err
}
