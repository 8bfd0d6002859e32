package section

import (
	"encoding/json"
	"sort"

	uuid "github.com/satori/go.uuid"
	"golang.org/x/xerrors"
)

// PlainSection is the list of plaintext votes cast in one section.
type PlainSection struct {
	Votes []PlainVote `json:"votes"`
}

// EncryptedSection is the list of encrypted votes of one section, in the
// order of the plaintext section.
type EncryptedSection struct {
	Votes []EncryptedVote `json:"votes"`
}

// PlainBallotPaper is a voter's ballot: one section per question.
type PlainBallotPaper struct {
	ID       uuid.UUID                   `json:"ballotPaperId"`
	Sections map[uuid.UUID]*PlainSection `json:"sections"`
}

// EncryptedBallotPaper is the encrypted counterpart of PlainBallotPaper.
type EncryptedBallotPaper struct {
	ID       uuid.UUID                       `json:"ballotPaperId"`
	Sections map[uuid.UUID]*EncryptedSection `json:"sections"`
}

// SectionIDs returns the ids of the sections in a stable order.
func (b *PlainBallotPaper) SectionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Sections))
	for id := range b.Sections {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// SectionIDs returns the ids of the sections in a stable order.
func (b *EncryptedBallotPaper) SectionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Sections))
	for id := range b.Sections {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}

// DecryptedSection is the tally of a section.
type DecryptedSection struct {
	Candidates   map[string]int
	NoVoteCount  int
	InvalidCount int
}

// Total is the number of votes the tally accounts for.
func (d *DecryptedSection) Total() int {
	total := d.NoVoteCount + d.InvalidCount
	for _, c := range d.Candidates {
		total += c
	}
	return total
}

// MarshalJSON writes the tally flat: one field per candidate id, plus
// "noVoteCount" and "invalidCount".
func (d *DecryptedSection) MarshalJSON() ([]byte, error) {
	flat := make(map[string]int, len(d.Candidates)+2)
	for k, v := range d.Candidates {
		flat[k] = v
	}
	flat["noVoteCount"] = d.NoVoteCount
	flat["invalidCount"] = d.InvalidCount
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat form written by MarshalJSON.
func (d *DecryptedSection) UnmarshalJSON(data []byte) error {
	var flat map[string]int
	if err := json.Unmarshal(data, &flat); err != nil {
		return xerrors.Errorf("decrypted section: %v", err)
	}
	d.Candidates = make(map[string]int, len(flat))
	for k, v := range flat {
		switch k {
		case "noVoteCount":
			d.NoVoteCount = v
		case "invalidCount":
			d.InvalidCount = v
		default:
			d.Candidates[k] = v
		}
	}
	return nil
}
