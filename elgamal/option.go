package elgamal

import (
	"crypto/cipher"
	"encoding/json"

	"go.dedis.ch/ballot/internal/decimal"
	"golang.org/x/xerrors"
)

// EncryptedOption is one option of an encrypted vote: the ciphertext of its
// 0/1 value and the proof that it is indeed 0 or 1.
type EncryptedOption struct {
	Ciphertext
	Proof Proof
}

// EncryptBit encrypts m in {0,1} and proves it.
func EncryptBit(pub *PublicKey, m int, rand cipher.Stream) (*EncryptedOption, error) {
	ct, r, err := Encrypt(pub, m, rand)
	if err != nil {
		return nil, err
	}
	pr, err := Prove(pub, ct, m, r, rand)
	if err != nil {
		return nil, err
	}
	return &EncryptedOption{Ciphertext: *ct, Proof: *pr}, nil
}

// Verify checks the proof of the option.
func (o *EncryptedOption) Verify(pub *PublicKey) error {
	return Verify(pub, &o.Ciphertext, &o.Proof)
}

// optionJSON is the wire shape of an option. commitment1 and commitment2
// are the (A, B) pairs of branch 0 and 1, response holds both responses and
// challenge the challenge of branch 0.
type optionJSON struct {
	Alpha       string   `json:"alpha"`
	Beta        string   `json:"beta"`
	Commitment1 []string `json:"commitment1"`
	Commitment2 []string `json:"commitment2"`
	Challenge   string   `json:"challenge"`
	Response    []string `json:"response"`
}

// MarshalJSON writes the option with every integer as a decimal string.
func (o *EncryptedOption) MarshalJSON() ([]byte, error) {
	pr := &o.Proof
	return json.Marshal(optionJSON{
		Alpha:       decimal.String(o.Alpha),
		Beta:        decimal.String(o.Beta),
		Commitment1: decimal.Strings(pr.Commitments[0].A, pr.Commitments[0].B),
		Commitment2: decimal.Strings(pr.Commitments[1].A, pr.Commitments[1].B),
		Challenge:   decimal.String(pr.Challenge),
		Response:    decimal.Strings(pr.Responses[0], pr.Responses[1]),
	})
}

// UnmarshalJSON reads an option. The proof is not verified.
func (o *EncryptedOption) UnmarshalJSON(data []byte) error {
	var raw optionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return xerrors.Errorf("option: %v", err)
	}
	var err error
	if o.Alpha, err = decimal.Parse("alpha", raw.Alpha); err != nil {
		return err
	}
	if o.Beta, err = decimal.Parse("beta", raw.Beta); err != nil {
		return err
	}
	pr := &o.Proof
	pr.Commitments[0].A, pr.Commitments[0].B, err = decimal.ParsePair("commitment1", raw.Commitment1)
	if err != nil {
		return err
	}
	pr.Commitments[1].A, pr.Commitments[1].B, err = decimal.ParsePair("commitment2", raw.Commitment2)
	if err != nil {
		return err
	}
	if pr.Challenge, err = decimal.Parse("challenge", raw.Challenge); err != nil {
		return err
	}
	pr.Responses[0], pr.Responses[1], err = decimal.ParsePair("response", raw.Response)
	return err
}
