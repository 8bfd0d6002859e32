// Ballotbox keeps election keys and encrypted ballot papers in a local
// database, and tallies them.
//
//	ballotbox -c ballotbox.toml keygen -e <election>
//	ballotbox -c ballotbox.toml encrypt -e <election> -i ballot.json
//	ballotbox -c ballotbox.toml verify -e <election>
//	ballotbox -c ballotbox.toml tally -e <election> [-s <section>]
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"

	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/ballot/config"
	"go.dedis.ch/ballot/elgamal"
	"go.dedis.ch/ballot/section"
	"go.dedis.ch/ballot/store"
	"go.dedis.ch/onet/v3/log"
	"gopkg.in/urfave/cli.v1"
)

var electionFlag = cli.StringFlag{
	Name:  "election, e",
	Usage: "the id of the election",
}

var cmds = cli.Commands{
	{
		Name:    "keygen",
		Usage:   "create the key of an election",
		Aliases: []string{"k"},
		Flags:   []cli.Flag{electionFlag},
		Action:  keygen,
	},
	{
		Name:    "pubkey",
		Usage:   "print the public key of an election",
		Aliases: []string{"p"},
		Flags:   []cli.Flag{electionFlag},
		Action:  pubkey,
	},
	{
		Name:    "encrypt",
		Usage:   "encrypt a plaintext ballot paper and cast it",
		Aliases: []string{"e"},
		Flags: []cli.Flag{
			electionFlag,
			cli.StringFlag{
				Name:  "in, i",
				Usage: "JSON file holding the plaintext ballot paper",
			},
		},
		Action: encrypt,
	},
	{
		Name:    "verify",
		Usage:   "verify the proofs of every cast ballot paper",
		Aliases: []string{"v"},
		Flags:   []cli.Flag{electionFlag},
		Action:  verify,
	},
	{
		Name:    "tally",
		Usage:   "decrypt the totals of one or all sections",
		Aliases: []string{"t"},
		Flags: []cli.Flag{
			electionFlag,
			cli.StringFlag{
				Name:  "section, s",
				Usage: "only tally this section",
			},
		},
		Action: tally,
	},
}

func newApp() *cli.App {
	cliApp := cli.NewApp()
	cliApp.Name = "ballotbox"
	cliApp.Usage = "Encrypt ballot papers and tally them homomorphically."
	cliApp.Version = "0.1"
	cliApp.Commands = cmds
	cliApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the TOML config-file, defaults are used if empty",
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
	return cliApp
}

func main() {
	log.ErrFatal(newApp().Run(os.Args))
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if fn := c.GlobalString("config"); fn != "" {
		return config.Load(fn)
	}
	return config.Default(), nil
}

// open loads the config and opens its store. The caller closes the store.
func open(c *cli.Context) (*config.Config, *store.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func electionID(c *cli.Context) (uuid.UUID, error) {
	s := c.String("election")
	if s == "" {
		return uuid.Nil, errors.New("--election flag is required")
	}
	id, err := uuid.FromString(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid election id %q: %v", s, err)
	}
	return id, nil
}

func printJSON(c *cli.Context, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(buf))
	return err
}

func keygen(c *cli.Context) error {
	cfg, st, err := open(c)
	if err != nil {
		return err
	}
	defer st.Close()

	id := uuid.NewV4()
	if c.String("election") != "" {
		if id, err = electionID(c); err != nil {
			return err
		}
	}
	if _, err := st.PublicKey(id); err == nil {
		return fmt.Errorf("election %v already has a key", id)
	}

	params, err := cfg.Params(nil)
	if err != nil {
		return err
	}
	priv, err := elgamal.GenerateKey(params, nil)
	if err != nil {
		return err
	}
	if err := st.PutKey(id, priv); err != nil {
		return err
	}
	log.Lvlf1("created key for election %v on a %d-bit group", id, params.BitLen())
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

func pubkey(c *cli.Context) error {
	_, st, err := open(c)
	if err != nil {
		return err
	}
	defer st.Close()
	id, err := electionID(c)
	if err != nil {
		return err
	}
	pub, err := st.PublicKey(id)
	if err != nil {
		return err
	}
	return printJSON(c, pub)
}

func encrypt(c *cli.Context) error {
	cfg, st, err := open(c)
	if err != nil {
		return err
	}
	defer st.Close()
	id, err := electionID(c)
	if err != nil {
		return err
	}
	fn := c.String("in")
	if fn == "" {
		return errors.New("--in flag is required")
	}
	buf, err := ioutil.ReadFile(fn)
	if err != nil {
		return fmt.Errorf("could not read ballot paper %v: %v", fn, err)
	}
	var plain section.PlainBallotPaper
	if err := json.Unmarshal(buf, &plain); err != nil {
		return fmt.Errorf("could not parse ballot paper %v: %v", fn, err)
	}
	if uuid.Equal(plain.ID, uuid.Nil) {
		plain.ID = uuid.NewV4()
	}

	pub, err := st.PublicKey(id)
	if err != nil {
		return err
	}
	e := section.NewEncrypter(pub, nil)
	e.SetWorkers(cfg.Workers())
	enc, err := e.EncryptBallotPaper(&plain)
	if err != nil {
		return err
	}
	if err := st.PutBallot(id, enc); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, enc.ID)
	return nil
}

// verify only checks that every option holds 0 or 1. A ballot paper
// choosing several options of a section passes, and makes tally fail.
func verify(c *cli.Context) error {
	cfg, st, err := open(c)
	if err != nil {
		return err
	}
	defer st.Close()
	id, err := electionID(c)
	if err != nil {
		return err
	}
	pub, err := st.PublicKey(id)
	if err != nil {
		return err
	}
	papers, err := st.Ballots(id)
	if err != nil {
		return err
	}
	bad := 0
	for _, b := range papers {
		for _, sid := range b.SectionIDs() {
			if err := section.VerifySection(pub, b.Sections[sid], cfg.Workers()); err != nil {
				log.Error("ballot paper", b.ID, "section", sid, ":", err)
				bad++
			}
		}
	}
	fmt.Fprintf(c.App.Writer, "%d ballot papers, %d invalid sections\n", len(papers), bad)
	if bad > 0 {
		return fmt.Errorf("%d sections failed verification", bad)
	}
	return nil
}

func tally(c *cli.Context) error {
	cfg, st, err := open(c)
	if err != nil {
		return err
	}
	defer st.Close()
	id, err := electionID(c)
	if err != nil {
		return err
	}
	priv, err := st.PrivateKey(id)
	if err != nil {
		return err
	}
	papers, err := st.Ballots(id)
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		return fmt.Errorf("no ballot paper cast in election %v", id)
	}

	var sections []uuid.UUID
	if s := c.String("section"); s != "" {
		sid, err := uuid.FromString(s)
		if err != nil {
			return fmt.Errorf("invalid section id %q: %v", s, err)
		}
		sections = append(sections, sid)
	} else {
		sections = allSections(papers)
	}

	d := section.NewDecrypter(priv)
	d.SetWorkers(cfg.Workers())
	results := make(map[string]*section.DecryptedSection, len(sections))
	for _, sid := range sections {
		if _, err := d.CalculateLookupTable(section.CountVotes(papers, sid)); err != nil {
			return err
		}
		res, err := d.DecryptBallotSection(papers, sid)
		if err != nil {
			return err
		}
		results[sid.String()] = res
	}
	return printJSON(c, results)
}

// allSections lists every section id appearing in at least one paper.
func allSections(papers []*section.EncryptedBallotPaper) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, b := range papers {
		for _, sid := range b.SectionIDs() {
			if !seen[sid] {
				seen[sid] = true
				ids = append(ids, sid)
			}
		}
	}
	return ids
}
