// Package config reads the TOML configuration of the ballotbox tool.
//
//	[group]
//	bits = 2048
//	preset = "rfc3526-2048"
//
//	[store]
//	path = "ballots.db"
//
//	[worker]
//	count = 4
//
// With an empty preset a fresh safe-prime group of the given size is
// generated when an election key is created.
package config

import (
	"crypto/cipher"
	"io"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/ballot/group"
	"golang.org/x/xerrors"
)

// DefaultPreset is the group used unless configured otherwise.
const DefaultPreset = "rfc3526-2048"

// Group selects the ElGamal group of new elections.
type Group struct {
	Bits   int    `toml:"bits"`
	Preset string `toml:"preset"`
}

// Store locates the database.
type Store struct {
	Path string `toml:"path"`
}

// Worker sizes the encryption and verification pools. Zero means one
// worker per CPU.
type Worker struct {
	Count int `toml:"count"`
}

// Config is the whole configuration file.
type Config struct {
	Group  Group  `toml:"group"`
	Store  Store  `toml:"store"`
	Worker Worker `toml:"worker"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Group: Group{Bits: 2048, Preset: DefaultPreset},
		Store: Store{Path: "ballots.db"},
	}
}

// Load reads the file at path over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, xerrors.Errorf("reading %s: %v", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, xerrors.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse reads a configuration from a string, over the defaults.
func Parse(s string) (*Config, error) {
	c := Default()
	if _, err := toml.Decode(s, c); err != nil {
		return nil, xerrors.Errorf("parsing config: %v", err)
	}
	return c, c.Validate()
}

// Save writes the configuration as TOML.
func (c *Config) Save(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks that the group can be built and the sizes make sense.
func (c *Config) Validate() error {
	if c.Group.Preset != "" {
		if _, ok := group.Preset(c.Group.Preset); !ok {
			return xerrors.Errorf("unknown group preset %q", c.Group.Preset)
		}
	} else if c.Group.Bits < group.MinBits {
		return xerrors.Errorf("group bits %d below %d", c.Group.Bits, group.MinBits)
	}
	if c.Store.Path == "" {
		return xerrors.New("empty store path")
	}
	if c.Worker.Count < 0 {
		return xerrors.Errorf("negative worker count %d", c.Worker.Count)
	}
	return nil
}

// Params returns the preset group, or generates one of Group.Bits bits
// from rand.
func (c *Config) Params(rand cipher.Stream) (*group.Params, error) {
	if c.Group.Preset != "" {
		p, ok := group.Preset(c.Group.Preset)
		if !ok {
			return nil, xerrors.Errorf("unknown group preset %q", c.Group.Preset)
		}
		return p, nil
	}
	return group.Generate(c.Group.Bits, rand)
}

// Workers returns the configured worker count, one per CPU if unset.
func (c *Config) Workers() int {
	if c.Worker.Count == 0 {
		return runtime.NumCPU()
	}
	return c.Worker.Count
}
