package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/group"
	"go.dedis.ch/kyber/v3/xof/blake2xb"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, runtime.NumCPU(), c.Workers())

	p, err := c.Params(nil)
	require.NoError(t, err)
	require.True(t, p.Equal(group.RFC3526Group14()))
}

func TestParse(t *testing.T) {
	c, err := Parse(`
[group]
bits = 64
preset = ""

[worker]
count = 3
`)
	require.NoError(t, err)
	require.Equal(t, 64, c.Group.Bits)
	require.Equal(t, "ballots.db", c.Store.Path)
	require.Equal(t, 3, c.Workers())

	p, err := c.Params(blake2xb.New([]byte("config")))
	require.NoError(t, err)
	require.Equal(t, 64, p.BitLen())
	require.NoError(t, p.Validate())

	_, err = Parse("[group]\npreset = \"nope\"")
	require.Error(t, err)
	_, err = Parse("[group]\npreset = \"\"\nbits = 8")
	require.Error(t, err)
	_, err = Parse("[worker]\ncount = -1")
	require.Error(t, err)
	_, err = Parse("[store]\npath = \"\"")
	require.Error(t, err)
	_, err = Parse("[group")
	require.Error(t, err)
}

func TestLoadSave(t *testing.T) {
	dir, err := ioutil.TempDir("", "ballotconfig")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	c := Default()
	c.Store.Path = filepath.Join(dir, "x.db")
	c.Worker.Count = 2
	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))
	path := filepath.Join(dir, "ballotbox.toml")
	require.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, c, loaded)

	require.NoError(t, ioutil.WriteFile(path, []byte("[worker]\nthreads = 2\n"), 0600))
	_, err = Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "worker.threads")

	_, err = Load(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
}
