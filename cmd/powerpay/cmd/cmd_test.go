package cmd_test

import (
	"os"
	"testing"

	"github.com/gauss-project/powerpay/cmd/powerpay/cmd"
)

var homeDir string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "powerpay-cmd-")
	if err != nil {
		panic(err)
	}

	homeDir = dir

	code := m.Run()

	if err := os.RemoveAll(dir); err != nil {
		panic(err)
	}

	os.Exit(code)
}

func newCommand(t *testing.T, opts ...cmd.Option) (c *cmd.Command) {
	t.Helper()

	c, err := cmd.NewCommand(append([]cmd.Option{cmd.WithHomeDir(homeDir)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

type passwordReader struct {
	passwords []string
}

func (r *passwordReader) ReadPassword() (string, error) {
	if len(r.passwords) == 0 {
		return "", os.ErrClosed
	}
	p := r.passwords[0]
	r.passwords = r.passwords[1:]
	return p, nil
}
