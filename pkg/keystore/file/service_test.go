package file_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gauss-project/powerpay/pkg/keystore"
	"github.com/gauss-project/powerpay/pkg/keystore/file"
	"github.com/gauss-project/powerpay/pkg/keystore/test"
)

func TestService(t *testing.T) {
	test.Service(t, file.New(t.TempDir()))
}

func TestKeyFile(t *testing.T) {
	dir := t.TempDir()
	s := file.New(dir)

	if _, _, err := s.Key("Operator", "secret"); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(filepath.Join(dir, "operator.key"))
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0600 {
		t.Fatalf("got key file mode %v, want 0600", fi.Mode().Perm())
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.key"), []byte(`{"version":1}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Key("broken", "secret"); err == nil || errors.Is(err, keystore.ErrInvalidPassword) {
		t.Fatalf("got error %v, want unsupported version", err)
	}
}
