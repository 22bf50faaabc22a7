package file

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/keystore"
)

// Service is the file-based keystore.Service implementation.
//
// Keys are stored in directory where each private key is stored in a file,
// which is encrypted with symmetric key using some password.
type Service struct {
	dir string
}

// New creates new file-based keystore.Service implementation.
func New(dir string) *Service {
	return &Service{dir: dir}
}

func (s *Service) Exists(name string) (bool, error) {
	data, err := s.readFile(name)
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}

func (s *Service) Key(name, password string) (pk *ecdsa.PrivateKey, created bool, err error) {
	data, err := s.readFile(name)
	if err != nil {
		return nil, false, err
	}
	if len(data) > 0 {
		pk, err = decryptKey(data, password)
		if err != nil {
			return nil, false, err
		}
		return pk, false, nil
	}

	pk, err = identity.GenerateKey()
	if err != nil {
		return nil, false, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	d, err := encryptKey(pk, password)
	if err != nil {
		return nil, false, err
	}
	if err := s.write(name, d); err != nil {
		return nil, false, err
	}
	return pk, true, nil
}

func (s *Service) ExportKey(name, password string) ([]byte, error) {
	pk, err := s.read(name, password)
	if err != nil {
		return nil, err
	}
	return encryptKey(pk, password)
}

func (s *Service) ImportKey(name, password string, keyJSON []byte) error {
	pk, err := decryptKey(keyJSON, password)
	if err != nil {
		return err
	}
	return s.ImportPrivateKey(name, password, pk)
}

func (s *Service) ImportPrivateKey(name, password string, pk *ecdsa.PrivateKey) (err error) {
	d, err := encryptKey(pk, password)
	if err != nil {
		return err
	}

	exists, err := s.Exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return s.write(name, d)
	}

	if _, err := s.read(name, password); err != nil {
		return err
	}
	bakFile, err := s.bak(name)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = s.restore(name, bakFile)
			return
		}
		_ = os.Remove(bakFile)
	}()
	return s.write(name, d)
}

func (s *Service) keyFilename(name string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.key", strings.ToLower(name)))
}

// readFile returns nil data for a missing key.
func (s *Service) readFile(name string) ([]byte, error) {
	data, err := os.ReadFile(s.keyFilename(name))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return data, nil
}

func (s *Service) read(name, password string) (*ecdsa.PrivateKey, error) {
	data, err := s.readFile(name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", keystore.ErrKeyNotFound, name)
	}
	return decryptKey(data, password)
}

func (s *Service) write(name string, data []byte) error {
	filename := s.keyFilename(name)
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0600)
}

func (s *Service) bak(name string) (bakFile string, err error) {
	filename := s.keyFilename(name)
	bakFile = filename + fmt.Sprintf(".bak.%d", time.Now().Unix())
	err = os.Rename(filename, bakFile)
	return
}

func (s *Service) restore(name, bakFile string) error {
	return os.Rename(bakFile, s.keyFilename(name))
}
