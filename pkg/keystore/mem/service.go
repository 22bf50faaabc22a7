// Package mem keeps keystore keys in memory. Used by tests and dev mode.
package mem

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/keystore"
)

var _ keystore.Service = (*Service)(nil)

// Service is the memory-based keystore.Service implementation.
//
// Keys are stored in the in-memory map, where the key is the name of the
// private key, and the value is the structure where the actual private key
// and the password are stored.
type Service struct {
	m  map[string]key
	mu sync.Mutex
}

// New creates new memory-based keystore.Service implementation.
func New() *Service {
	return &Service{
		m: make(map[string]key),
	}
}

type key struct {
	pk       *ecdsa.PrivateKey
	password string
}

// exportedKey is the plain JSON form produced by ExportKey. Keys in memory
// are never written anywhere so they are not encrypted.
type exportedKey struct {
	Address    identity.Identity `json:"address"`
	PrivateKey string            `json:"privateKey"`
	Password   string            `json:"password"`
}

func (s *Service) Exists(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.m[strings.ToLower(name)]
	return ok, nil
}

func (s *Service) Key(name, password string) (pk *ecdsa.PrivateKey, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.ToLower(name)
	k, ok := s.m[name]
	if !ok {
		pk, err := identity.GenerateKey()
		if err != nil {
			return nil, false, fmt.Errorf("generate secp256k1 key: %w", err)
		}
		s.m[name] = key{
			pk:       pk,
			password: password,
		}
		return pk, true, nil
	}

	if k.password != password {
		return nil, false, keystore.ErrInvalidPassword
	}
	return k.pk, false, nil
}

func (s *Service) ExportKey(name, password string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, err := s.get(name, password)
	if err != nil {
		return nil, err
	}
	return json.Marshal(exportedKey{
		Address:    identity.FromPublicKey(&k.pk.PublicKey),
		PrivateKey: fmt.Sprintf("%x", crypto.FromECDSA(k.pk)),
		Password:   password,
	})
}

func (s *Service) ImportKey(name, password string, keyJSON []byte) error {
	var e exportedKey
	if err := json.Unmarshal(keyJSON, &e); err != nil {
		return err
	}
	if e.Password != password {
		return keystore.ErrInvalidPassword
	}
	pk, err := crypto.HexToECDSA(e.PrivateKey)
	if err != nil {
		return err
	}
	return s.ImportPrivateKey(name, password, pk)
}

func (s *Service) ImportPrivateKey(name, password string, pk *ecdsa.PrivateKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[strings.ToLower(name)]; ok {
		if _, err := s.get(name, password); err != nil {
			return err
		}
	}
	s.m[strings.ToLower(name)] = key{
		pk:       pk,
		password: password,
	}
	return nil
}

func (s *Service) get(name, password string) (key, error) {
	k, ok := s.m[strings.ToLower(name)]
	if !ok {
		return key{}, fmt.Errorf("%w: %s", keystore.ErrKeyNotFound, name)
	}
	if k.password != password {
		return key{}, keystore.ErrInvalidPassword
	}
	return k, nil
}
