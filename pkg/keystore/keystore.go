// Package keystore stores password protected secp256k1 wallet keys.
package keystore

import (
	"crypto/ecdsa"
	"errors"
)

var (
	// ErrInvalidPassword is returned when the password for decrypting content
	// where private key is stored is not valid.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrKeyNotFound is returned for names without a stored key.
	ErrKeyNotFound = errors.New("key not found")
)

// Service for managing keystore private keys.
type Service interface {
	// Key returns the private key for a specified name that was encrypted with
	// the provided password. If the private key does not exists it creates
	// a new one with a name and the password, and returns with created set
	// to true.
	Key(name, password string) (k *ecdsa.PrivateKey, created bool, err error)
	// Exists returns true if the key with specified name exists.
	Exists(name string) (bool, error)
	// ExportKey returns the encrypted JSON form of a stored key.
	ExportKey(name, password string) ([]byte, error)
	// ImportKey stores a key given in encrypted JSON form, replacing an
	// existing key only if password unlocks it.
	ImportKey(name, password string, keyJSON []byte) error
	// ImportPrivateKey stores pk under name with the same rules as ImportKey.
	ImportPrivateKey(name, password string, pk *ecdsa.PrivateKey) error
}
