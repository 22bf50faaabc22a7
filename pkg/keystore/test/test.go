// Package test holds the behaviour every keystore.Service implementation
// must share.
package test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/keystore"
)

// Service is a utility testing function that can be used to test
// implementations of the keystore.Service interface.
func Service(t *testing.T, s keystore.Service) {
	exists, err := s.Exists("operator")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("should not exist")
	}

	// create a new operator key
	k1, created, err := s.Key("operator", "pass123456")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("key is not created")
	}

	exists, err = s.Exists("operator")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("should exist")
	}

	// get operator key
	k2, created, err := s.Key("operator", "pass123456")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("key is created, but should not be")
	}
	if !bytes.Equal(k1.D.Bytes(), k2.D.Bytes()) {
		t.Fatal("two keys are not equal")
	}

	// invalid password
	_, _, err = s.Key("operator", "invalid password")
	if !errors.Is(err, keystore.ErrInvalidPassword) {
		t.Fatal(err)
	}

	// wallet keys are stored under their identity
	pk, err := identity.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	wallet := identity.FromPublicKey(&pk.PublicKey).String()
	if err := s.ImportPrivateKey(wallet, "wallet pass", pk); err != nil {
		t.Fatal(err)
	}
	k3, created, err := s.Key(wallet, "wallet pass")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("key is created, but should not be")
	}
	if !bytes.Equal(pk.D.Bytes(), k3.D.Bytes()) {
		t.Fatal("imported key differs")
	}
	if bytes.Equal(k1.D.Bytes(), k3.D.Bytes()) {
		t.Fatal("two keys are equal, but should not be")
	}

	// replacing a key requires its password
	other, err := identity.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ImportPrivateKey(wallet, "wrong", other); !errors.Is(err, keystore.ErrInvalidPassword) {
		t.Fatalf("got error %v, want %v", err, keystore.ErrInvalidPassword)
	}

	// export and import under a new name
	exported, err := s.ExportKey(wallet, "wallet pass")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ExportKey(wallet, "wrong"); !errors.Is(err, keystore.ErrInvalidPassword) {
		t.Fatalf("got error %v, want %v", err, keystore.ErrInvalidPassword)
	}
	if _, err := s.ExportKey("missing", "wallet pass"); !errors.Is(err, keystore.ErrKeyNotFound) {
		t.Fatalf("got error %v, want %v", err, keystore.ErrKeyNotFound)
	}
	if err := s.ImportKey("copy", "wallet pass", exported); err != nil {
		t.Fatal(err)
	}
	k4, _, err := s.Key("copy", "wallet pass")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pk.D.Bytes(), k4.D.Bytes()) {
		t.Fatal("imported copy differs")
	}
}
