// Package identity defines the 32-byte identities that own ledger accounts
// and sign transactions, together with secp256k1 signing and signer
// recovery.
package identity

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Size is the length of an identity in bytes.
const Size = 32

var (
	// ErrInvalidLength is returned when parsing a value that is not exactly
	// Size bytes long.
	ErrInvalidLength = errors.New("identity: invalid length")
	// ErrInvalidSignature is returned when no public key can be recovered
	// from a signature.
	ErrInvalidSignature = errors.New("identity: invalid signature")
)

// Identity addresses an account on the ledger. Wallet identities are the
// keccak256 hash of the uncompressed secp256k1 public key.
type Identity [Size]byte

// Zero is the empty identity.
var Zero Identity

// New copies b into an Identity.
func New(b []byte) (Identity, error) {
	var id Identity
	if len(b) != Size {
		return id, fmt.Errorf("%w: %d", ErrInvalidLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Parse decodes a 0x prefixed hex string.
func Parse(s string) (Identity, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("identity: %w", err)
	}
	return New(b)
}

// MustParse is like Parse but panics on error. Used for fixtures.
func MustParse(s string) Identity {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Random returns an identity filled from crypto/rand, used for fresh channel
// account addresses.
func Random() (Identity, error) {
	var id Identity
	if _, err := rand.Read(id[:]); err != nil {
		return Zero, err
	}
	return id, nil
}

// FromPublicKey derives the identity of a secp256k1 public key.
func FromPublicKey(pub *ecdsa.PublicKey) Identity {
	return Identity(crypto.Keccak256Hash(crypto.FromECDSAPub(pub)[1:]))
}

func (i Identity) Bytes() []byte {
	return append([]byte(nil), i[:]...)
}

func (i Identity) IsZero() bool {
	return i == Zero
}

func (i Identity) String() string {
	return hexutil.Encode(i[:])
}

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Identity) UnmarshalText(text []byte) error {
	id, err := Parse(string(text))
	if err != nil {
		return err
	}
	*i = id
	return nil
}
