package identity

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureSize is the length of a recoverable secp256k1 signature.
const SignatureSize = 65

// Signer signs 32-byte digests on behalf of one identity.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
	Identity() Identity
	PublicKey() *ecdsa.PublicKey
}

type defaultSigner struct {
	key *ecdsa.PrivateKey
	id  Identity
}

// NewSigner returns a Signer backed by the given private key.
func NewSigner(key *ecdsa.PrivateKey) Signer {
	return &defaultSigner{
		key: key,
		id:  FromPublicKey(&key.PublicKey),
	}
}

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

func (s *defaultSigner) Sign(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, s.key)
}

func (s *defaultSigner) Identity() Identity {
	return s.id
}

func (s *defaultSigner) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

// Digest hashes the concatenation of parts with keccak256.
func Digest(parts ...[]byte) []byte {
	return crypto.Keccak256(parts...)
}

// Recover returns the identity whose key produced sig over digest.
func Recover(digest, sig []byte) (Identity, error) {
	if len(sig) != SignatureSize {
		return Zero, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return FromPublicKey(pub), nil
}

// Signers is the set of identities whose signatures were verified for one
// transaction.
type Signers map[Identity]struct{}

// NewSigners builds a signer set from already verified identities.
func NewSigners(ids ...Identity) Signers {
	s := make(Signers, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// IsAuthenticated reports whether id signed the transaction.
func (s Signers) IsAuthenticated(id Identity) bool {
	_, ok := s[id]
	return ok
}
