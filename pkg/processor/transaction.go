package processor

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/paychan"
)

// Transaction is an encoded instruction together with the accounts it
// touches and the signatures over both. Nonce is the payer's next ledger
// nonce; a transaction is applied at most once.
type Transaction struct {
	Instruction hexutil.Bytes    `json:"instruction"`
	Accounts    paychan.Accounts `json:"accounts"`
	Nonce       uint64           `json:"nonce"`
	Signatures  []hexutil.Bytes  `json:"signatures"`
}

// NewTransaction encodes in for the given accounts and payer nonce. The
// result carries no signatures.
func NewTransaction(in paychan.Instruction, a paychan.Accounts, nonce uint64) (*Transaction, error) {
	b, err := in.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Instruction: b,
		Accounts:    a,
		Nonce:       nonce,
	}, nil
}

// Digest is the keccak256 hash every signer signs.
func (t *Transaction) Digest() []byte {
	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], t.Nonce)
	return identity.Digest(t.Instruction, t.Accounts.Payer[:], t.Accounts.Payee[:], t.Accounts.Channel[:], nonce[:])
}

// Sign appends the signature of s.
func (t *Transaction) Sign(s identity.Signer) error {
	sig, err := s.Sign(t.Digest())
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	t.Signatures = append(t.Signatures, sig)
	return nil
}

// Signers recovers the identities that signed the transaction.
func (t *Transaction) Signers() (identity.Signers, error) {
	digest := t.Digest()
	ids := make([]identity.Identity, 0, len(t.Signatures))
	for i, sig := range t.Signatures {
		id, err := identity.Recover(digest, sig)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return identity.NewSigners(ids...), nil
}
