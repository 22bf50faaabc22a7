package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/gauss-project/powerpay/pkg/identity"
)

const accountHeaderSize = identity.Size + 8

// Account is a balance holding slot on the ledger. Data is owned by the
// program identified by Owner; wallets are owned by SystemOwner and carry no
// data.
type Account struct {
	Owner   identity.Identity `json:"owner"`
	Balance uint64            `json:"balance"`
	Data    []byte            `json:"-"`
}

// SystemOwner owns wallet accounts and accounts created implicitly by a
// transfer.
var SystemOwner = identity.Zero

// MarshalBinary encodes the account as owner | balance (LE) | data.
func (a Account) MarshalBinary() ([]byte, error) {
	b := make([]byte, accountHeaderSize+len(a.Data))
	copy(b, a.Owner[:])
	binary.LittleEndian.PutUint64(b[identity.Size:], a.Balance)
	copy(b[accountHeaderSize:], a.Data)
	return b, nil
}

func (a *Account) UnmarshalBinary(b []byte) error {
	if len(b) < accountHeaderSize {
		return fmt.Errorf("ledger: account too short: %d bytes", len(b))
	}
	copy(a.Owner[:], b[:identity.Size])
	a.Balance = binary.LittleEndian.Uint64(b[identity.Size:])
	a.Data = append([]byte(nil), b[accountHeaderSize:]...)
	return nil
}

func (a Account) clone() *Account {
	c := a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}
