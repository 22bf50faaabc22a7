package ledger

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/storage"
)

var _ Store = (*tx)(nil)

// tx stages account changes. A nil entry in accounts marks a deletion.
type tx struct {
	l        *Ledger
	readOnly bool
	accounts map[identity.Identity]*Account
	order    []identity.Identity
	nonces   map[identity.Identity]uint64
	counts   counts
}

// counts are added to the ledger metrics once the tx is committed.
type counts struct {
	created     int
	closed      int
	transfers   int
	transferred uint64
	minted      uint64
}

func newTx(l *Ledger, readOnly bool) *tx {
	return &tx{
		l:        l,
		readOnly: readOnly,
		accounts: make(map[identity.Identity]*Account),
		nonces:   make(map[identity.Identity]uint64),
	}
}

func (t *tx) useNonce(signer identity.Identity, nonce uint64) error {
	next, err := t.l.nonce(signer)
	if err != nil {
		return err
	}
	if nonce != next {
		return fmt.Errorf("%w: %s expects %d, got %d", ErrInvalidNonce, signer, next, nonce)
	}
	t.nonces[signer] = next + 1
	return nil
}

func (t *tx) load(address identity.Identity) (*Account, error) {
	if a, ok := t.accounts[address]; ok {
		if a == nil {
			return nil, ErrAccountNotFound
		}
		return a.clone(), nil
	}
	var a Account
	if err := t.l.store.Get(accountKey(address), &a); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (t *tx) stage(address identity.Identity, a *Account) {
	if _, ok := t.accounts[address]; !ok {
		t.order = append(t.order, address)
	}
	t.accounts[address] = a
}

func (t *tx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *tx) CreateAccount(funder, address, owner identity.Identity, size int, reserved uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrDataSize, size)
	}
	if _, err := t.load(address); err == nil {
		return fmt.Errorf("%w: %s", ErrAccountExists, address)
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	if minimum := t.MinimumReserve(size); reserved < minimum {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientReserve, reserved, minimum)
	}

	f, err := t.load(funder)
	if err != nil {
		return fmt.Errorf("funder %s: %w", funder, err)
	}
	if f.Balance < reserved {
		return fmt.Errorf("%w: funder %s has %d, needs %d", ErrInsufficientBalance, funder, f.Balance, reserved)
	}
	f.Balance -= reserved

	t.stage(funder, f)
	t.stage(address, &Account{
		Owner:   owner,
		Balance: reserved,
		Data:    make([]byte, size),
	})
	t.counts.created++
	return nil
}

func (t *tx) Account(address identity.Identity) (Account, error) {
	a, err := t.load(address)
	if err != nil {
		return Account{}, err
	}
	return *a, nil
}

func (t *tx) Read(address identity.Identity) ([]byte, error) {
	a, err := t.load(address)
	if err != nil {
		return nil, err
	}
	return a.Data, nil
}

func (t *tx) Write(address identity.Identity, data []byte) error {
	if err := t.writable(); err != nil {
		return err
	}
	a, err := t.load(address)
	if err != nil {
		return err
	}
	if len(data) != len(a.Data) {
		return fmt.Errorf("%w: got %d bytes, account holds %d", ErrDataSize, len(data), len(a.Data))
	}
	a.Data = append([]byte(nil), data...)
	t.stage(address, a)
	return nil
}

// Transfer moves amount between accounts. A missing destination is created
// as a system owned account.
func (t *tx) Transfer(from, to identity.Identity, amount uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if from == to {
		_, err := t.load(from)
		return err
	}

	src, err := t.load(from)
	if err != nil {
		return fmt.Errorf("source %s: %w", from, err)
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from, src.Balance, amount)
	}

	dst, err := t.load(to)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		dst = &Account{Owner: SystemOwner}
	case err != nil:
		return fmt.Errorf("destination %s: %w", to, err)
	}
	balance, carry := bits.Add64(dst.Balance, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, to)
	}

	src.Balance -= amount
	dst.Balance = balance
	t.stage(from, src)
	t.stage(to, dst)

	t.counts.transfers++
	t.counts.transferred += amount
	return nil
}

func (t *tx) Balance(address identity.Identity) (uint64, error) {
	a, err := t.load(address)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

func (t *tx) MinimumReserve(size int) uint64 {
	return t.l.MinimumReserve(size)
}

func (t *tx) CloseAccount(address identity.Identity) error {
	if err := t.writable(); err != nil {
		return err
	}
	a, err := t.load(address)
	if err != nil {
		return err
	}
	if a.Balance != 0 {
		return fmt.Errorf("%w: %s holds %d", ErrAccountNotEmpty, address, a.Balance)
	}
	t.stage(address, nil)
	t.counts.closed++
	return nil
}

func (t *tx) commit() error {
	if len(t.order) == 0 && len(t.nonces) == 0 {
		return nil
	}
	b := t.l.store.NewBatch()
	for signer, n := range t.nonces {
		if err := b.Put(nonceKey(signer), n); err != nil {
			return err
		}
	}
	for _, address := range t.order {
		a := t.accounts[address]
		if a == nil {
			if err := b.Delete(accountKey(address)); err != nil {
				return err
			}
			continue
		}
		if err := b.Put(accountKey(address), a); err != nil {
			return err
		}
	}
	return b.Commit()
}
